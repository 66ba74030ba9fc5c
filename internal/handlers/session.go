package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"arcos-chat/internal/chips"
	"arcos-chat/internal/middleware"
	"arcos-chat/internal/models"
)

const (
	defaultViewportPx = 1440
	defaultChipPx     = 260
)

// SessionHandler exposes the session identity and the hero's building
// blocks (chips and the hand-off) to embedded widgets.
type SessionHandler struct {
	carousel      *chips.Carousel
	conversations *Conversations
	basePath      string
}

func NewSessionHandler(carousel *chips.Carousel, conversations *Conversations, basePath string) *SessionHandler {
	return &SessionHandler{carousel: carousel, conversations: conversations, basePath: basePath}
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	meta := middleware.GetSessionMeta(r.Context())

	resp := map[string]interface{}{
		"session_id":  meta.SessionID,
		"current_url": nil,
	}
	if meta.CurrentURL != "" {
		resp["current_url"] = meta.CurrentURL
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) Chips(w http.ResponseWriter, r *http.Request) {
	viewport := queryInt(r, "viewport", defaultViewportPx)
	chipWidth := queryInt(r, "chip_width", defaultChipPx)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows": h.carousel.Tracks(viewport, chipWidth),
	})
}

func (h *SessionHandler) ResolveChip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Label) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"label": "Label is required"}, r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"query": h.carousel.Resolve(req.Label)})
}

// Handoff issues the token a hero page passes to the answer page.
func (h *SessionHandler) Handoff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Dispatch *bool  `json:"is_loading"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	meta := middleware.GetSessionMeta(r.Context())
	dispatch := req.Dispatch == nil || *req.Dispatch
	token, err := h.conversations.Issue(models.Handoff{
		Question:   req.Question,
		Dispatch:   dispatch,
		SessionID:  meta.SessionID,
		CurrentURL: meta.CurrentURL,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"token":      token,
		"answer_url": answerURL(h.basePath, token),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 || n > 10000 {
		return def
	}
	return n
}
