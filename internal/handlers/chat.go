package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arcos-chat/internal/middleware"
	"arcos-chat/internal/models"
	"arcos-chat/internal/websocket"
)

type createConversationRequest struct {
	Handoff  string `json:"handoff"`
	Question string `json:"question"`
}

// ChatHandler is the JSON API an embedded widget drives.
type ChatHandler struct {
	conversations *Conversations
	views         *Views
	hub           *websocket.Hub
}

func NewChatHandler(conversations *Conversations, views *Views, hub *websocket.Hub) *ChatHandler {
	return &ChatHandler{conversations: conversations, views: views, hub: hub}
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	meta := middleware.GetSessionMeta(r.Context())
	store, err := h.conversations.Start(r.Context(), meta, req.Handoff, req.Question)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.views.Conversation(store.Snapshot()))
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	meta := middleware.GetSessionMeta(r.Context())
	store, err := h.conversations.Get(meta.SessionID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.views.Conversation(store.Snapshot()))
}

func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	meta := middleware.GetSessionMeta(r.Context())
	store, err := h.conversations.Get(meta.SessionID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if _, err := store.Submit(r.Context(), req.Question); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, h.views.Conversation(store.Snapshot()))
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	meta := middleware.GetSessionMeta(r.Context())
	if err := h.conversations.Close(meta.SessionID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebSocket streams the session's conversation events.
func (h *ChatHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	meta := middleware.GetSessionMeta(r.Context())
	h.hub.Serve(w, r, meta.SessionID)
}
