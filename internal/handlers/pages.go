package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/text/language"

	"arcos-chat/internal/chips"
	"arcos-chat/internal/conversation"
	"arcos-chat/internal/handoff"
	"arcos-chat/internal/middleware"
	"arcos-chat/internal/models"
	"arcos-chat/internal/services"
	"arcos-chat/internal/session"
)

// refreshSeconds is how often an answer page awaiting a reply reloads itself.
const refreshSeconds = 2

type pageLabels struct {
	HeroPlaceholder   string
	AnswerPlaceholder string
	Send              string
	Back              string
	NotFound          string
}

var labelsByLanguage = map[string]pageLabels{
	"es": {
		HeroPlaceholder:   "¿En qué puedo ayudarte?",
		AnswerPlaceholder: "Pregúntame lo que quieras sobre nuestros productos...",
		Send:              "Enviar mensaje",
		Back:              "Volver",
		NotFound:          "Esta conversación ya no existe.",
	},
	"en": {
		HeroPlaceholder:   "How can I help?",
		AnswerPlaceholder: "Ask me anything about our products...",
		Send:              "Send message",
		Back:              "Back",
		NotFound:          "This conversation no longer exists.",
	},
}

type pageData struct {
	Lang        string
	Title       string
	Refresh     int
	Error       string
	Question    string
	Placeholder string
	SendLabel   string
	BackLabel   string

	Tracks       []chips.Track
	Conversation ConversationView
}

// PageHandler serves the hero and answer pages. Every form posts back and
// redirects, so both pages work without JavaScript.
type PageHandler struct {
	conversations *Conversations
	views         *Views
	carousel      *chips.Carousel
	templates     map[string]*template.Template
	basePath      string
	baseURL       string
	lang          language.Tag
	labels        pageLabels
}

type PageOptions struct {
	BasePath string
	BaseURL  string
	Language language.Tag
}

func NewPageHandler(conversations *Conversations, views *Views, carousel *chips.Carousel, templates fs.FS, opts PageOptions) (*PageHandler, error) {
	if opts.BasePath == "" {
		opts.BasePath = "/"
	}
	base, _ := opts.Language.Base()
	labels, ok := labelsByLanguage[base.String()]
	if !ok {
		labels = labelsByLanguage["es"]
	}

	h := &PageHandler{
		conversations: conversations,
		views:         views,
		carousel:      carousel,
		templates:     make(map[string]*template.Template),
		basePath:      opts.BasePath,
		baseURL:       opts.BaseURL,
		lang:          opts.Language,
		labels:        labels,
	}

	funcs := template.FuncMap{
		"asset": func(p string) string { return h.basePath + p },
		"hhmm":  func(t time.Time) string { return t.Local().Format("15:04") },
	}
	for _, page := range []string{"hero", "answer", "notfound"} {
		t, err := template.New(page).Funcs(funcs).ParseFS(templates, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, err
		}
		h.templates[page] = t
	}
	return h, nil
}

// Hero renders the landing page. ?chip=<label> pre-fills the input with
// the chip's question.
func (h *PageHandler) Hero(w http.ResponseWriter, r *http.Request) {
	question := ""
	if label := r.URL.Query().Get("chip"); label != "" {
		h.carousel.Activate(label, func(q string) { question = q })
	}

	h.render(w, r, http.StatusOK, "hero", pageData{
		Title:       "Arcos",
		Question:    question,
		Placeholder: h.labels.HeroPlaceholder,
		Tracks:      h.carousel.Tracks(defaultViewportPx, defaultChipPx),
	})
}

// Ask hands the hero's question to the answer page without waiting for the
// assistant.
func (h *PageHandler) Ask(w http.ResponseWriter, r *http.Request) {
	question := r.PostFormValue("question")
	meta := middleware.GetSessionMeta(r.Context())

	token, err := h.conversations.Issue(models.Handoff{
		Question:   question,
		Dispatch:   true,
		SessionID:  meta.SessionID,
		CurrentURL: meta.CurrentURL,
	})
	if errors.Is(err, handoff.ErrInvalid) {
		// blank question: stay on the hero
		http.Redirect(w, r, h.basePath, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, answerURL(h.basePath, token), http.StatusSeeOther)
}

// Answer opens a conversation, seeded from the hand-off when there is one.
func (h *PageHandler) Answer(w http.ResponseWriter, r *http.Request) {
	meta := middleware.GetSessionMeta(r.Context())
	meta.CurrentURL = session.PageURL(h.baseURL, r)

	store, err := h.conversations.Start(r.Context(), meta, r.URL.Query().Get("h"), "")
	if err != nil {
		// reloading a consumed hand-off lands on a fresh introductory view
		hlog.FromRequest(r).Info().Err(err).Msg("hand-off rejected")
		store, err = h.conversations.Start(r.Context(), meta, "", "")
		if err != nil {
			h.serverError(w, r, err)
			return
		}
	}

	http.Redirect(w, r, h.basePath+"answer/"+store.ID(), http.StatusSeeOther)
}

func (h *PageHandler) AnswerView(w http.ResponseWriter, r *http.Request) {
	store, ok := h.lookup(w, r)
	if !ok {
		return
	}

	view := h.views.Conversation(store.Snapshot())
	data := pageData{
		Title:        "Arcos",
		Placeholder:  h.labels.AnswerPlaceholder,
		SendLabel:    h.labels.Send,
		BackLabel:    h.labels.Back,
		Conversation: view,
	}
	if view.Loading {
		data.Refresh = refreshSeconds
	}
	h.render(w, r, http.StatusOK, "answer", data)
}

func (h *PageHandler) AnswerMessage(w http.ResponseWriter, r *http.Request) {
	store, ok := h.lookup(w, r)
	if !ok {
		return
	}

	_, err := store.Submit(r.Context(), r.PostFormValue("question"))
	switch {
	case err == nil, errors.Is(err, services.ErrEmptyInput), errors.Is(err, conversation.ErrBusy):
		// blank and overlapping submissions change nothing
	default:
		h.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, h.basePath+"answer/"+store.ID(), http.StatusSeeOther)
}

// AnswerClose leaves the answer page; its conversation is discarded.
func (h *PageHandler) AnswerClose(w http.ResponseWriter, r *http.Request) {
	meta := middleware.GetSessionMeta(r.Context())
	h.conversations.Close(meta.SessionID, chi.URLParam(r, "id"))
	http.Redirect(w, r, h.basePath, http.StatusSeeOther)
}

func (h *PageHandler) lookup(w http.ResponseWriter, r *http.Request) (*conversation.Store, bool) {
	meta := middleware.GetSessionMeta(r.Context())
	store, err := h.conversations.Get(meta.SessionID, chi.URLParam(r, "id"))
	if err != nil {
		h.render(w, r, http.StatusNotFound, "notfound", pageData{
			Title:     "Arcos",
			Error:     h.labels.NotFound,
			BackLabel: h.labels.Back,
		})
		return nil, false
	}
	return store, true
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	data.Lang = h.lang.String()

	var buf bytes.Buffer
	if err := h.templates[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *PageHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg("page failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func answerURL(basePath, token string) string {
	return basePath + "answer?h=" + url.QueryEscape(token)
}
