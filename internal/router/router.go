package router

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"arcos-chat/internal/handlers"
	"arcos-chat/internal/middleware"
	"arcos-chat/internal/session"
)

type Options struct {
	BasePath       string
	AllowedOrigins []string
	Static         fs.FS
	Logger         zerolog.Logger
}

func New(
	provider *session.Provider,
	limiter *middleware.RateLimiter,
	pageHandler *handlers.PageHandler,
	chatHandler *handlers.ChatHandler,
	sessionHandler *handlers.SessionHandler,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.CustomHeaderHandler("request_id", middleware.RequestIDHeader))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(provider))

		r.Get("/session", sessionHandler.Get)
		r.Get("/chips", sessionHandler.Chips)
		r.Post("/chips/resolve", sessionHandler.ResolveChip)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/handoff", sessionHandler.Handoff)
			r.Post("/conversations", chatHandler.Create)
			r.Post("/conversations/{id}/messages", chatHandler.PostMessage)
		})

		r.Get("/conversations/{id}", chatHandler.Get)
		r.Delete("/conversations/{id}", chatHandler.Delete)

		// ──── WebSocket ────
		r.Get("/ws", chatHandler.WebSocket)
	})

	pages := chi.NewRouter()
	if opts.Static != nil {
		pages.Handle("/static/*", http.StripPrefix(strings.TrimSuffix(opts.BasePath, "/"), http.FileServer(http.FS(opts.Static))))
	}
	pages.Group(func(r chi.Router) {
		r.Use(middleware.Session(provider))

		r.Get("/", pageHandler.Hero)
		r.Get("/answer/{id}", pageHandler.AnswerView)
		r.Post("/answer/{id}/close", pageHandler.AnswerClose)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/ask", pageHandler.Ask)
			r.Get("/answer", pageHandler.Answer)
			r.Post("/answer/{id}/messages", pageHandler.AnswerMessage)
		})
	})

	if prefix := strings.TrimSuffix(opts.BasePath, "/"); prefix != "" {
		r.Mount(prefix, pages)
	} else {
		r.Mount("/", pages)
	}

	return r
}
