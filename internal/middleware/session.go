package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"arcos-chat/internal/models"
	"arcos-chat/internal/session"
)

type contextKey string

const SessionKey contextKey = "session_meta"

// Session resolves the browser session of every request and attaches its
// SessionMeta to the context. A new session cookie is issued when needed.
func Session(provider *session.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := provider.SessionID(w, r)
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Msg("session store unavailable")
				writeError(w, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "Session service is unavailable. Please try again.", r)
				return
			}

			meta := models.SessionMeta{SessionID: id, CurrentURL: session.CurrentURL(r)}
			next.ServeHTTP(w, r.WithContext(WithSessionMeta(r.Context(), meta)))
		})
	}
}

func WithSessionMeta(ctx context.Context, meta models.SessionMeta) context.Context {
	return context.WithValue(ctx, SessionKey, meta)
}

// GetSessionMeta extracts the session attached by Session.
func GetSessionMeta(ctx context.Context) models.SessionMeta {
	meta, _ := ctx.Value(SessionKey).(models.SessionMeta)
	return meta
}
