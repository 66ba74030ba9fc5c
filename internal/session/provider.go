package session

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	CookieName = "arcos_session"
	idPrefix   = "sess_"

	// CurrentURLHeader is set by embedded widgets to the page they run on.
	CurrentURLHeader = "X-Current-URL"
)

// Provider hands out one stable identifier per browser session.
type Provider struct {
	store  Store
	secure bool
	path   string
}

func NewProvider(store Store, secureCookies bool, cookiePath string) *Provider {
	if cookiePath == "" {
		cookiePath = "/"
	}
	return &Provider{store: store, secure: secureCookies, path: cookiePath}
}

// NewID returns a fresh unguessable session identifier.
func NewID() string {
	return idPrefix + uuid.NewString()
}

// SessionID returns the identifier carried by the request cookie when it is
// known to the store, otherwise it issues a new one and sets the cookie.
// The cookie has no expiry so it lives exactly as long as the browser session.
func (p *Provider) SessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && strings.HasPrefix(c.Value, idPrefix) {
		ok, err := p.store.Exists(r.Context(), c.Value)
		if err != nil {
			return "", err
		}
		if ok {
			return c.Value, nil
		}
		log.Debug().Str("session_id", c.Value).Msg("unknown session cookie, issuing a new one")
	}

	id := NewID()
	if err := p.store.Register(r.Context(), id); err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     p.path,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

// CurrentURL returns the address of the page the request originates from, or
// "" when there is no page context.
func CurrentURL(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get(CurrentURLHeader)); u != "" {
		return u
	}
	return r.Referer()
}

// PageURL is the absolute address of a page request served by this service.
func PageURL(baseURL string, r *http.Request) string {
	return strings.TrimRight(baseURL, "/") + r.URL.RequestURI()
}
