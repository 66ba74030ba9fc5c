package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arcos-chat/internal/models"
	"arcos-chat/internal/session"
)

func newProvider(t *testing.T) *session.Provider {
	t.Helper()
	store, err := session.NewStore(session.StoreTypeMemory)
	require.NoError(t, err)
	return session.NewProvider(store, false, "/")
}

func TestSession_AttachesMetaAndCookie(t *testing.T) {
	var got models.SessionMeta
	h := Session(newProvider(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSessionMeta(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set(session.CurrentURLHeader, "https://shop.example/p/1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.NotEmpty(t, got.SessionID)
	require.Equal(t, "https://shop.example/p/1", got.CurrentURL)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, got.SessionID, cookies[0].Value)

	// Same cookie, same session.
	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req2.AddCookie(cookies[0])
	rr2 := httptest.NewRecorder()
	first := got.SessionID
	h.ServeHTTP(rr2, req2)
	require.Equal(t, first, got.SessionID)
	require.Empty(t, rr2.Result().Cookies())
}

type failingStore struct{}

func (failingStore) Register(ctx context.Context, id string) error       { return context.DeadlineExceeded }
func (failingStore) Exists(ctx context.Context, id string) (bool, error) { return false, nil }
func (failingStore) Close() error                                        { return nil }

func TestSession_StoreFailure(t *testing.T) {
	h := Session(session.NewProvider(failingStore{}, false, "/"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "SESSION_UNAVAILABLE", body.Error.Code)
	require.Equal(t, "req-1", body.Error.RequestID)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "abc", rr.Header().Get(RequestIDHeader))
}

func TestRateLimiter_PerSession(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(sid string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithSessionMeta(req.Context(), models.SessionMeta{SessionID: sid}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, do("sess_a"))
	require.Equal(t, http.StatusOK, do("sess_a"))
	require.Equal(t, http.StatusTooManyRequests, do("sess_a"))
	require.Equal(t, http.StatusOK, do("sess_b"))
}

func TestRateLimiter_WindowsDoNotSlide(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	start := time.Now()
	at := func(offset time.Duration) bool {
		rl.now = func() time.Time { return start.Add(offset) }
		return rl.Allow("sess_a")
	}

	// steady traffic below the limit is never rejected
	for i := 0; i < 6; i++ {
		require.True(t, at(time.Duration(i)*40*time.Second), "request %d", i)
	}

	// bursts are still capped inside one window
	require.True(t, at(10*time.Minute))
	require.True(t, at(10*time.Minute+10*time.Second))
	require.False(t, at(10*time.Minute+20*time.Second))
	require.True(t, at(11*time.Minute))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://shop.example/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chips", nil)
	req.Header.Set("Origin", "https://shop.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "https://shop.example", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chips", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
