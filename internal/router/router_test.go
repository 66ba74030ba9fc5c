package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"arcos-chat/internal/chips"
	"arcos-chat/internal/conversation"
	"arcos-chat/internal/handlers"
	"arcos-chat/internal/handoff"
	"arcos-chat/internal/middleware"
	"arcos-chat/internal/models"
	"arcos-chat/internal/render"
	"arcos-chat/internal/session"
	"arcos-chat/internal/websocket"
	"arcos-chat/web"
)

type instantAsker struct{}

func (instantAsker) Ask(ctx context.Context, question string, meta models.SessionMeta) (*models.AssistantReply, error) {
	return &models.AssistantReply{Answer: "ok"}, nil
}

func newTestRouter(t *testing.T, limit int) (http.Handler, *conversation.Manager) {
	t.Helper()

	store, err := session.NewStore(session.StoreTypeMemory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	limiter := middleware.NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	manager := conversation.NewManager(instantAsker{}, nil, conversation.ManagerOptions{Language: language.Spanish})
	signer, err := handoff.NewSigner("test-secret", time.Minute, handoff.NewMemoryLedger())
	require.NoError(t, err)

	conversations := handlers.NewConversations(manager, signer, language.Spanish, "/")
	views := handlers.NewViews(render.NewRenderer(), render.NewPresenter(render.PresenterOptions{Locale: "es-ES", Currency: "EUR"}))
	carousel := chips.Default()
	pageHandler, err := handlers.NewPageHandler(conversations, views, carousel, web.Templates, handlers.PageOptions{
		BasePath: "/",
		BaseURL:  "http://shop.test",
		Language: language.Spanish,
	})
	require.NoError(t, err)

	r := New(session.NewProvider(store, false, "/"), limiter, pageHandler,
		handlers.NewChatHandler(conversations, views, websocket.NewHub(nil)),
		handlers.NewSessionHandler(carousel, conversations, "/"),
		Options{BasePath: "/", Logger: zerolog.Nop()})
	return r, manager
}

func TestAnswerEntryIsRateLimited(t *testing.T) {
	r, manager := newTestRouter(t, 1)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/answer", nil))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/answer", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, 1, manager.Len())
}

func TestHeroIsNotRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, 1)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
}
