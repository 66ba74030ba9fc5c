package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"arcos-chat/internal/models"
)

func TestManager_ScopedToSession(t *testing.T) {
	m := NewManager(&stubAsker{reply: &models.AssistantReply{Answer: "x"}}, nil, ManagerOptions{})

	store := m.Open(models.SessionMeta{SessionID: "sess_a"})

	got, err := m.Get("sess_a", store.ID())
	require.NoError(t, err)
	require.Same(t, store, got)

	_, err = m.Get("sess_b", store.ID())
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, m.Close("sess_b", store.ID()), ErrNotFound)
	require.NoError(t, m.Close("sess_a", store.ID()))

	_, err = m.Get("sess_a", store.ID())
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, m.Len())
}

func TestManager_EvictsOnlyIdleConversations(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	asker := &stubAsker{release: make(chan struct{}), reply: &models.AssistantReply{Answer: "x"}}
	m := NewManager(asker, nil, ManagerOptions{IdleTTL: time.Minute})
	m.now = func() time.Time { return now }

	idle := m.Open(models.SessionMeta{SessionID: "sess_a"})
	busy := m.Open(models.SessionMeta{SessionID: "sess_b"})
	_, err := busy.Submit(context.Background(), "hola")
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	require.Equal(t, 1, m.evictIdle())

	_, err = m.Get("sess_a", idle.ID())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get("sess_b", busy.ID())
	require.NoError(t, err)

	close(asker.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, busy.Wait(ctx))
}

func TestLoadingMessage_Rotation(t *testing.T) {
	es := language.Spanish

	require.Equal(t, "Dame un segundo, por favor", LoadingMessage(0, es))
	require.Equal(t, "Un momento, estoy pensando…", LoadingMessage(2600*time.Millisecond, es))
	require.Equal(t, "Estoy en ello, no tardo nada.", LoadingMessage(5*time.Second, es))
	require.Equal(t, "Dame un segundo, por favor", LoadingMessage(7500*time.Millisecond, es))

	require.Equal(t, "Estoy cocinando una buena respuesta para ti...", LoadingMessage(10*time.Second, es))
	require.Equal(t, "Esto va a fuego lento… pero sale bien.", LoadingMessage(12600*time.Millisecond, es))
	require.Equal(t, "Estoy cocinando una buena respuesta para ti...", LoadingMessage(20*time.Second, es))

	require.Equal(t, "Give me a second, please", LoadingMessage(-time.Second, language.English))
	require.Equal(t, "Give me a second, please", LoadingMessage(0, language.MustParse("en-GB")))
	require.Equal(t, "Dame un segundo, por favor", LoadingMessage(0, language.French))
}
