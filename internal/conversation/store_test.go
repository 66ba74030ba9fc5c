package conversation

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"arcos-chat/internal/models"
	"arcos-chat/internal/services"
)

// stubAsker answers once release is closed (or immediately when release is nil).
type stubAsker struct {
	calls   int32
	release chan struct{}
	reply   *models.AssistantReply
	err     error
}

func (a *stubAsker) Ask(ctx context.Context, question string, meta models.SessionMeta) (*models.AssistantReply, error) {
	atomic.AddInt32(&a.calls, 1)
	if a.release != nil {
		select {
		case <-a.release:
		case <-ctx.Done():
			return nil, &services.DispatchError{Kind: services.KindTimeout, Err: ctx.Err()}
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.reply, nil
}

type stubPublisher struct {
	mu     sync.Mutex
	events []models.ConversationEvent
}

func (p *stubPublisher) Publish(ctx context.Context, sessionID string, ev models.ConversationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *stubPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.EventType
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestStore(asker Asker, pub Publisher) *Store {
	return NewStore("conv-1", models.SessionMeta{SessionID: "sess_1"}, Options{
		Asker:     asker,
		Publisher: pub,
		Language:  language.Spanish,
	})
}

func waitSettled(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestSubmit_AppendsUserThenAssistant(t *testing.T) {
	asker := &stubAsker{reply: &models.AssistantReply{
		Answer:      "Fabricamos en Suiza y Alemania.",
		ContentType: models.ContentMarkdown,
		Products:    []models.Product{{ID: "1", Title: "X", Price: "9.99 €"}},
		Closing:     "¿Algo más?",
	}}
	pub := &stubPublisher{}
	s := newTestStore(asker, pub)

	turn, err := s.Submit(context.Background(), "  ¿Dónde fabricáis?  ")
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, turn.Role)
	require.Equal(t, "¿Dónde fabricáis?", turn.Text)
	require.Equal(t, models.ContentPlain, turn.ContentType)

	waitSettled(t, s)

	snap := s.Snapshot()
	require.Equal(t, models.StateIdle, snap.State)
	require.Len(t, snap.Turns, 2)
	require.Equal(t, models.RoleAssistant, snap.Turns[1].Role)
	require.Equal(t, "Fabricamos en Suiza y Alemania.", snap.Turns[1].Text)
	require.Equal(t, models.ContentMarkdown, snap.Turns[1].ContentType)
	require.Equal(t, "¿Algo más?", snap.Turns[1].Closing)
	require.Len(t, snap.Turns[1].Products, 1)
	require.Empty(t, snap.Error)
	require.EqualValues(t, 1, atomic.LoadInt32(&asker.calls))

	require.Equal(t, []models.EventType{models.EventTurnAppended, models.EventTurnAppended}, pub.types())
}

func TestSubmit_EmptyQuestionIgnored(t *testing.T) {
	asker := &stubAsker{reply: &models.AssistantReply{Answer: "x"}}
	s := newTestStore(asker, nil)

	for _, q := range []string{"", "   ", "\n"} {
		turn, err := s.Submit(context.Background(), q)
		require.Nil(t, turn)
		require.ErrorIs(t, err, services.ErrEmptyInput)
	}
	require.Empty(t, s.Snapshot().Turns)
	require.Zero(t, atomic.LoadInt32(&asker.calls))
}

func TestSubmit_RejectedWhileAwaitingReply(t *testing.T) {
	asker := &stubAsker{release: make(chan struct{}), reply: &models.AssistantReply{Answer: "ok"}}
	s := newTestStore(asker, nil)

	_, err := s.Submit(context.Background(), "primera")
	require.NoError(t, err)
	require.Equal(t, models.StateAwaitingReply, s.State())

	turn, err := s.Submit(context.Background(), "segunda")
	require.ErrorIs(t, err, ErrBusy)
	require.Nil(t, turn)

	snap := s.Snapshot()
	require.Len(t, snap.Turns, 1, "rejected submission appends nothing")
	require.NotEmpty(t, snap.LoadingMessage)

	close(asker.release)
	waitSettled(t, s)

	require.EqualValues(t, 1, atomic.LoadInt32(&asker.calls), "no second HTTP call")
	require.Len(t, s.Snapshot().Turns, 2)
}

func TestSubmit_ErrorRecordedWithoutAssistantTurn(t *testing.T) {
	asker := &stubAsker{err: &services.DispatchError{Kind: services.KindEmptyResponse}}
	pub := &stubPublisher{}
	s := newTestStore(asker, pub)

	_, err := s.Submit(context.Background(), "hola")
	require.NoError(t, err)
	waitSettled(t, s)

	snap := s.Snapshot()
	require.Equal(t, models.StateIdle, snap.State)
	require.Len(t, snap.Turns, 1)
	require.Equal(t, services.UserMessage(asker.err, language.Spanish), snap.Error)
	require.Equal(t, models.EventError, pub.types()[1])

	// The conversation stays usable and a new submission clears the banner.
	asker.err = nil
	asker.reply = &models.AssistantReply{Answer: "ahora sí"}
	_, err = s.Submit(context.Background(), "otra vez")
	require.NoError(t, err)
	require.Empty(t, s.Snapshot().Error)
	waitSettled(t, s)

	snap = s.Snapshot()
	require.Len(t, snap.Turns, 3)
	require.Equal(t, "ahora sí", snap.Turns[2].Text)
}

func TestSubmit_AtMostOneAssistantTurnPerSubmission(t *testing.T) {
	asker := &stubAsker{reply: &models.AssistantReply{Answer: "ok"}}
	s := newTestStore(asker, nil)

	for i := 0; i < 5; i++ {
		_, err := s.Submit(context.Background(), "pregunta")
		require.NoError(t, err)
		waitSettled(t, s)
	}

	snap := s.Snapshot()
	require.Len(t, snap.Turns, 10)
	for i, turn := range snap.Turns {
		want := models.RoleUser
		if i%2 == 1 {
			want = models.RoleAssistant
		}
		require.Equal(t, want, turn.Role, "turn %d", i)
	}
}

func TestTurnIDsAreUniqueAndOrdered(t *testing.T) {
	asker := &stubAsker{reply: &models.AssistantReply{Answer: "ok"}}
	s := newTestStore(asker, nil)

	for i := 0; i < 3; i++ {
		_, err := s.Submit(context.Background(), "q")
		require.NoError(t, err)
		waitSettled(t, s)
	}

	seen := map[string]bool{}
	var prev time.Time
	for i, turn := range s.Snapshot().Turns {
		require.Equal(t, strconv.Itoa(i+1), turn.ID)
		require.False(t, seen[turn.ID])
		seen[turn.ID] = true
		require.False(t, turn.CreatedAt.Before(prev))
		prev = turn.CreatedAt
	}
}

func TestSeed_WithDispatch(t *testing.T) {
	asker := &stubAsker{release: make(chan struct{}), reply: &models.AssistantReply{Answer: "respuesta"}}
	s := newTestStore(asker, nil)

	turn, err := s.Seed(context.Background(), "¿Cómo empezamos?", true)
	require.NoError(t, err)
	require.Equal(t, "¿Cómo empezamos?", turn.Text)
	require.Equal(t, models.StateAwaitingReply, s.State())

	_, err = s.Seed(context.Background(), "otra", true)
	require.ErrorIs(t, err, ErrAlreadyStarted)

	close(asker.release)
	waitSettled(t, s)
	require.Len(t, s.Snapshot().Turns, 2)
}

func TestSeed_WithoutDispatch(t *testing.T) {
	asker := &stubAsker{reply: &models.AssistantReply{Answer: "x"}}
	s := newTestStore(asker, nil)

	_, err := s.Seed(context.Background(), "¿Dónde estáis?", false)
	require.NoError(t, err)
	require.Equal(t, models.StateIdle, s.State())
	require.Zero(t, atomic.LoadInt32(&asker.calls))
	require.Len(t, s.Snapshot().Turns, 1, "user turn without a following assistant turn is valid")
}

func TestIntroduce_OnlyOnEmptyConversation(t *testing.T) {
	s := newTestStore(&stubAsker{reply: &models.AssistantReply{Answer: "x"}}, nil)

	require.NoError(t, s.Introduce(models.AssistantReply{Answer: "Bienvenido", ContentType: models.ContentPlain}))
	require.ErrorIs(t, s.Introduce(models.AssistantReply{Answer: "otra"}), ErrAlreadyStarted)

	snap := s.Snapshot()
	require.Len(t, snap.Turns, 1)
	require.Equal(t, models.RoleAssistant, snap.Turns[0].Role)
}

func TestClose_AbandonsPendingDispatch(t *testing.T) {
	asker := &stubAsker{release: make(chan struct{}), reply: &models.AssistantReply{Answer: "tarde"}}
	s := newTestStore(asker, nil)

	_, err := s.Submit(context.Background(), "hola")
	require.NoError(t, err)

	s.Close()
	waitSettled(t, s)

	require.Len(t, s.Snapshot().Turns, 1)
	_, err = s.Submit(context.Background(), "otra")
	require.ErrorIs(t, err, ErrClosed)
}

func TestSubmit_DispatchOutlivesRequestContext(t *testing.T) {
	asker := &stubAsker{release: make(chan struct{}), reply: &models.AssistantReply{Answer: "ok"}}
	s := newTestStore(asker, nil)

	reqCtx, cancel := context.WithCancel(context.Background())
	_, err := s.Submit(reqCtx, "hola")
	require.NoError(t, err)
	cancel()

	close(asker.release)
	waitSettled(t, s)
	require.Len(t, s.Snapshot().Turns, 2)
}

func TestStore_RegionalLocaleUsesEnglishCatalog(t *testing.T) {
	asker := &stubAsker{release: make(chan struct{}), err: &services.DispatchError{Kind: services.KindTimeout}}
	s := NewStore("conv-1", models.SessionMeta{SessionID: "sess_1"}, Options{
		Asker:    asker,
		Language: language.MustParse("en-US"),
	})

	_, err := s.Submit(context.Background(), "Where are your shops?")
	require.NoError(t, err)
	require.Equal(t, LoadingMessage(0, language.English), s.Snapshot().LoadingMessage)

	close(asker.release)
	waitSettled(t, s)
	require.Equal(t, services.UserMessage(asker.err, language.English), s.Snapshot().Error)
	require.Contains(t, s.Snapshot().Error, "taking too long")
}
