package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"arcos-chat/internal/models"
	"arcos-chat/internal/services"
)

var (
	// ErrBusy rejects a submission while a reply is pending. Submissions are never queued.
	ErrBusy = errors.New("conversation is awaiting a reply")

	ErrAlreadyStarted = errors.New("conversation already has turns")
	ErrClosed         = errors.New("conversation is closed")
	ErrNotFound       = errors.New("conversation not found")
)

// Asker is the dispatcher a store relays questions to.
type Asker interface {
	Ask(ctx context.Context, question string, meta models.SessionMeta) (*models.AssistantReply, error)
}

// Publisher receives every state change of a store.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, ev models.ConversationEvent)
}

type Options struct {
	Asker     Asker
	Publisher Publisher
	Language  language.Tag
	Now       func() time.Time
}

// Store is the append-only turn log of one conversation view, with the
// Idle -> AwaitingReply -> Idle state machine around each dispatch.
type Store struct {
	id        string
	meta      models.SessionMeta
	asker     Asker
	publisher Publisher
	lang      language.Tag
	now       func() time.Time

	mu            sync.Mutex
	turns         []models.ChatTurn
	seq           int
	state         models.ConversationState
	errMsg        string
	awaitingSince time.Time
	lastActive    time.Time
	done          chan struct{} // closed when the in-flight dispatch settles
	cancel        context.CancelFunc
	closed        bool
}

func NewStore(id string, meta models.SessionMeta, opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		id:         id,
		meta:       meta,
		asker:      opts.Asker,
		publisher:  opts.Publisher,
		lang:       opts.Language,
		now:        now,
		state:      models.StateIdle,
		lastActive: now(),
	}
}

func (s *Store) ID() string                { return s.id }
func (s *Store) Meta() models.SessionMeta { return s.meta }

// Submit appends the user's question and starts one dispatch. Blank
// questions return services.ErrEmptyInput and change nothing; a submission
// while a reply is pending returns ErrBusy and changes nothing.
func (s *Store) Submit(ctx context.Context, question string) (*models.ChatTurn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, services.ErrEmptyInput
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.state == models.StateAwaitingReply {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	turn := s.appendLocked(models.RoleUser, question, models.ContentPlain, nil, "")
	s.errMsg = ""
	s.beginLocked(ctx, question)
	s.mu.Unlock()

	s.publish(models.ConversationEvent{Type: models.EventTurnAppended, State: models.StateAwaitingReply, Turn: &turn})
	return &turn, nil
}

// Seed starts a conversation handed off from the landing page. When
// dispatch is set the question is sent right away; otherwise the user turn
// waits for a later Submit.
func (s *Store) Seed(ctx context.Context, question string, dispatch bool) (*models.ChatTurn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, services.ErrEmptyInput
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if len(s.turns) > 0 || s.state != models.StateIdle {
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	turn := s.appendLocked(models.RoleUser, question, models.ContentPlain, nil, "")
	state := s.state
	if dispatch {
		s.beginLocked(ctx, question)
		state = s.state
	}
	s.mu.Unlock()

	s.publish(models.ConversationEvent{Type: models.EventTurnAppended, State: state, Turn: &turn})
	return &turn, nil
}

// Introduce appends an opening assistant turn to an empty conversation.
func (s *Store) Introduce(reply models.AssistantReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if len(s.turns) > 0 || s.state != models.StateIdle {
		return ErrAlreadyStarted
	}
	s.appendLocked(models.RoleAssistant, reply.Answer, reply.ContentType, reply.Products, reply.Closing)
	return nil
}

// Snapshot returns a copy of the conversation for rendering.
func (s *Store) Snapshot() models.ConversationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.lastActive = now

	snap := models.ConversationSnapshot{
		ID:        s.id,
		SessionID: s.meta.SessionID,
		State:     s.state,
		Turns:     append([]models.ChatTurn(nil), s.turns...),
		Error:     s.errMsg,
	}
	if s.state == models.StateAwaitingReply {
		snap.LoadingMessage = LoadingMessage(now.Sub(s.awaitingSince), s.lang)
	}
	return snap
}

// State reports the current state.
func (s *Store) State() models.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wait blocks until the in-flight dispatch, if any, has settled.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close destroys the conversation; a pending dispatch is abandoned.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Store) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.state == models.StateIdle
}

func (s *Store) appendLocked(role models.Role, text string, ct models.ContentType, products []models.Product, closing string) models.ChatTurn {
	s.seq++
	turn := models.ChatTurn{
		ID:          strconv.Itoa(s.seq),
		Role:        role,
		Text:        text,
		ContentType: ct,
		Products:    products,
		Closing:     closing,
		CreatedAt:   s.now(),
	}
	s.turns = append(s.turns, turn)
	s.lastActive = turn.CreatedAt
	return turn
}

// beginLocked enters AwaitingReply and dispatches in the background. The
// dispatch outlives the HTTP request that started it; its own deadline
// comes from the dispatcher.
func (s *Store) beginLocked(parent context.Context, question string) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	done := make(chan struct{})

	s.state = models.StateAwaitingReply
	s.awaitingSince = s.now()
	s.done = done
	s.cancel = cancel

	go s.dispatch(ctx, cancel, question, done)
}

func (s *Store) dispatch(ctx context.Context, cancel context.CancelFunc, question string, done chan struct{}) {
	defer close(done)
	defer cancel()

	reply, err := s.asker.Ask(ctx, question, s.meta)

	s.mu.Lock()
	s.state = models.StateIdle
	s.done = nil
	s.cancel = nil
	if s.closed {
		s.mu.Unlock()
		return
	}

	var ev models.ConversationEvent
	if err != nil {
		s.errMsg = services.UserMessage(err, s.lang)
		ev = models.ConversationEvent{Type: models.EventError, State: models.StateIdle, Error: s.errMsg}
		log.Info().
			Str("conversation_id", s.id).
			Str("kind", string(services.KindOf(err))).
			Msg("conversation recorded dispatch error")
	} else {
		turn := s.appendLocked(models.RoleAssistant, reply.Answer, reply.ContentType, reply.Products, reply.Closing)
		ev = models.ConversationEvent{Type: models.EventTurnAppended, State: models.StateIdle, Turn: &turn}
	}
	s.mu.Unlock()

	s.publish(ev)
}

func (s *Store) publish(ev models.ConversationEvent) {
	if s.publisher == nil {
		return
	}
	ev.ConversationID = s.id
	s.publisher.Publish(context.Background(), s.meta.SessionID, ev)
}
