package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"arcos-chat/internal/models"
)

type ManagerOptions struct {
	IdleTTL  time.Duration
	Language language.Tag
}

// Manager owns the live conversation stores. A store lives until its view
// closes it or it sits idle longer than IdleTTL.
type Manager struct {
	asker     Asker
	publisher Publisher
	idleTTL   time.Duration
	lang      language.Tag
	now       func() time.Time

	mu       sync.Mutex
	stores   map[string]*Store
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewManager(asker Asker, publisher Publisher, opts ManagerOptions) *Manager {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	return &Manager{
		asker:     asker,
		publisher: publisher,
		idleTTL:   opts.IdleTTL,
		lang:      opts.Language,
		now:       time.Now,
		stores:    make(map[string]*Store),
		stopChan:  make(chan struct{}),
	}
}

// Open creates an empty conversation for the session.
func (m *Manager) Open(meta models.SessionMeta) *Store {
	store := NewStore(uuid.NewString(), meta, Options{
		Asker:     m.asker,
		Publisher: m.publisher,
		Language:  m.lang,
		Now:       m.now,
	})

	m.mu.Lock()
	m.stores[store.ID()] = store
	m.mu.Unlock()

	log.Debug().Str("conversation_id", store.ID()).Str("session_id", meta.SessionID).Msg("conversation opened")
	return store
}

// Get returns the conversation only to the session that opened it.
func (m *Manager) Get(sessionID, id string) (*Store, error) {
	m.mu.Lock()
	store, ok := m.stores[id]
	m.mu.Unlock()

	if !ok || store.Meta().SessionID != sessionID {
		return nil, ErrNotFound
	}
	return store, nil
}

// Close destroys a conversation; its turns are gone for good.
func (m *Manager) Close(sessionID, id string) error {
	m.mu.Lock()
	store, ok := m.stores[id]
	if !ok || store.Meta().SessionID != sessionID {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.stores, id)
	m.mu.Unlock()

	store.Close()
	return nil
}

// Len reports how many conversations are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Start runs the idle eviction loop until Stop.
func (m *Manager) Start() {
	interval := m.idleTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopChan:
				return
			case <-ticker.C:
				if n := m.evictIdle(); n > 0 {
					log.Info().Int("evicted", n).Msg("evicted idle conversations")
				}
			}
		}
	}()
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// evictIdle closes idle conversations untouched for longer than idleTTL.
// Conversations awaiting a reply are never evicted.
func (m *Manager) evictIdle() int {
	now := m.now()

	m.mu.Lock()
	var stale []*Store
	for id, store := range m.stores {
		last, idle := store.idleSince()
		if idle && now.Sub(last) > m.idleTTL {
			stale = append(stale, store)
			delete(m.stores, id)
		}
	}
	m.mu.Unlock()

	for _, store := range stale {
		store.Close()
	}
	return len(stale)
}
