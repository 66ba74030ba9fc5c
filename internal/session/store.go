package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidConfig    = errors.New("invalid session store configuration")
	ErrInvalidStoreType = errors.New("invalid session store type")
)

// Store remembers which session identifiers this service issued.
type Store interface {
	// Register records a freshly issued identifier.
	Register(ctx context.Context, id string) error

	// Exists reports whether id was issued and has not expired. Reads refresh the TTL.
	Exists(ctx context.Context, id string) (bool, error)

	// Close releases any resources.
	Close() error
}

// StoreType represents the type of session store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithTTL sets how long an idle session identifier stays valid.
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

// NewStore creates a Store of the given type. Redis requires WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{ttl: 24 * time.Hour}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = 24 * time.Hour
	}

	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(cfg.ttl), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{client: cfg.redisClient, ttl: cfg.ttl}, nil
	default:
		return nil, ErrInvalidStoreType
	}
}

type memoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]time.Time // id -> expiry
	now      func() time.Time
}

func newMemoryStore(ttl time.Duration) *memoryStore {
	return &memoryStore{
		ttl:      ttl,
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *memoryStore) Register(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sessions[id] = now.Add(s.ttl)

	// Opportunistic sweep keeps the map bounded without a goroutine.
	for k, exp := range s.sessions {
		if now.After(exp) {
			delete(s.sessions, k)
		}
	}
	return nil
}

func (s *memoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	now := s.now()
	if now.After(exp) {
		delete(s.sessions, id)
		return false, nil
	}
	s.sessions[id] = now.Add(s.ttl)
	return true, nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]time.Time)
	return nil
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func redisKey(id string) string { return "session:" + id }

func (s *redisStore) Register(ctx context.Context, id string) error {
	return s.client.Set(ctx, redisKey(id), time.Now().UTC().Format(time.RFC3339), s.ttl).Err()
}

func (s *redisStore) Exists(ctx context.Context, id string) (bool, error) {
	// EXPIRE answers false for missing keys, so one round trip both checks and refreshes.
	ok, err := s.client.Expire(ctx, redisKey(id), s.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Close is a no-op: the client is shared and closed by its owner.
func (s *redisStore) Close() error {
	return nil
}
