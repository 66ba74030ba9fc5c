package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger remembers redeemed token ids until they would have expired anyway.
// Claim reports true the first time an id is seen.
type Ledger interface {
	Claim(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

type MemoryLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{used: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryLedger) Claim(_ context.Context, id string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.used {
		if now.After(exp) {
			delete(l.used, k)
		}
	}

	if _, seen := l.used[id]; seen {
		return false, nil
	}
	l.used[id] = now.Add(ttl)
	return true, nil
}

// RedisLedger shares redeemed ids between server instances.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "handoff_used:"+id, 1, ttl).Result()
}
