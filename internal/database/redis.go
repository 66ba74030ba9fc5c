package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 10 * time.Second

// RedisClients pairs the client used for keys and publishing with one kept
// for subscriptions, so a slow websocket fan-out never holds up a session
// lookup or a hand-off redemption.
type RedisClients struct {
	Store  *redis.Client
	PubSub *redis.Client
}

// NewRedisClients connects both clients to redisURL and fails unless each
// answers a PING within redisConnectTimeout.
func NewRedisClients(redisURL string) (*RedisClients, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	return ConnectRedis(ctx, redisURL)
}

// ConnectRedis is NewRedisClients bounded by ctx instead of the default timeout.
func ConnectRedis(ctx context.Context, redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	store, err := dialRedis(ctx, opt, "store")
	if err != nil {
		return nil, err
	}
	pubsub, err := dialRedis(ctx, opt, "pubsub")
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &RedisClients{Store: store, PubSub: pubsub}, nil
}

// dialRedis opens a client named after role so the two connections can be
// told apart in CLIENT LIST.
func dialRedis(ctx context.Context, base *redis.Options, role string) (*redis.Client, error) {
	opt := *base
	opt.ClientName = "arcos-chat-" + role
	client := redis.NewClient(&opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis (%s) at %s", role, opt.Addr)
	}
	return client, nil
}

func (r *RedisClients) Close() error {
	storeErr := r.Store.Close()
	if err := r.PubSub.Close(); err != nil {
		return errors.Wrap(err, "close redis pubsub client")
	}
	return errors.Wrap(storeErr, "close redis store client")
}
