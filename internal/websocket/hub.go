package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"arcos-chat/internal/models"
)

const writeWait = 10 * time.Second

func channelName(sessionID string) string {
	return "conversation_updates:" + sessionID
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans conversation events out to every socket a session has open.
// With a Redis client, events arrive through pub/sub so any instance can
// publish them; without one, the hub is fed in-process through Publish.
type Hub struct {
	mu             sync.RWMutex
	connections    map[string][]*client
	redisClient    *redis.Client
	cancelFuncs    map[string]context.CancelFunc
	allowedOrigins map[string]bool
	upgrader       websocket.Upgrader
}

func NewHub(redisClient *redis.Client, allowedOrigins ...string) *Hub {
	h := &Hub{
		connections:    make(map[string][]*client),
		redisClient:    redisClient,
		cancelFuncs:    make(map[string]context.CancelFunc),
		allowedOrigins: make(map[string]bool),
	}
	for _, o := range allowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			h.allowedOrigins[u.Host] = true
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// the session cookie authenticates the socket, so cross-site origins are refused
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host || h.allowedOrigins[u.Host]
}

// Serve upgrades the request and attaches the socket to sessionID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	h.registerConnection(sessionID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], c)

	// Start pub/sub subscription on the session's first connection
	if h.redisClient != nil && len(h.connections[sessionID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID)
	}

	log.Debug().Str("session_id", sessionID).Int("total", len(h.connections[sessionID])).Msg("websocket connected")
}

func (h *Hub) unregisterConnection(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[sessionID]
	for i, existing := range conns {
		if existing == c {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}

	log.Debug().Str("session_id", sessionID).Msg("websocket disconnected")
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID string) {
	pubsub := h.redisClient.Subscribe(ctx, channelName(sessionID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(sessionID string, data []byte) {
	h.mu.RLock()
	conns := append([]*client(nil), h.connections[sessionID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			log.Debug().Err(err).Str("session_id", sessionID).Msg("websocket write failed")
		}
	}
}

// Connections reports how many sockets sessionID has open.
func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

// Publish delivers ev to the session's sockets on this instance.
func (h *Hub) Publish(_ context.Context, sessionID string, ev models.ConversationEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode conversation event")
		return
	}
	h.broadcast(sessionID, data)
}

// RedisPublisher publishes events on the session's channel; every hub
// holding a socket for that session relays them.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, sessionID string, ev models.ConversationEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode conversation event")
		return
	}
	if err := p.client.Publish(ctx, channelName(sessionID), data).Err(); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to publish conversation event")
	}
}
