package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Event kinds carried on a session feed. Location, alert and session
// updates share one topic per session; subscribers filter by kind.
const (
	KindLocation = "location"
	KindAlert    = "alert"
	KindSession  = "session"
)

// Event is the envelope broadcast to session subscribers.
type Event struct {
	Kind      string          `json:"kind"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	SessionID string
	Send      chan Event

	once sync.Once
	hub  *Hub
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

// Register subscribes to every event on a session feed. The returned
// client must be closed exactly once via Unregister (or Client.Close).
func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan Event, 64),
		hub:       h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	client.once.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if sessionClients, ok := h.clients[client.SessionID]; ok {
			delete(sessionClients, client)
			if len(sessionClients) == 0 {
				delete(h.clients, client.SessionID)
			}
		}
		close(client.Send)
	})
}

// Close is the disposer handed to subscribers; repeated calls are safe.
func (c *Client) Close() {
	if c.hub != nil {
		c.hub.Unregister(c)
	}
}

// Broadcast delivers an event to local subscribers in arrival order and
// fans it out through redis for other nodes. Slow subscribers drop
// events rather than blocking the feed.
func (h *Hub) Broadcast(kind, sessionID string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("stream marshal error: %v", err)
		return
	}
	event := Event{Kind: kind, SessionID: sessionID, Payload: raw}

	h.deliver(sessionID, event)

	if h.redis != nil {
		buf, _ := json.Marshal(event)
		if err := h.redis.Publish(context.Background(), redisChannel(sessionID), buf).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) deliver(sessionID string, event Event) {
	h.mu.RLock()
	clients := h.clients[sessionID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- event:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, "care:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		sessionID := sessionIDFromChannel(msg.Channel)
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			continue
		}
		h.deliver(sessionID, event)
	}
}

func redisChannel(sessionID string) string {
	return "care:" + sessionID + ":events"
}

func sessionIDFromChannel(ch string) string {
	// care:{session}:events
	const prefix = "care:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
