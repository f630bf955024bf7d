package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Room naming. Every connection sits in its own user room; bookings and
// the admin role get shared rooms.
const RoomAdmin = "admin"

func UserRoom(userID string) string       { return "user-" + userID }
func BookingRoom(bookingID string) string { return "booking-" + bookingID }

// Envelope is the wire format for every live-channel event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Hub struct {
	id      string
	redis   *redis.Client
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
}

type Client struct {
	UserID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		rooms:   map[string]map[*Client]struct{}{},
		members: map[*Client]map[string]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[client] = map[string]struct{}{}
	return client
}

func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.members[client]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = map[*Client]struct{}{}
	}
	h.rooms[room][client] = struct{}{}
	h.members[client][room] = struct{}{}
}

func (h *Hub) Leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

func (h *Hub) leaveLocked(client *Client, room string) {
	if roomClients, ok := h.rooms[room]; ok {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.members[client]; ok {
		delete(rooms, room)
	}
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.members[client] {
		h.leaveLocked(client, room)
	}
	delete(h.members, client)
	close(client.Send)
}

// Emit delivers an event to every member of a room. Delivery is
// best-effort, at most once: a client with a full buffer misses the
// message, only the latest position matters.
func (h *Hub) Emit(room, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("stream: marshal %s: %v", event, err)
		return
	}
	envelope, _ := json.Marshal(Envelope{Event: event, Data: data})

	h.deliverLocal(room, envelope)

	if h.redis != nil {
		msg, _ := json.Marshal(relayMessage{Origin: h.id, Payload: envelope})
		if err := h.redis.Publish(context.Background(), redisChannel(room), msg).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) deliverLocal(room string, payload []byte) {
	h.mu.RLock()
	clients := h.rooms[room]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// relayMessage carries the publishing hub's id so a node skips messages
// it already delivered locally.
type relayMessage struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "live:*:broadcast")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var relay relayMessage
		if err := json.Unmarshal([]byte(msg.Payload), &relay); err != nil {
			continue
		}
		if relay.Origin == h.id {
			continue
		}
		h.deliverLocal(roomFromChannel(msg.Channel), relay.Payload)
	}
}

func redisChannel(room string) string {
	return "live:" + room + ":broadcast"
}

func roomFromChannel(ch string) string {
	// live:{room}:broadcast
	const prefix = "live:"
	const suffix = ":broadcast"
	if !strings.HasPrefix(ch, prefix) || !strings.HasSuffix(ch, suffix) || len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
