// Package realtime pushes interview events to WebSocket clients and accepts candidate
// commands over the same connection.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-interview/backend/internal/logger"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
	sendBuffer   = 64
)

// RoomEmptyHandler is called when the last local client leaves an interview room.
type RoomEmptyHandler func(interviewID uuid.UUID)

// RedisPublisher publishes interview events for other server instances.
type RedisPublisher interface {
	PublishInterviewEvent(interviewID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to an interview channel and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeInterview(interviewID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains interview_id -> set of connections and fans events out to them.
// With Redis configured, events go through Redis so every instance delivers them exactly once.
type Hub struct {
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func()
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
	onEmpty  RoomEmptyHandler
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetRoomEmptyHandler sets the callback run when an interview loses its last local client.
func (h *Hub) SetRoomEmptyHandler(fn RoomEmptyHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEmpty = fn
}

// Register adds a client to an interview room. Starts the Redis subscription for the room if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.InterviewID] == nil {
		h.rooms[c.InterviewID] = make(map[string]*Client)
		if h.redisSub != nil {
			id := c.InterviewID
			cancel, err := h.redisSub.SubscribeInterview(id, func(event string, payload []byte) {
				h.Broadcast(id, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.String(logger.FieldInterview, id.String()), zap.Error(err))
			} else {
				h.subs[id] = cancel
			}
		}
	}
	h.rooms[c.InterviewID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined interview", zap.String("client_id", c.ID), zap.String(logger.FieldInterview, c.InterviewID.String()))
}

// Unregister removes a client. The Redis subscription is cancelled and the empty-room
// handler runs when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	empty := false
	if m, ok := h.rooms[c.InterviewID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			empty = true
			delete(h.rooms, c.InterviewID)
			if cancel, ok := h.subs[c.InterviewID]; ok {
				cancel()
				delete(h.subs, c.InterviewID)
			}
		}
	}
	onEmpty := h.onEmpty
	h.mu.Unlock()
	h.logger.Debug("client left interview", zap.String("client_id", c.ID), zap.String(logger.FieldInterview, c.InterviewID.String()))
	if empty && onEmpty != nil {
		onEmpty(c.InterviewID)
	}
}

// Broadcast sends a message to all local clients of an interview.
func (h *Hub) Broadcast(interviewID uuid.UUID, event string, payload interface{}) {
	data, ok := encode(payload)
	if !ok {
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[interviewID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client buffer full, dropping event", zap.String("client_id", c.ID), zap.String("event", event))
		}
	}
}

// Publish delivers an interview event to every connected client on every instance.
func (h *Hub) Publish(interviewID uuid.UUID, event string, payload any) {
	if h.redis == nil {
		h.Broadcast(interviewID, event, payload)
		return
	}
	data, ok := encode(payload)
	if !ok {
		return
	}
	if err := h.redis.PublishInterviewEvent(interviewID, event, data); err != nil {
		h.logger.Warn("redis publish failed, delivering locally", zap.String(logger.FieldInterview, interviewID.String()), zap.Error(err))
		h.Broadcast(interviewID, event, json.RawMessage(data))
	}
}

// ClientCount returns the number of local clients connected to an interview.
func (h *Hub) ClientCount(interviewID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[interviewID])
}

// SendToClient sends a message to a single client.
func (h *Hub) SendToClient(c *Client, event string, payload interface{}) {
	data, ok := encode(payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, live := h.rooms[c.InterviewID][c.ID]; !live {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}

func encode(payload interface{}) (json.RawMessage, bool) {
	switch v := payload.(type) {
	case nil:
		return nil, true
	case []byte:
		return v, true
	case json.RawMessage:
		return v, true
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}
