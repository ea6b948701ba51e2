package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const queueSize = 256

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID uuid.UUID
	Admin  bool
	Conn   Conn

	writeMu sync.Mutex
}

// WriteJSON is the only way to write to a registered client. The underlying
// connection allows one writer at a time.
func (c *Client) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Event is pushed to connected clients when a thread changes.
type Event struct {
	Type     string      `json:"type"`
	ThreadID uuid.UUID   `json:"thread_id"`
	Payload  interface{} `json:"payload,omitempty"`
}

// Delivery addresses an event to one user, to every connected admin, or both.
type Delivery struct {
	UserID   uuid.UUID
	ToAdmins bool
	Event    Event
}

type Hub struct {
	mu        sync.RWMutex
	clients   map[uuid.UUID]map[*Client]struct{}
	broadcast chan Delivery
	logger    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:   make(map[uuid.UUID]map[*Client]struct{}),
		broadcast: make(chan Delivery, queueSize),
		logger:    logger,
	}
}

// Register adds one connection. A user may hold several, one per tab.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[c.UserID] = conns
	}
	conns[c] = struct{}{}
	h.logger.Debug("Client registered", zap.String("user_id", c.UserID.String()), zap.Int("connections", len(conns)))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
	h.logger.Debug("Client unregistered", zap.String("user_id", c.UserID.String()))
}

// Publish queues d without blocking. Events are dropped when the queue is full.
func (h *Hub) Publish(d Delivery) {
	select {
	case h.broadcast <- d:
	default:
		h.logger.Warn("Websocket queue full, dropping event", zap.String("type", d.Event.Type))
	}
}

// Run delivers queued events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) deliver(d Delivery) {
	h.mu.RLock()
	targets := make([]*Client, 0, 1)
	for id, conns := range h.clients {
		for c := range conns {
			if (d.UserID != uuid.Nil && id == d.UserID) || (d.ToAdmins && c.Admin) {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.WriteJSON(d.Event); err != nil {
			h.logger.Warn("Websocket write failed, dropping client",
				zap.String("user_id", c.UserID.String()),
				zap.Error(err),
			)
			_ = c.Conn.Close()
			h.Unregister(c)
		}
	}
}

func (h *Hub) Connected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
