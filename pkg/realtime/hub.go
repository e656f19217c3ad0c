package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lenskeep/studio-api/pkg/logger"
)

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 64
)

// Hub tracks the connected sessions of each user. A user may hold any
// number of concurrent sessions; publishing addresses all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	logger  *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	if c == nil || c.userID == uuid.Nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	if c == nil || c.userID == uuid.Nil {
		return
	}
	h.mu.Lock()
	set := h.clients[c.userID]
	if set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	c.Close()
}

// Publish delivers the message to every connected session of the user.
// A user with no sessions is a logged no-op, not an error.
func (h *Hub) Publish(ctx context.Context, userID uuid.UUID, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime message: %w", err)
	}

	// Sends happen under the read lock so a session's queue can never be
	// closed mid-send; Unregister closes it under the write lock.
	h.mu.RLock()
	set := h.clients[userID]
	if len(set) == 0 {
		h.mu.RUnlock()
		h.logger.Debug("no connected sessions", "user_id", userID.String())
		return nil
	}
	var slow []*Client
	for c := range set {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Slow consumers get dropped rather than blocking the caller.
	for _, c := range slow {
		h.logger.Warn("dropping slow realtime session", "user_id", userID.String())
		h.Unregister(c)
	}
	return nil
}

// BestEffort marks the hub's no-guarantee delivery contract.
func (h *Hub) BestEffort() {}

// SessionCount reports how many sessions a user currently holds.
func (h *Hub) SessionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Client is one websocket session of a user.
type Client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte

	closeOnce sync.Once
}

func NewClient(userID uuid.UUID, conn *websocket.Conn) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
	}
}

func (c *Client) UserID() uuid.UUID {
	return c.userID
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// WritePump drains the send queue to the socket until it closes.
func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// ReadPump consumes (and discards) inbound frames so the connection's
// close/ping handlers run; the stream is push-only.
func (c *Client) ReadPump(hub *Hub) {
	if c.conn == nil {
		return
	}
	defer hub.Unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
