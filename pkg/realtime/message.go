package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message kinds carried over the per-user stream.
const (
	KindNotification = "notification"
	KindStatusUpdate = "status_update"
)

// Message is one payload pushed to a user's connected sessions.
type Message struct {
	Kind      string      `json:"kind"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// StatusUpdate tells connected clients an event moved to a new delivery
// status; the status is already persisted when this arrives.
type StatusUpdate struct {
	EventID    uuid.UUID `json:"event_id"`
	StatusID   uuid.UUID `json:"status_id"`
	StatusCode string    `json:"status_code"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers a message to every currently-connected session of a
// user. Implementations make no delivery guarantee: no queuing, no replay,
// no retry. BestEffort is a marker making that contract explicit so callers
// do not layer retry logic on top.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg *Message) error
	BestEffort()
}

// envelope is the wire format between publisher and hub bridge.
type envelope struct {
	UserID  uuid.UUID `json:"user_id"`
	Message *Message  `json:"message"`
}
