package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeShootStarted    NotificationType = "shoot_started"
	NotificationTypeEditorNeeded    NotificationType = "editor_needed"
	NotificationTypeDueDateReminder NotificationType = "due_date_reminder"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	TenantID  uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Payload   json.RawMessage  `json:"payload,omitempty" db:"payload"`
	ActionURL string           `json:"action_url,omitempty" db:"action_url"`
	Read      bool             `json:"read" db:"read"`
	ReadAt    *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// Typed payload shapes per notification type. Unknown types fall back to
// DecodeRawPayload so older clients keep working against newer payloads.

type ShootStartedPayload struct {
	EventID   uuid.UUID `json:"event_id"`
	ProjectID uuid.UUID `json:"project_id"`
	EventName string    `json:"event_name"`
	StartedAt time.Time `json:"started_at"`
}

type EditorNeededPayload struct {
	EventID     uuid.UUID `json:"event_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	EventName   string    `json:"event_name"`
	ProjectName string    `json:"project_name"`
}

type DueDateReminderPayload struct {
	Kind     string    `json:"kind"` // "editing", "album_design" or "project_delivery"
	EntityID uuid.UUID `json:"entity_id"`
	DueDate  time.Time `json:"due_date"`
	DaysLeft int       `json:"days_left"`
}

func (n *Notification) SetPayload(v interface{}) error {
	if v == nil {
		n.Payload = nil
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	n.Payload = b
	return nil
}

// DecodePayload unmarshals the payload into the shape registered for the
// notification's type. Callers receive a map for types without a known shape.
func (n *Notification) DecodePayload() (interface{}, error) {
	if len(n.Payload) == 0 {
		return nil, nil
	}
	var dst interface{}
	switch n.Type {
	case NotificationTypeShootStarted:
		dst = &ShootStartedPayload{}
	case NotificationTypeEditorNeeded:
		dst = &EditorNeededPayload{}
	case NotificationTypeDueDateReminder:
		dst = &DueDateReminderPayload{}
	default:
		return n.DecodeRawPayload()
	}
	if err := json.Unmarshal(n.Payload, dst); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", n.Type, err)
	}
	return dst, nil
}

func (n *Notification) DecodeRawPayload() (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if err := json.Unmarshal(n.Payload, &m); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return m, nil
}
