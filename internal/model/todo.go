package model

import (
	"time"

	"github.com/google/uuid"
)

// Task kinds double as the idempotency discriminator: at most one open set of
// tasks exists per (tenant, client event, kind).
const (
	TaskKindAssignEditor = "assign_editor"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

type FollowUpTask struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	TenantID      uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Kind          string     `json:"kind" db:"kind"`
	Description   string     `json:"description" db:"description"`
	ProjectID     *uuid.UUID `json:"project_id,omitempty" db:"project_id"`
	ClientEventID *uuid.UUID `json:"client_event_id,omitempty" db:"client_event_id"`
	Priority      string     `json:"priority" db:"priority"`
	RedirectURL   string     `json:"redirect_url" db:"redirect_url"`
	Done          bool       `json:"done" db:"done"`
	CreatedBy     uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
