package model

import (
	"time"

	"github.com/google/uuid"
)

// Project carries only the fields the lifecycle engine reads; the full
// document lives with the project CRUD layer.
type Project struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	TenantID        uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Name            string     `json:"name" db:"name"`
	DeliveryDueDate *time.Time `json:"delivery_due_date" db:"delivery_due_date"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
