package model

import (
	"time"

	"github.com/google/uuid"
)

// Canonical delivery status codes. The engine only drives the first three;
// everything past AWAITING_EDITING is advanced by people, not the scheduler.
const (
	DeliveryStatusScheduled         = "SCHEDULED"
	DeliveryStatusShootInProgress   = "SHOOT_IN_PROGRESS"
	DeliveryStatusAwaitingEditing   = "AWAITING_EDITING"
	DeliveryStatusEditingInProgress = "EDITING_IN_PROGRESS"
	DeliveryStatusAwaitingAlbum     = "AWAITING_ALBUM_DESIGN"
	DeliveryStatusAlbumInProgress   = "ALBUM_DESIGN_IN_PROGRESS"
	DeliveryStatusDelivered         = "DELIVERED"
)

// SystemActorID is recorded as the updating actor when the scheduler,
// rather than a person, mutates an event.
var SystemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// DeliveryStatus is one row of the tenant-global status catalog.
type DeliveryStatus struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Label     string    `json:"label" db:"label"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ClientEvent is a single scheduled shoot belonging to a project.
type ClientEvent struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	TenantID           uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	ProjectID          uuid.UUID  `json:"project_id" db:"project_id"`
	EventTypeID        uuid.UUID  `json:"event_type_id" db:"event_type_id"`
	Name               string     `json:"name" db:"name"`
	FromDatetime       time.Time  `json:"from_datetime" db:"from_datetime"`
	ToDatetime         time.Time  `json:"to_datetime" db:"to_datetime"`
	DeliveryStatusID   uuid.UUID  `json:"delivery_status_id" db:"delivery_status_id"`
	EditingDueDate     *time.Time `json:"editing_due_date" db:"editing_due_date"`
	AlbumDesignDueDate *time.Time `json:"album_design_due_date" db:"album_design_due_date"`
	AlbumEditorID      *uuid.UUID `json:"album_editor_id" db:"album_editor_id"`
	AlbumDesignerID    *uuid.UUID `json:"album_designer_id" db:"album_designer_id"`
	UpdatedBy          uuid.UUID  `json:"updated_by" db:"updated_by"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}
