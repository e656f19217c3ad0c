package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
)

const clientEventColumns = `
	id, tenant_id, project_id, event_type_id, name,
	from_datetime, to_datetime, delivery_status_id,
	editing_due_date, album_design_due_date,
	album_editor_id, album_designer_id,
	updated_by, created_at, updated_at
`

type clientEventRepository struct {
	*BaseRepository
}

func NewClientEventRepository(base *BaseRepository) repository.ClientEventRepository {
	return &clientEventRepository{BaseRepository: base}
}

func (r *clientEventRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClientEvent, error) {
	query := `
		SELECT ` + clientEventColumns + `
		FROM client_events
		WHERE id = $1
	`
	var event model.ClientEvent
	err := r.db.GetContext(ctx, &event, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("client event not found")
		}
		return nil, fmt.Errorf("failed to get client event: %w", err)
	}
	return &event, nil
}

func (r *clientEventRepository) ListShootStartCandidates(ctx context.Context, statusID uuid.UUID, now time.Time) ([]*model.ClientEvent, error) {
	query := `
		SELECT ` + clientEventColumns + `
		FROM client_events
		WHERE delivery_status_id = $1
		AND from_datetime <= $2
		AND to_datetime > $2
		ORDER BY from_datetime ASC
	`
	var events []*model.ClientEvent
	err := r.db.SelectContext(ctx, &events, query, statusID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list shoot start candidates: %w", err)
	}
	return events, nil
}

func (r *clientEventRepository) ListShootEndCandidates(ctx context.Context, statusID uuid.UUID, now time.Time) ([]*model.ClientEvent, error) {
	query := `
		SELECT ` + clientEventColumns + `
		FROM client_events
		WHERE delivery_status_id = $1
		AND to_datetime <= $2
		ORDER BY to_datetime ASC
	`
	var events []*model.ClientEvent
	err := r.db.SelectContext(ctx, &events, query, statusID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list shoot end candidates: %w", err)
	}
	return events, nil
}

func (r *clientEventRepository) ClaimDeliveryStatus(ctx context.Context, eventID, fromStatusID, toStatusID, actorID uuid.UUID) (bool, error) {
	// Conditional update: only succeeds while the row is still in the
	// expected source status, so two overlapping ticks cannot both claim
	// the same transition.
	query := `
		UPDATE client_events
		SET delivery_status_id = $1, updated_by = $2, updated_at = $3
		WHERE id = $4
		AND delivery_status_id = $5
	`
	result, err := r.db.ExecContext(ctx, query, toStatusID, actorID, time.Now(), eventID, fromStatusID)
	if err != nil {
		return false, fmt.Errorf("failed to update delivery status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *clientEventRepository) ListWithEditingDueIn(ctx context.Context, from, to time.Time) ([]*model.ClientEvent, error) {
	query := `
		SELECT ` + clientEventColumns + `
		FROM client_events
		WHERE editing_due_date IS NOT NULL
		AND editing_due_date::date >= $1::date
		AND editing_due_date::date <= $2::date
		ORDER BY editing_due_date ASC
	`
	var events []*model.ClientEvent
	err := r.db.SelectContext(ctx, &events, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list events with editing due: %w", err)
	}
	return events, nil
}

func (r *clientEventRepository) ListWithAlbumDesignDueIn(ctx context.Context, from, to time.Time) ([]*model.ClientEvent, error) {
	query := `
		SELECT ` + clientEventColumns + `
		FROM client_events
		WHERE album_design_due_date IS NOT NULL
		AND album_design_due_date::date >= $1::date
		AND album_design_due_date::date <= $2::date
		ORDER BY album_design_due_date ASC
	`
	var events []*model.ClientEvent
	err := r.db.SelectContext(ctx, &events, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list events with album design due: %w", err)
	}
	return events, nil
}
