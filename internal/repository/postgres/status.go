package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
)

type deliveryStatusRepository struct {
	*BaseRepository
}

func NewDeliveryStatusRepository(base *BaseRepository) repository.DeliveryStatusRepository {
	return &deliveryStatusRepository{BaseRepository: base}
}

func (r *deliveryStatusRepository) GetByCode(ctx context.Context, code string) (*model.DeliveryStatus, error) {
	query := `
		SELECT id, code, label, sort_order, created_at
		FROM event_delivery_statuses
		WHERE code = $1
	`
	var status model.DeliveryStatus
	err := r.db.GetContext(ctx, &status, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A missing catalog code is a configuration error, not an
			// empty result; callers must fail loudly.
			return nil, fmt.Errorf("delivery status %q missing from catalog", code)
		}
		return nil, fmt.Errorf("failed to get delivery status: %w", err)
	}
	return &status, nil
}

func (r *deliveryStatusRepository) List(ctx context.Context) ([]*model.DeliveryStatus, error) {
	query := `
		SELECT id, code, label, sort_order, created_at
		FROM event_delivery_statuses
		ORDER BY sort_order ASC
	`
	var statuses []*model.DeliveryStatus
	err := r.db.SelectContext(ctx, &statuses, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery statuses: %w", err)
	}
	return statuses, nil
}
