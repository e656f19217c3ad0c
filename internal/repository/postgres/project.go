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

type projectRepository struct {
	*BaseRepository
}

func NewProjectRepository(base *BaseRepository) repository.ProjectRepository {
	return &projectRepository{BaseRepository: base}
}

func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	query := `
		SELECT id, tenant_id, name, delivery_due_date, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	var project model.Project
	err := r.db.GetContext(ctx, &project, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project not found")
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

func (r *projectRepository) ListDeliveryDueIn(ctx context.Context, from, to time.Time) ([]*model.Project, error) {
	query := `
		SELECT id, tenant_id, name, delivery_due_date, created_at, updated_at
		FROM projects
		WHERE delivery_due_date IS NOT NULL
		AND delivery_due_date::date >= $1::date
		AND delivery_due_date::date <= $2::date
		ORDER BY delivery_due_date ASC
	`
	var projects []*model.Project
	err := r.db.SelectContext(ctx, &projects, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects with delivery due: %w", err)
	}
	return projects, nil
}
