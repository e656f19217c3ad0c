package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
)

type followUpTaskRepository struct {
	*BaseRepository
}

func NewFollowUpTaskRepository(base *BaseRepository) repository.FollowUpTaskRepository {
	return &followUpTaskRepository{BaseRepository: base}
}

func (r *followUpTaskRepository) Create(ctx context.Context, task *model.FollowUpTask) error {
	query := `
		INSERT INTO follow_up_tasks (
			id, user_id, tenant_id, kind, description,
			project_id, client_event_id, priority, redirect_url,
			done, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.TenantID,
		task.Kind,
		task.Description,
		task.ProjectID,
		task.ClientEventID,
		task.Priority,
		task.RedirectURL,
		task.Done,
		task.CreatedBy,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create follow-up task: %w", err)
	}
	return nil
}

func (r *followUpTaskRepository) ExistsOpenForKey(ctx context.Context, tenantID, clientEventID uuid.UUID, kind string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM follow_up_tasks
			WHERE tenant_id = $1
			AND client_event_id = $2
			AND kind = $3
			AND done = false
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, tenantID, clientEventID, kind)
	if err != nil {
		return false, fmt.Errorf("failed to check open tasks: %w", err)
	}
	return exists, nil
}
