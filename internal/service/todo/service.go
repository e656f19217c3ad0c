package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
	"github.com/lenskeep/studio-api/pkg/logger"
	"github.com/lenskeep/studio-api/pkg/metrics"
)

// Creator creates follow-up tasks for role-based groups of users,
// idempotently per (tenant, event, kind).
type Creator interface {
	EnsureEditorTasks(ctx context.Context, event *model.ClientEvent, projectName string, admins []*model.User) (int, error)
}

type Service struct {
	repo    repository.FollowUpTaskRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo repository.FollowUpTaskRepository, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// EnsureEditorTasks creates one "assign an editor" task per admin unless any
// open task for the same (tenant, event, kind) already exists. The check is
// all-or-nothing per event: a partial earlier run that created any task
// suppresses the whole batch on retry.
func (s *Service) EnsureEditorTasks(ctx context.Context, event *model.ClientEvent, projectName string, admins []*model.User) (int, error) {
	exists, err := s.repo.ExistsOpenForKey(ctx, event.TenantID, event.ID, model.TaskKindAssignEditor)
	if err != nil {
		return 0, fmt.Errorf("failed to check open tasks: %w", err)
	}
	if exists {
		s.logger.Debug("editor tasks already exist", "event_id", event.ID.String())
		return 0, nil
	}

	description := fmt.Sprintf("Assign an editor for %s (%s)", event.Name, projectName)
	redirectURL := fmt.Sprintf("/projects/%s/events/%s", event.ProjectID, event.ID)
	eventID := event.ID
	projectID := event.ProjectID
	now := s.now()

	created := 0
	for _, admin := range admins {
		task := &model.FollowUpTask{
			ID:            uuid.New(),
			UserID:        admin.ID,
			TenantID:      event.TenantID,
			Kind:          model.TaskKindAssignEditor,
			Description:   description,
			ProjectID:     &projectID,
			ClientEventID: &eventID,
			Priority:      model.TaskPriorityHigh,
			RedirectURL:   redirectURL,
			CreatedBy:     model.SystemActorID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Create(ctx, task); err != nil {
			s.logger.Error(err, "failed to create follow-up task",
				"event_id", event.ID.String(), "user_id", admin.ID.String())
			continue
		}
		s.metrics.TasksCreated.Inc()
		created++
	}

	return created, nil
}
