package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
	"github.com/lenskeep/studio-api/pkg/logger"
	"github.com/lenskeep/studio-api/pkg/metrics"
	"github.com/lenskeep/studio-api/pkg/realtime"
	"github.com/lenskeep/studio-api/pkg/validator"
)

// DedupWindow is the rolling span within which identical notifications
// for the same recipient collapse into one.
const DedupWindow = 10 * time.Second

// DispatchInput is one logical notification fanned out to its recipients.
type DispatchInput struct {
	Recipients []uuid.UUID            `validate:"required,min=1"`
	TenantID   uuid.UUID              `validate:"required"`
	Type       model.NotificationType `validate:"required"`
	Title      string                 `validate:"required"`
	Message    string                 `validate:"required"`
	Payload    interface{}            `validate:"-"`
	ActionURL  string                 `validate:"omitempty"`
}

// Dispatcher fans a logical notification out to recipient users with
// short-window de-duplication and a best-effort realtime push per recipient.
type Dispatcher interface {
	Dispatch(ctx context.Context, in *DispatchInput) ([]*model.Notification, error)
}

// Service is the full notification surface: dispatch plus the read-side
// operations the HTTP layer exposes.
type Service interface {
	Dispatcher
	List(ctx context.Context, userID, tenantID uuid.UUID, unreadOnly bool, limit, offset int) ([]*model.Notification, int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID, tenantID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	PurgeReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type service struct {
	repo      repository.NotificationRepository
	publisher realtime.Publisher
	logger    *logger.Logger
	metrics   *metrics.Metrics
	validate  validator.Validator
	now       func() time.Time
}

func NewService(repo repository.NotificationRepository, publisher realtime.Publisher, logger *logger.Logger, metrics *metrics.Metrics) Service {
	return &service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// NewServiceWithClock injects the clock, for tests.
func NewServiceWithClock(repo repository.NotificationRepository, publisher realtime.Publisher, logger *logger.Logger, metrics *metrics.Metrics, now func() time.Time) Service {
	svc := NewService(repo, publisher, logger, metrics).(*service)
	svc.now = now
	return svc
}

// Dispatch persists one notification per recipient, skipping recipients for
// whom an identical notification exists inside the dedup window, and returns
// only the notifications actually created.
func (s *service) Dispatch(ctx context.Context, in *DispatchInput) ([]*model.Notification, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, fmt.Errorf("invalid dispatch input: %w", err)
	}

	now := s.now()
	since := now.Add(-DedupWindow)
	created := make([]*model.Notification, 0, len(in.Recipients))

	for _, userID := range in.Recipients {
		exists, err := s.repo.ExistsRecent(ctx, userID, in.TenantID, in.Type, in.Title, in.Message, since)
		if err != nil {
			s.logger.Error(err, "failed to check notification dedup window", "user_id", userID.String())
			continue
		}
		if exists {
			s.metrics.NotificationsDeduped.Inc()
			continue
		}

		n := &model.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			TenantID:  in.TenantID,
			Type:      in.Type,
			Title:     in.Title,
			Message:   in.Message,
			ActionURL: in.ActionURL,
			CreatedAt: now,
		}
		if err := n.SetPayload(in.Payload); err != nil {
			return created, err
		}

		if err := s.repo.Create(ctx, n); err != nil {
			s.logger.Error(err, "failed to persist notification", "user_id", userID.String())
			continue
		}
		s.metrics.NotificationsCreated.Inc()
		created = append(created, n)

		// Fire-and-forget realtime push; persistence already succeeded.
		msg := &realtime.Message{
			Kind:      realtime.KindNotification,
			Data:      n,
			Timestamp: now,
		}
		if err := s.publisher.Publish(ctx, userID, msg); err != nil {
			s.metrics.RealtimePublishFailures.Inc()
			s.logger.Debug("realtime push failed", "user_id", userID.String(), "error", err.Error())
		}
	}

	return created, nil
}

func (s *service) List(ctx context.Context, userID, tenantID uuid.UUID, unreadOnly bool, limit, offset int) ([]*model.Notification, int, error) {
	return s.repo.List(ctx, userID, tenantID, unreadOnly, limit, offset)
}

func (s *service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID, s.now())
}

func (s *service) MarkAllRead(ctx context.Context, userID, tenantID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID, tenantID, s.now())
}

func (s *service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.Delete(ctx, id, userID)
}

func (s *service) PurgeReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteReadBefore(ctx, cutoff)
}
