package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
	"github.com/lenskeep/studio-api/internal/service/audit"
	"github.com/lenskeep/studio-api/internal/service/notification"
	"github.com/lenskeep/studio-api/internal/service/todo"
	"github.com/lenskeep/studio-api/pkg/logger"
	"github.com/lenskeep/studio-api/pkg/metrics"
	"github.com/lenskeep/studio-api/pkg/realtime"
)

const (
	// DefaultSideEffectTimeout bounds one event's side-effect chain so a
	// slow notification path cannot stall the rest of the tick.
	DefaultSideEffectTimeout = 15 * time.Second

	statusCacheTTL = 5 * time.Minute
)

type Service struct {
	events   repository.ClientEventRepository
	statuses repository.DeliveryStatusRepository
	projects repository.ProjectRepository
	users    repository.UserRepository

	notifier notification.Dispatcher
	tasks    todo.Creator
	auditor  *audit.Service
	realtime realtime.Publisher

	logger  *logger.Logger
	metrics *metrics.Metrics

	statusCache       *gocache.Cache
	now               func() time.Time
	sideEffectTimeout time.Duration
}

type Deps struct {
	Events   repository.ClientEventRepository
	Statuses repository.DeliveryStatusRepository
	Projects repository.ProjectRepository
	Users    repository.UserRepository
	Notifier notification.Dispatcher
	Tasks    todo.Creator
	Auditor  *audit.Service
	Realtime realtime.Publisher
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
	// SideEffectTimeout overrides the per-event bound; zero means default.
	SideEffectTimeout time.Duration
}

func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	timeout := deps.SideEffectTimeout
	if timeout <= 0 {
		timeout = DefaultSideEffectTimeout
	}
	return &Service{
		events:            deps.Events,
		statuses:          deps.Statuses,
		projects:          deps.Projects,
		users:             deps.Users,
		notifier:          deps.Notifier,
		tasks:             deps.Tasks,
		auditor:           deps.Auditor,
		realtime:          deps.Realtime,
		logger:            deps.Logger,
		metrics:           deps.Metrics,
		statusCache:       gocache.New(statusCacheTTL, statusCacheTTL),
		now:               now,
		sideEffectTimeout: timeout,
	}
}

// RunTick advances every eligible event by exactly one transition. Failures
// are isolated per event; only a missing catalog code aborts the whole tick,
// and even that is logged rather than fatal so a later tick can recover.
func (s *Service) RunTick(ctx context.Context) error {
	timer := prometheus.NewTimer(s.metrics.TickDuration)
	defer timer.ObserveDuration()

	now := s.now()

	scheduled, err := s.resolveStatus(ctx, model.DeliveryStatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to resolve status catalog: %w", err)
	}
	inProgress, err := s.resolveStatus(ctx, model.DeliveryStatusShootInProgress)
	if err != nil {
		return fmt.Errorf("failed to resolve status catalog: %w", err)
	}
	awaitingEditing, err := s.resolveStatus(ctx, model.DeliveryStatusAwaitingEditing)
	if err != nil {
		return fmt.Errorf("failed to resolve status catalog: %w", err)
	}

	// Two disjoint candidate sets, evaluated independently every tick. An
	// event eligible for both rules still moves only one step per tick
	// because each query filters on the source status.
	starts, err := s.events.ListShootStartCandidates(ctx, scheduled.ID, now)
	if err != nil {
		return fmt.Errorf("failed to list shoot start candidates: %w", err)
	}
	for _, ev := range starts {
		if err := s.applyTransition(ctx, ev, scheduled, inProgress, now); err != nil {
			s.metrics.TransitionsFailed.Inc()
			s.logger.Error(err, "failed to transition event", "event_id", ev.ID.String())
		}
	}

	ends, err := s.events.ListShootEndCandidates(ctx, inProgress.ID, now)
	if err != nil {
		return fmt.Errorf("failed to list shoot end candidates: %w", err)
	}
	for _, ev := range ends {
		if err := s.applyTransition(ctx, ev, inProgress, awaitingEditing, now); err != nil {
			s.metrics.TransitionsFailed.Inc()
			s.logger.Error(err, "failed to transition event", "event_id", ev.ID.String())
		}
	}

	return nil
}

// applyTransition claims the status change and runs the side-effect chain
// in the fixed order: persist, audit, realtime push, notifications, tasks.
func (s *Service) applyTransition(ctx context.Context, ev *model.ClientEvent, from, to *model.DeliveryStatus, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.sideEffectTimeout)
	defer cancel()

	// Re-check eligibility: the candidate query and this claim are separate
	// moments, and the window may have been edited in between.
	next, ok := DecideTransition(from.Code, now, ev.FromDatetime, ev.ToDatetime)
	if !ok || next != to.Code {
		s.logger.Debug("event no longer eligible for transition", "event_id", ev.ID.String())
		return nil
	}

	claimed, err := s.events.ClaimDeliveryStatus(ctx, ev.ID, from.ID, to.ID, model.SystemActorID)
	if err != nil {
		// The one failure that suppresses side effects: the state never
		// actually changed.
		return fmt.Errorf("failed to persist status change: %w", err)
	}
	if !claimed {
		s.logger.Debug("event already transitioned elsewhere", "event_id", ev.ID.String())
		return nil
	}
	s.metrics.TransitionsApplied.WithLabelValues(to.Code).Inc()
	s.logger.Info("event transitioned",
		"event_id", ev.ID.String(), "from", from.Code, "to", to.Code)

	if err := s.auditor.Record(ctx, model.SystemActorID, ev.TenantID,
		model.AuditActionStatusChange, model.AuditEntityClientEvent, ev.ID,
		&audit.RecordOptions{
			Changes: map[string]model.FieldChange{
				"delivery_status_id": {Old: from.ID, New: to.ID},
			},
			Metadata: map[string]interface{}{
				"project_id":    ev.ProjectID,
				"from_datetime": ev.FromDatetime,
				"to_datetime":   ev.ToDatetime,
				"trigger":       "scheduled-job",
			},
		}); err != nil {
		s.logger.Error(err, "failed to write audit entry", "event_id", ev.ID.String())
	}

	admins, err := s.users.ListActiveAdmins(ctx, ev.TenantID)
	if err != nil {
		s.logger.Error(err, "failed to list tenant admins", "tenant_id", ev.TenantID.String())
		admins = nil
	}

	update := &realtime.StatusUpdate{
		EventID:    ev.ID,
		StatusID:   to.ID,
		StatusCode: to.Code,
		OccurredAt: now,
	}
	for _, admin := range admins {
		msg := &realtime.Message{
			Kind:      realtime.KindStatusUpdate,
			Data:      update,
			Timestamp: now,
		}
		if err := s.realtime.Publish(ctx, admin.ID, msg); err != nil {
			s.metrics.RealtimePublishFailures.Inc()
			s.logger.Debug("realtime status push failed", "user_id", admin.ID.String())
		}
	}

	switch to.Code {
	case model.DeliveryStatusShootInProgress:
		s.notifyShootStarted(ctx, ev, admins, now)
	case model.DeliveryStatusAwaitingEditing:
		if ev.AlbumEditorID == nil {
			s.notifyEditorNeeded(ctx, ev, admins)
		}
	}

	return nil
}

func (s *Service) notifyShootStarted(ctx context.Context, ev *model.ClientEvent, admins []*model.User, now time.Time) {
	if len(admins) == 0 {
		return
	}
	_, err := s.notifier.Dispatch(ctx, &notification.DispatchInput{
		Recipients: userIDs(admins),
		TenantID:   ev.TenantID,
		Type:       model.NotificationTypeShootStarted,
		Title:      "Shoot started",
		Message:    fmt.Sprintf("%s is now in progress", ev.Name),
		Payload: &model.ShootStartedPayload{
			EventID:   ev.ID,
			ProjectID: ev.ProjectID,
			EventName: ev.Name,
			StartedAt: now,
		},
		ActionURL: fmt.Sprintf("/projects/%s/events/%s", ev.ProjectID, ev.ID),
	})
	if err != nil {
		s.logger.Error(err, "failed to notify shoot started", "event_id", ev.ID.String())
	}
}

func (s *Service) notifyEditorNeeded(ctx context.Context, ev *model.ClientEvent, admins []*model.User) {
	projectName := ""
	if project, err := s.projects.Get(ctx, ev.ProjectID); err != nil {
		s.logger.Error(err, "failed to load project for notification", "project_id", ev.ProjectID.String())
	} else {
		projectName = project.Name
	}

	if len(admins) > 0 {
		_, err := s.notifier.Dispatch(ctx, &notification.DispatchInput{
			Recipients: userIDs(admins),
			TenantID:   ev.TenantID,
			Type:       model.NotificationTypeEditorNeeded,
			Title:      "Editor needed",
			Message:    fmt.Sprintf("%s is awaiting editing and has no editor assigned", ev.Name),
			Payload: &model.EditorNeededPayload{
				EventID:     ev.ID,
				ProjectID:   ev.ProjectID,
				EventName:   ev.Name,
				ProjectName: projectName,
			},
			ActionURL: fmt.Sprintf("/projects/%s/events/%s", ev.ProjectID, ev.ID),
		})
		if err != nil {
			s.logger.Error(err, "failed to notify editor needed", "event_id", ev.ID.String())
		}
	}

	if _, err := s.tasks.EnsureEditorTasks(ctx, ev, projectName, admins); err != nil {
		s.logger.Error(err, "failed to create editor tasks", "event_id", ev.ID.String())
	}
}

func (s *Service) resolveStatus(ctx context.Context, code string) (*model.DeliveryStatus, error) {
	if cached, ok := s.statusCache.Get(code); ok {
		return cached.(*model.DeliveryStatus), nil
	}
	status, err := s.statuses.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.statusCache.SetDefault(code, status)
	return status, nil
}

func userIDs(users []*model.User) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
