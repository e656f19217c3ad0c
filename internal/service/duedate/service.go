package duedate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/email"
	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
	"github.com/lenskeep/studio-api/internal/service/notification"
	"github.com/lenskeep/studio-api/pkg/logger"
	"github.com/lenskeep/studio-api/pkg/metrics"
)

const (
	MatchModeExact  = "exact"
	MatchModeWindow = "window"
)

// Config controls the reminder threshold and how it matches.
type Config struct {
	// ThresholdDays is N in "notify when the deadline is N days away".
	ThresholdDays int
	// MatchMode "exact" fires only when the deadline is exactly N days out,
	// so a missed daily run permanently skips that reminder. "window" fires
	// for every deadline between tomorrow and N days out instead.
	MatchMode string
}

// Service scans the three deadline fields once per daily tick and notifies;
// it reads and dispatches, it never mutates lifecycle state.
type Service struct {
	events   repository.ClientEventRepository
	projects repository.ProjectRepository
	users    repository.UserRepository
	notifier notification.Dispatcher
	mailer   email.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics
	cfg      Config
	now      func() time.Time
}

type Deps struct {
	Events   repository.ClientEventRepository
	Projects repository.ProjectRepository
	Users    repository.UserRepository
	Notifier notification.Dispatcher
	Mailer   email.Service
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Config   Config
	Now      func() time.Time
}

func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	cfg := deps.Config
	if cfg.ThresholdDays <= 0 {
		cfg.ThresholdDays = 2
	}
	if cfg.MatchMode == "" {
		cfg.MatchMode = MatchModeExact
	}
	return &Service{
		events:   deps.Events,
		projects: deps.Projects,
		users:    deps.Users,
		notifier: deps.Notifier,
		mailer:   deps.Mailer,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		cfg:      cfg,
		now:      now,
	}
}

// RunCheck evaluates all three deadline kinds. Failures are isolated per
// entity; one broken reminder never blocks the rest of the scan.
func (s *Service) RunCheck(ctx context.Context) error {
	now := s.now()
	from, to := s.matchRange(now)

	if err := s.checkEditingDue(ctx, from, to, now); err != nil {
		s.logger.Error(err, "editing due-date scan failed")
	}
	if err := s.checkAlbumDesignDue(ctx, from, to, now); err != nil {
		s.logger.Error(err, "album design due-date scan failed")
	}
	if err := s.checkProjectDeliveryDue(ctx, from, to, now); err != nil {
		s.logger.Error(err, "project delivery due-date scan failed")
	}
	return nil
}

func (s *Service) matchRange(now time.Time) (time.Time, time.Time) {
	target := now.AddDate(0, 0, s.cfg.ThresholdDays)
	if s.cfg.MatchMode == MatchModeWindow {
		return now.AddDate(0, 0, 1), target
	}
	return target, target
}

func (s *Service) checkEditingDue(ctx context.Context, from, to, now time.Time) error {
	events, err := s.events.ListWithEditingDueIn(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to list events with editing due: %w", err)
	}
	for _, ev := range events {
		s.remind(ctx, reminder{
			tenantID:   ev.TenantID,
			kind:       "editing",
			entityID:   ev.ID,
			subject:    fmt.Sprintf("Editing for %s", ev.Name),
			dueDate:    *ev.EditingDueDate,
			actionURL:  fmt.Sprintf("/projects/%s/events/%s", ev.ProjectID, ev.ID),
			assigneeID: ev.AlbumEditorID,
		}, now)
	}
	return nil
}

func (s *Service) checkAlbumDesignDue(ctx context.Context, from, to, now time.Time) error {
	events, err := s.events.ListWithAlbumDesignDueIn(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to list events with album design due: %w", err)
	}
	for _, ev := range events {
		s.remind(ctx, reminder{
			tenantID:   ev.TenantID,
			kind:       "album_design",
			entityID:   ev.ID,
			subject:    fmt.Sprintf("Album design for %s", ev.Name),
			dueDate:    *ev.AlbumDesignDueDate,
			actionURL:  fmt.Sprintf("/projects/%s/events/%s", ev.ProjectID, ev.ID),
			assigneeID: ev.AlbumDesignerID,
		}, now)
	}
	return nil
}

func (s *Service) checkProjectDeliveryDue(ctx context.Context, from, to, now time.Time) error {
	projects, err := s.projects.ListDeliveryDueIn(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to list projects with delivery due: %w", err)
	}
	for _, p := range projects {
		s.remind(ctx, reminder{
			tenantID:  p.TenantID,
			kind:      "project_delivery",
			entityID:  p.ID,
			subject:   fmt.Sprintf("Delivery for %s", p.Name),
			dueDate:   *p.DeliveryDueDate,
			actionURL: fmt.Sprintf("/projects/%s", p.ID),
		}, now)
	}
	return nil
}

type reminder struct {
	tenantID   uuid.UUID
	kind       string
	entityID   uuid.UUID
	subject    string
	dueDate    time.Time
	actionURL  string
	assigneeID *uuid.UUID
}

func (s *Service) remind(ctx context.Context, r reminder, now time.Time) {
	daysLeft := daysBetween(now, r.dueDate)
	recipients := make([]uuid.UUID, 0, 4)

	admins, err := s.users.ListActiveAdmins(ctx, r.tenantID)
	if err != nil {
		s.logger.Error(err, "failed to list tenant admins", "tenant_id", r.tenantID.String())
	}
	for _, admin := range admins {
		recipients = append(recipients, admin.ID)
	}

	// The assigned individual gets the reminder too, when a login identity
	// is linked to the team member.
	var assignee *model.User
	if r.assigneeID != nil {
		assignee, err = s.users.GetByTeamMemberID(ctx, *r.assigneeID)
		if err != nil {
			s.logger.Error(err, "failed to look up assignee", "team_member_id", r.assigneeID.String())
		} else if assignee != nil && !containsID(recipients, assignee.ID) {
			recipients = append(recipients, assignee.ID)
		}
	}

	if len(recipients) == 0 {
		return
	}

	created, err := s.notifier.Dispatch(ctx, &notification.DispatchInput{
		Recipients: recipients,
		TenantID:   r.tenantID,
		Type:       model.NotificationTypeDueDateReminder,
		Title:      fmt.Sprintf("%s due in %d days", r.subject, daysLeft),
		Message:    fmt.Sprintf("%s is due on %s", r.subject, r.dueDate.Format("2 Jan 2006")),
		Payload: &model.DueDateReminderPayload{
			Kind:     r.kind,
			EntityID: r.entityID,
			DueDate:  r.dueDate,
			DaysLeft: daysLeft,
		},
		ActionURL: r.actionURL,
	})
	if err != nil {
		s.logger.Error(err, "failed to dispatch due-date reminder", "entity_id", r.entityID.String())
		return
	}
	s.metrics.DueDateRemindersSent.Add(float64(len(created)))

	if assignee != nil && assignee.Email != "" && s.mailer != nil {
		if err := s.mailer.SendDueDateReminder(ctx, assignee.Email, assignee.Name, r.subject, r.dueDate, r.actionURL); err != nil {
			s.logger.Error(err, "failed to email assignee", "user_id", assignee.ID.String())
		}
	}
}

func daysBetween(now, due time.Time) int {
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(dueDay.Sub(nowDay) / (24 * time.Hour))
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
