package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/service/audit"
	"github.com/lenskeep/studio-api/internal/service/notification"
	"github.com/lenskeep/studio-api/pkg/logger"
	"github.com/lenskeep/studio-api/pkg/metrics"
	"github.com/lenskeep/studio-api/pkg/realtime"
)

type fakeEventRepo struct {
	mu          sync.Mutex
	events      map[uuid.UUID]*model.ClientEvent
	claimErr    error
	rejectClaim bool
	claims      int
}

func newFakeEventRepo(events ...*model.ClientEvent) *fakeEventRepo {
	r := &fakeEventRepo{events: make(map[uuid.UUID]*model.ClientEvent)}
	for _, ev := range events {
		r.events[ev.ID] = ev
	}
	return r
}

func (r *fakeEventRepo) Get(_ context.Context, id uuid.UUID) (*model.ClientEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return ev, nil
}

func (r *fakeEventRepo) ListShootStartCandidates(_ context.Context, statusID uuid.UUID, now time.Time) ([]*model.ClientEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ClientEvent
	for _, ev := range r.events {
		if ev.DeliveryStatusID == statusID && !now.Before(ev.FromDatetime) && now.Before(ev.ToDatetime) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ListShootEndCandidates(_ context.Context, statusID uuid.UUID, now time.Time) ([]*model.ClientEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ClientEvent
	for _, ev := range r.events {
		if ev.DeliveryStatusID == statusID && !now.Before(ev.ToDatetime) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ClaimDeliveryStatus(_ context.Context, eventID, fromStatusID, toStatusID, _ uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims++
	if r.claimErr != nil {
		return false, r.claimErr
	}
	if r.rejectClaim {
		return false, nil
	}
	ev, ok := r.events[eventID]
	if !ok || ev.DeliveryStatusID != fromStatusID {
		return false, nil
	}
	ev.DeliveryStatusID = toStatusID
	return true, nil
}

func (r *fakeEventRepo) ListWithEditingDueIn(context.Context, time.Time, time.Time) ([]*model.ClientEvent, error) {
	return nil, nil
}

func (r *fakeEventRepo) ListWithAlbumDesignDueIn(context.Context, time.Time, time.Time) ([]*model.ClientEvent, error) {
	return nil, nil
}

type fakeStatusRepo struct {
	byCode map[string]*model.DeliveryStatus
}

func newFakeStatusRepo(codes ...string) *fakeStatusRepo {
	r := &fakeStatusRepo{byCode: make(map[string]*model.DeliveryStatus)}
	for i, code := range codes {
		r.byCode[code] = &model.DeliveryStatus{ID: uuid.New(), Code: code, SortOrder: i}
	}
	return r
}

func (r *fakeStatusRepo) GetByCode(_ context.Context, code string) (*model.DeliveryStatus, error) {
	status, ok := r.byCode[code]
	if !ok {
		return nil, errors.New("unknown delivery status code: " + code)
	}
	return status, nil
}

func (r *fakeStatusRepo) List(context.Context) ([]*model.DeliveryStatus, error) {
	var out []*model.DeliveryStatus
	for _, s := range r.byCode {
		out = append(out, s)
	}
	return out, nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	inputs []*notification.DispatchInput
	err    error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, in *notification.DispatchInput) ([]*model.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	d.inputs = append(d.inputs, in)
	created := make([]*model.Notification, 0, len(in.Recipients))
	for _, userID := range in.Recipients {
		created = append(created, &model.Notification{
			ID:       uuid.New(),
			UserID:   userID,
			TenantID: in.TenantID,
			Type:     in.Type,
			Title:    in.Title,
			Message:  in.Message,
		})
	}
	return created, nil
}

func (d *fakeDispatcher) byType(typ model.NotificationType) []*notification.DispatchInput {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*notification.DispatchInput
	for _, in := range d.inputs {
		if in.Type == typ {
			out = append(out, in)
		}
	}
	return out
}

type taskCall struct {
	event       *model.ClientEvent
	projectName string
	admins      []*model.User
}

type fakeTaskCreator struct {
	calls []taskCall
}

func (c *fakeTaskCreator) EnsureEditorTasks(_ context.Context, event *model.ClientEvent, projectName string, admins []*model.User) (int, error) {
	c.calls = append(c.calls, taskCall{event: event, projectName: projectName, admins: admins})
	return len(admins), nil
}

type fakeAuditRepo struct {
	entries []*model.AuditLog
	err     error
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) Cleanup(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type push struct {
	userID uuid.UUID
	msg    *realtime.Message
}

type fakePublisher struct {
	mu     sync.Mutex
	pushes []push
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, userID uuid.UUID, msg *realtime.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.pushes = append(p.pushes, push{userID: userID, msg: msg})
	return nil
}

func (p *fakePublisher) BestEffort() {}

type fakeUserRepo struct {
	admins    []*model.User
	byTeamID  map[uuid.UUID]*model.User
	adminsErr error
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.admins {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeUserRepo) ListActiveAdmins(context.Context, uuid.UUID) ([]*model.User, error) {
	if r.adminsErr != nil {
		return nil, r.adminsErr
	}
	return r.admins, nil
}

func (r *fakeUserRepo) GetByTeamMemberID(_ context.Context, teamMemberID uuid.UUID) (*model.User, error) {
	return r.byTeamID[teamMemberID], nil
}

type fakeProjectRepo struct {
	projects map[uuid.UUID]*model.Project
}

func (r *fakeProjectRepo) Get(_ context.Context, id uuid.UUID) (*model.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (r *fakeProjectRepo) ListDeliveryDueIn(context.Context, time.Time, time.Time) ([]*model.Project, error) {
	return nil, nil
}

type fixture struct {
	service   *Service
	events    *fakeEventRepo
	statuses  *fakeStatusRepo
	dispatch  *fakeDispatcher
	tasks     *fakeTaskCreator
	auditRepo *fakeAuditRepo
	publisher *fakePublisher
	users     *fakeUserRepo
	metrics   *metrics.Metrics
	now       time.Time
}

func newFixture(t *testing.T, events ...*model.ClientEvent) *fixture {
	t.Helper()
	f := &fixture{
		events: newFakeEventRepo(events...),
		statuses: newFakeStatusRepo(
			model.DeliveryStatusScheduled,
			model.DeliveryStatusShootInProgress,
			model.DeliveryStatusAwaitingEditing,
		),
		dispatch:  &fakeDispatcher{},
		tasks:     &fakeTaskCreator{},
		auditRepo: &fakeAuditRepo{},
		publisher: &fakePublisher{},
		users: &fakeUserRepo{admins: []*model.User{
			{ID: uuid.New(), Role: model.RoleAdmin, Active: true},
			{ID: uuid.New(), Role: model.RoleAdmin, Active: true},
		}},
		metrics: metrics.New("test"),
		now:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewService(Deps{
		Events:   f.events,
		Statuses: f.statuses,
		Projects: &fakeProjectRepo{projects: map[uuid.UUID]*model.Project{}},
		Users:    f.users,
		Notifier: f.dispatch,
		Tasks:    f.tasks,
		Auditor:  audit.NewService(f.auditRepo),
		Realtime: f.publisher,
		Logger:   logger.FromZerolog(zerolog.Nop()),
		Metrics:  f.metrics,
		Now:      func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) statusID(code string) uuid.UUID {
	return f.statuses.byCode[code].ID
}

func scheduledEvent(statusID uuid.UUID, from, to time.Time) *model.ClientEvent {
	return &model.ClientEvent{
		ID:               uuid.New(),
		TenantID:         uuid.New(),
		ProjectID:        uuid.New(),
		Name:             "Wedding shoot",
		FromDatetime:     from,
		ToDatetime:       to,
		DeliveryStatusID: statusID,
	}
}

func TestRunTickShootStart(t *testing.T) {
	f := newFixture(t)
	ev := scheduledEvent(f.statusID(model.DeliveryStatusScheduled),
		f.now.Add(-time.Hour), f.now.Add(time.Hour))
	f.events.events[ev.ID] = ev

	require.NoError(t, f.service.RunTick(context.Background()))

	assert.Equal(t, f.statusID(model.DeliveryStatusShootInProgress), ev.DeliveryStatusID)

	require.Len(t, f.auditRepo.entries, 1)
	entry := f.auditRepo.entries[0]
	assert.Equal(t, model.SystemActorID, entry.ActorID)
	assert.Equal(t, model.AuditActionStatusChange, entry.Action)
	assert.Equal(t, ev.ID, entry.EntityID)

	// One realtime status push per admin.
	assert.Len(t, f.publisher.pushes, 2)
	for _, p := range f.publisher.pushes {
		assert.Equal(t, realtime.KindStatusUpdate, p.msg.Kind)
	}

	started := f.dispatch.byType(model.NotificationTypeShootStarted)
	require.Len(t, started, 1)
	assert.Len(t, started[0].Recipients, 2)
	assert.Equal(t, ev.TenantID, started[0].TenantID)
	assert.Contains(t, started[0].Message, "Wedding shoot")

	assert.Empty(t, f.tasks.calls)
}

func TestRunTickShootEndWithoutEditor(t *testing.T) {
	f := newFixture(t)
	ev := scheduledEvent(f.statusID(model.DeliveryStatusShootInProgress),
		f.now.Add(-3*time.Hour), f.now.Add(-time.Hour))
	f.events.events[ev.ID] = ev
	projects := f.service.projects.(*fakeProjectRepo)
	projects.projects[ev.ProjectID] = &model.Project{ID: ev.ProjectID, Name: "Spring wedding"}

	require.NoError(t, f.service.RunTick(context.Background()))

	assert.Equal(t, f.statusID(model.DeliveryStatusAwaitingEditing), ev.DeliveryStatusID)

	needed := f.dispatch.byType(model.NotificationTypeEditorNeeded)
	require.Len(t, needed, 1)
	assert.Len(t, needed[0].Recipients, 2)
	payload, ok := needed[0].Payload.(*model.EditorNeededPayload)
	require.True(t, ok)
	assert.Equal(t, "Spring wedding", payload.ProjectName)

	require.Len(t, f.tasks.calls, 1)
	assert.Equal(t, ev.ID, f.tasks.calls[0].event.ID)
	assert.Equal(t, "Spring wedding", f.tasks.calls[0].projectName)
	assert.Len(t, f.tasks.calls[0].admins, 2)
}

func TestRunTickShootEndWithEditorAssigned(t *testing.T) {
	f := newFixture(t)
	editorID := uuid.New()
	ev := scheduledEvent(f.statusID(model.DeliveryStatusShootInProgress),
		f.now.Add(-3*time.Hour), f.now.Add(-time.Hour))
	ev.AlbumEditorID = &editorID
	f.events.events[ev.ID] = ev

	require.NoError(t, f.service.RunTick(context.Background()))

	// Status still advances and is pushed, but nobody is told to find an
	// editor: one is already assigned.
	assert.Equal(t, f.statusID(model.DeliveryStatusAwaitingEditing), ev.DeliveryStatusID)
	assert.Len(t, f.publisher.pushes, 2)
	assert.Empty(t, f.dispatch.byType(model.NotificationTypeEditorNeeded))
	assert.Empty(t, f.tasks.calls)
	assert.Len(t, f.auditRepo.entries, 1)
}

func TestRunTickAdvancesOneStepPerTick(t *testing.T) {
	f := newFixture(t)
	ev := scheduledEvent(f.statusID(model.DeliveryStatusScheduled),
		f.now.Add(-time.Hour), f.now.Add(time.Hour))
	f.events.events[ev.ID] = ev

	require.NoError(t, f.service.RunTick(context.Background()))
	assert.Equal(t, f.statusID(model.DeliveryStatusShootInProgress), ev.DeliveryStatusID)

	// Re-running at the same instant is a no-op: the event left SCHEDULED
	// and its window has not closed yet.
	require.NoError(t, f.service.RunTick(context.Background()))
	assert.Equal(t, f.statusID(model.DeliveryStatusShootInProgress), ev.DeliveryStatusID)
	assert.Len(t, f.dispatch.inputs, 1)
	assert.Len(t, f.auditRepo.entries, 1)

	// Once the window closes, the next tick takes the second step.
	f.now = f.now.Add(2 * time.Hour)
	require.NoError(t, f.service.RunTick(context.Background()))
	assert.Equal(t, f.statusID(model.DeliveryStatusAwaitingEditing), ev.DeliveryStatusID)
	assert.Len(t, f.auditRepo.entries, 2)
}

func TestRunTickClaimLostSkipsSideEffects(t *testing.T) {
	f := newFixture(t)
	ev := scheduledEvent(f.statusID(model.DeliveryStatusScheduled),
		f.now.Add(-time.Hour), f.now.Add(time.Hour))
	f.events.events[ev.ID] = ev
	f.events.rejectClaim = true

	require.NoError(t, f.service.RunTick(context.Background()))

	// Another replica won the claim: nothing fires here, and the loss is
	// not counted as a failure.
	assert.Equal(t, 1, f.events.claims)
	assert.Empty(t, f.auditRepo.entries)
	assert.Empty(t, f.publisher.pushes)
	assert.Empty(t, f.dispatch.inputs)
	assert.Zero(t, testutil.ToFloat64(f.metrics.TransitionsFailed))
}

func TestRunTickClaimErrorSuppressesSideEffects(t *testing.T) {
	f := newFixture(t)
	ev := scheduledEvent(f.statusID(model.DeliveryStatusScheduled),
		f.now.Add(-time.Hour), f.now.Add(time.Hour))
	f.events.events[ev.ID] = ev
	f.events.claimErr = errors.New("connection reset")

	require.NoError(t, f.service.RunTick(context.Background()))

	assert.Equal(t, f.statusID(model.DeliveryStatusScheduled), ev.DeliveryStatusID)
	assert.Empty(t, f.auditRepo.entries)
	assert.Empty(t, f.dispatch.inputs)
	assert.Empty(t, f.tasks.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TransitionsFailed))
}

func TestRunTickAuditFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	ev := scheduledEvent(f.statusID(model.DeliveryStatusScheduled),
		f.now.Add(-time.Hour), f.now.Add(time.Hour))
	f.events.events[ev.ID] = ev
	f.auditRepo.err = errors.New("audit store down")

	require.NoError(t, f.service.RunTick(context.Background()))

	// The status change stands and the rest of the chain still runs.
	assert.Equal(t, f.statusID(model.DeliveryStatusShootInProgress), ev.DeliveryStatusID)
	assert.Len(t, f.publisher.pushes, 2)
	assert.Len(t, f.dispatch.byType(model.NotificationTypeShootStarted), 1)
}

func TestRunTickRealtimeFailureTolerated(t *testing.T) {
	f := newFixture(t)
	ev := scheduledEvent(f.statusID(model.DeliveryStatusScheduled),
		f.now.Add(-time.Hour), f.now.Add(time.Hour))
	f.events.events[ev.ID] = ev
	f.publisher.err = errors.New("broker unavailable")

	require.NoError(t, f.service.RunTick(context.Background()))

	assert.Equal(t, f.statusID(model.DeliveryStatusShootInProgress), ev.DeliveryStatusID)
	assert.Len(t, f.dispatch.byType(model.NotificationTypeShootStarted), 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.RealtimePublishFailures))
}

func TestRunTickMissingCatalogCodeAbortsTick(t *testing.T) {
	f := newFixture(t)
	delete(f.statuses.byCode, model.DeliveryStatusAwaitingEditing)
	ev := scheduledEvent(f.statusID(model.DeliveryStatusScheduled),
		f.now.Add(-time.Hour), f.now.Add(time.Hour))
	f.events.events[ev.ID] = ev

	err := f.service.RunTick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status catalog")
	assert.Equal(t, 0, f.events.claims)
}

func TestRunTickNoAdminsStillTransitions(t *testing.T) {
	f := newFixture(t)
	f.users.admins = nil
	ev := scheduledEvent(f.statusID(model.DeliveryStatusScheduled),
		f.now.Add(-time.Hour), f.now.Add(time.Hour))
	f.events.events[ev.ID] = ev

	require.NoError(t, f.service.RunTick(context.Background()))

	assert.Equal(t, f.statusID(model.DeliveryStatusShootInProgress), ev.DeliveryStatusID)
	assert.Empty(t, f.publisher.pushes)
	assert.Empty(t, f.dispatch.inputs)
}
