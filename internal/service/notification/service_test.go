package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/pkg/logger"
	"github.com/lenskeep/studio-api/pkg/metrics"
	"github.com/lenskeep/studio-api/pkg/realtime"
)

type fakeNotifRepo struct {
	stored    []*model.Notification
	createErr error
	existsErr error
}

func (r *fakeNotifRepo) Create(_ context.Context, n *model.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.stored = append(r.stored, n)
	return nil
}

func (r *fakeNotifRepo) ExistsRecent(_ context.Context, userID, tenantID uuid.UUID, typ model.NotificationType, title, message string, since time.Time) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, n := range r.stored {
		if n.UserID == userID && n.TenantID == tenantID && n.Type == typ &&
			n.Title == title && n.Message == message && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotifRepo) List(_ context.Context, userID, tenantID uuid.UUID, unreadOnly bool, limit, offset int) ([]*model.Notification, int, error) {
	var out []*model.Notification
	for _, n := range r.stored {
		if n.UserID == userID && n.TenantID == tenantID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeNotifRepo) MarkRead(_ context.Context, id, userID uuid.UUID, readAt time.Time) error {
	for _, n := range r.stored {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			n.ReadAt = &readAt
			return nil
		}
	}
	return errors.New("not found")
}

func (r *fakeNotifRepo) MarkAllRead(_ context.Context, userID, tenantID uuid.UUID, readAt time.Time) error {
	for _, n := range r.stored {
		if n.UserID == userID && n.TenantID == tenantID && !n.Read {
			n.Read = true
			n.ReadAt = &readAt
		}
	}
	return nil
}

func (r *fakeNotifRepo) Delete(_ context.Context, id, userID uuid.UUID) error {
	for i, n := range r.stored {
		if n.ID == id && n.UserID == userID {
			r.stored = append(r.stored[:i], r.stored[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (r *fakeNotifRepo) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []*model.Notification
	var removed int64
	for _, n := range r.stored {
		if n.Read && n.ReadAt != nil && n.ReadAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.stored = kept
	return removed, nil
}

type fakePublisher struct {
	pushes map[uuid.UUID]int
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, userID uuid.UUID, _ *realtime.Message) error {
	if p.err != nil {
		return p.err
	}
	if p.pushes == nil {
		p.pushes = make(map[uuid.UUID]int)
	}
	p.pushes[userID]++
	return nil
}

func (p *fakePublisher) BestEffort() {}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestService(repo *fakeNotifRepo, pub *fakePublisher, clk *clock) Service {
	return NewServiceWithClock(repo, pub,
		logger.FromZerolog(zerolog.Nop()), metrics.New("test"), clk.Now)
}

func dispatchInput(recipients ...uuid.UUID) *DispatchInput {
	return &DispatchInput{
		Recipients: recipients,
		TenantID:   uuid.New(),
		Type:       model.NotificationTypeShootStarted,
		Title:      "Shoot started",
		Message:    "Morning session is now in progress",
	}
}

func TestDispatchFansOutPerRecipient(t *testing.T) {
	repo := &fakeNotifRepo{}
	pub := &fakePublisher{}
	clk := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, pub, clk)

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	created, err := svc.Dispatch(context.Background(), dispatchInput(a, b, c))
	require.NoError(t, err)

	assert.Len(t, created, 3)
	assert.Len(t, repo.stored, 3)
	assert.Equal(t, 1, pub.pushes[a])
	assert.Equal(t, 1, pub.pushes[b])
	assert.Equal(t, 1, pub.pushes[c])
}

func TestDispatchDedupsInsideWindow(t *testing.T) {
	repo := &fakeNotifRepo{}
	pub := &fakePublisher{}
	clk := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, pub, clk)

	userID := uuid.New()
	in := dispatchInput(userID)

	created, err := svc.Dispatch(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, created, 1)

	// Same tuple five seconds later: suppressed.
	clk.now = clk.now.Add(5 * time.Second)
	created, err = svc.Dispatch(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Len(t, repo.stored, 1)
	assert.Equal(t, 1, pub.pushes[userID])
}

func TestDispatchAllowsRepeatOutsideWindow(t *testing.T) {
	repo := &fakeNotifRepo{}
	pub := &fakePublisher{}
	clk := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, pub, clk)

	userID := uuid.New()
	in := dispatchInput(userID)

	_, err := svc.Dispatch(context.Background(), in)
	require.NoError(t, err)

	clk.now = clk.now.Add(DedupWindow + time.Second)
	created, err := svc.Dispatch(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Len(t, repo.stored, 2)
}

func TestDispatchDedupIsPerRecipient(t *testing.T) {
	repo := &fakeNotifRepo{}
	pub := &fakePublisher{}
	clk := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, pub, clk)

	a, b := uuid.New(), uuid.New()
	in := dispatchInput(a)
	_, err := svc.Dispatch(context.Background(), in)
	require.NoError(t, err)

	// Second dispatch adds a fresh recipient; only the repeat is skipped.
	in.Recipients = []uuid.UUID{a, b}
	created, err := svc.Dispatch(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, b, created[0].UserID)
}

func TestDispatchDifferentMessageNotDeduped(t *testing.T) {
	repo := &fakeNotifRepo{}
	pub := &fakePublisher{}
	clk := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, pub, clk)

	userID := uuid.New()
	in := dispatchInput(userID)
	_, err := svc.Dispatch(context.Background(), in)
	require.NoError(t, err)

	other := dispatchInput(userID)
	other.TenantID = in.TenantID
	other.Message = "Afternoon session is now in progress"
	created, err := svc.Dispatch(context.Background(), other)
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestDispatchPushFailureStillReturnsCreated(t *testing.T) {
	repo := &fakeNotifRepo{}
	pub := &fakePublisher{err: errors.New("broker down")}
	clk := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, pub, clk)

	created, err := svc.Dispatch(context.Background(), dispatchInput(uuid.New()))
	require.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Len(t, repo.stored, 1)
}

func TestDispatchPersistFailureSkipsRecipient(t *testing.T) {
	repo := &fakeNotifRepo{createErr: errors.New("insert failed")}
	pub := &fakePublisher{}
	clk := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, pub, clk)

	created, err := svc.Dispatch(context.Background(), dispatchInput(uuid.New()))
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, pub.pushes)
}

func TestDispatchRejectsEmptyInput(t *testing.T) {
	svc := newTestService(&fakeNotifRepo{}, &fakePublisher{},
		&clock{now: time.Now()})

	_, err := svc.Dispatch(context.Background(), &DispatchInput{
		TenantID: uuid.New(),
		Type:     model.NotificationTypeShootStarted,
		Title:    "Shoot started",
		Message:  "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dispatch input")
}

func TestDispatchCarriesTypedPayload(t *testing.T) {
	repo := &fakeNotifRepo{}
	clk := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, &fakePublisher{}, clk)

	in := dispatchInput(uuid.New())
	in.Payload = &model.ShootStartedPayload{
		EventID:   uuid.New(),
		ProjectID: uuid.New(),
		EventName: "Morning session",
		StartedAt: clk.now,
	}
	created, err := svc.Dispatch(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, created, 1)

	decoded, err := created[0].DecodePayload()
	require.NoError(t, err)
	payload, ok := decoded.(*model.ShootStartedPayload)
	require.True(t, ok)
	assert.Equal(t, "Morning session", payload.EventName)
}

func TestMarkReadAndPurge(t *testing.T) {
	repo := &fakeNotifRepo{}
	clk := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, &fakePublisher{}, clk)

	userID := uuid.New()
	created, err := svc.Dispatch(context.Background(), dispatchInput(userID))
	require.NoError(t, err)
	require.Len(t, created, 1)

	require.NoError(t, svc.MarkRead(context.Background(), created[0].ID, userID))
	assert.True(t, repo.stored[0].Read)

	clk.now = clk.now.Add(48 * time.Hour)
	removed, err := svc.PurgeReadBefore(context.Background(), clk.now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Empty(t, repo.stored)
}
