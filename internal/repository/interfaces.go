package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/model"
)

// All repository interfaces in one file
type (
	// ClientEventRepository reads transition candidates and claims status
	// changes for the lifecycle engine.
	ClientEventRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.ClientEvent, error)
		// ListShootStartCandidates returns events in the given status whose
		// window has opened but not yet closed (from <= now < to).
		ListShootStartCandidates(ctx context.Context, statusID uuid.UUID, now time.Time) ([]*model.ClientEvent, error)
		// ListShootEndCandidates returns events in the given status whose
		// window has closed (to <= now).
		ListShootEndCandidates(ctx context.Context, statusID uuid.UUID, now time.Time) ([]*model.ClientEvent, error)
		// ClaimDeliveryStatus conditionally moves an event from one status to
		// another. It reports false when the row was no longer in the expected
		// source status, which makes concurrent scheduler replicas safe: only
		// the claiming replica runs side effects.
		ClaimDeliveryStatus(ctx context.Context, eventID, fromStatusID, toStatusID, actorID uuid.UUID) (bool, error)
		ListWithEditingDueIn(ctx context.Context, from, to time.Time) ([]*model.ClientEvent, error)
		ListWithAlbumDesignDueIn(ctx context.Context, from, to time.Time) ([]*model.ClientEvent, error)
	}

	// DeliveryStatusRepository resolves the static status catalog.
	DeliveryStatusRepository interface {
		GetByCode(ctx context.Context, code string) (*model.DeliveryStatus, error)
		List(ctx context.Context) ([]*model.DeliveryStatus, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		// ExistsRecent reports whether an identical notification for the same
		// recipient was created at or after the given instant.
		ExistsRecent(ctx context.Context, userID, tenantID uuid.UUID, typ model.NotificationType, title, message string, since time.Time) (bool, error)
		List(ctx context.Context, userID, tenantID uuid.UUID, unreadOnly bool, limit, offset int) ([]*model.Notification, int, error)
		MarkRead(ctx context.Context, id, userID uuid.UUID, readAt time.Time) error
		MarkAllRead(ctx context.Context, userID, tenantID uuid.UUID, readAt time.Time) error
		Delete(ctx context.Context, id, userID uuid.UUID) error
		DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	FollowUpTaskRepository interface {
		Create(ctx context.Context, task *model.FollowUpTask) error
		// ExistsOpenForKey is the idempotency gate: true when any open task
		// already exists for the (tenant, event, kind) triple.
		ExistsOpenForKey(ctx context.Context, tenantID, clientEventID uuid.UUID, kind string) (bool, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		Cleanup(ctx context.Context, before time.Time) (int64, error)
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		ListActiveAdmins(ctx context.Context, tenantID uuid.UUID) ([]*model.User, error)
		GetByTeamMemberID(ctx context.Context, teamMemberID uuid.UUID) (*model.User, error)
	}

	ProjectRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Project, error)
		ListDeliveryDueIn(ctx context.Context, from, to time.Time) ([]*model.Project, error)
	}
)
