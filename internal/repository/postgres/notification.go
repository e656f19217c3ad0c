package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
)

type notificationRepository struct {
	*BaseRepository
}

func NewNotificationRepository(base *BaseRepository) repository.NotificationRepository {
	return &notificationRepository{BaseRepository: base}
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, tenant_id, type, title, message,
			payload, action_url, read, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		notification.ID,
		notification.UserID,
		notification.TenantID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.Payload,
		notification.ActionURL,
		notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ExistsRecent(ctx context.Context, userID, tenantID uuid.UUID, typ model.NotificationType, title, message string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1
			AND tenant_id = $2
			AND type = $3
			AND title = $4
			AND message = $5
			AND created_at >= $6
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, userID, tenantID, typ, title, message, since)
	if err != nil {
		return false, fmt.Errorf("failed to check recent notifications: %w", err)
	}
	return exists, nil
}

func (r *notificationRepository) List(ctx context.Context, userID, tenantID uuid.UUID, unreadOnly bool, limit, offset int) ([]*model.Notification, int, error) {
	where := "WHERE user_id = $1 AND tenant_id = $2"
	if unreadOnly {
		where += " AND read = false"
	}

	countQuery := "SELECT COUNT(*) FROM notifications " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID, tenantID); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, user_id, tenant_id, type, title, message,
			   payload, action_url, read, read_at, created_at
		FROM notifications ` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	var notifications []*model.Notification
	err := r.db.SelectContext(ctx, &notifications, query, userID, tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, readAt time.Time) error {
	query := `
		UPDATE notifications
		SET read = true, read_at = $1
		WHERE id = $2
		AND user_id = $3
		AND read = false
	`
	result, err := r.db.ExecContext(ctx, query, readAt, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID, tenantID uuid.UUID, readAt time.Time) error {
	query := `
		UPDATE notifications
		SET read = true, read_at = $1
		WHERE user_id = $2
		AND tenant_id = $3
		AND read = false
	`
	_, err := r.db.ExecContext(ctx, query, readAt, userID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		DELETE FROM notifications
		WHERE id = $1
		AND user_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (r *notificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE read = true
		AND read_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete read notifications: %w", err)
	}
	return result.RowsAffected()
}
