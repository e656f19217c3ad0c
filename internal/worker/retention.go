package worker

import (
	"context"
	"time"

	"github.com/lenskeep/studio-api/internal/service/audit"
	"github.com/lenskeep/studio-api/internal/service/notification"
	"github.com/lenskeep/studio-api/pkg/logger"
)

// RetentionWorker expires read notifications and old audit entries on a
// slow cadence.
type RetentionWorker struct {
	notifications    notification.Service
	auditor          *audit.Service
	notificationDays int
	auditDays        int
	interval         time.Duration
	logger           *logger.Logger
}

func NewRetentionWorker(notifications notification.Service, auditor *audit.Service, notificationDays, auditDays int, interval time.Duration, logger *logger.Logger) *RetentionWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionWorker{
		notifications:    notifications,
		auditor:          auditor,
		notificationDays: notificationDays,
		auditDays:        auditDays,
		interval:         interval,
		logger:           logger,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	now := time.Now()

	if w.notificationDays > 0 {
		cutoff := now.AddDate(0, 0, -w.notificationDays)
		removed, err := w.notifications.PurgeReadBefore(ctx, cutoff)
		if err != nil {
			w.logger.Error(err, "failed to purge read notifications")
		} else if removed > 0 {
			w.logger.Info("purged read notifications", "count", removed)
		}
	}

	if w.auditDays > 0 {
		cutoff := now.AddDate(0, 0, -w.auditDays)
		removed, err := w.auditor.Cleanup(ctx, cutoff)
		if err != nil {
			w.logger.Error(err, "failed to cleanup audit logs")
		} else if removed > 0 {
			w.logger.Info("cleaned up audit logs", "count", removed)
		}
	}
}
