package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
)

type auditRepository struct {
	*BaseRepository
}

func NewAuditRepository(base *BaseRepository) repository.AuditRepository {
	return &auditRepository{BaseRepository: base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, tenant_id, actor_id, action, entity_type, entity_id,
			changes, metadata, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.TenantID,
		log.ActorID,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.Changes,
		log.Metadata,
		log.IPAddress,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM audit_logs
		WHERE created_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return result.RowsAffected()
}
