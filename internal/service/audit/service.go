package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
)

// Service appends immutable change records. Entries are best-effort:
// callers log a failed write and carry on, they never roll back the
// state change that produced it.
type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type RecordOptions struct {
	Changes   map[string]model.FieldChange
	Metadata  interface{}
	IPAddress string
}

// Record creates an audit log entry.
func (s *Service) Record(ctx context.Context, actorID, tenantID uuid.UUID, action, entityType string, entityID uuid.UUID, opts *RecordOptions) error {
	var changes, metadata json.RawMessage
	var err error

	if opts != nil {
		if opts.Changes != nil {
			changes, err = json.Marshal(opts.Changes)
			if err != nil {
				return fmt.Errorf("failed to marshal changes: %w", err)
			}
		}
		if opts.Metadata != nil {
			metadata, err = json.Marshal(opts.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
		}
	}

	entry := &model.AuditLog{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}
	if opts != nil {
		entry.IPAddress = opts.IPAddress
	}

	return s.repo.Create(ctx, entry)
}

func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.Cleanup(ctx, before)
}
