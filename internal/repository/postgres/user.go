package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/model"
	"github.com/lenskeep/studio-api/internal/repository"
)

type userRepository struct {
	*BaseRepository
}

func NewUserRepository(base *BaseRepository) repository.UserRepository {
	return &userRepository{BaseRepository: base}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, tenant_id, email, name, role, team_member_id, active, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) ListActiveAdmins(ctx context.Context, tenantID uuid.UUID) ([]*model.User, error) {
	query := `
		SELECT id, tenant_id, email, name, role, team_member_id, active, created_at, updated_at
		FROM users
		WHERE tenant_id = $1
		AND role = $2
		AND active = true
		ORDER BY created_at ASC
	`
	var users []*model.User
	err := r.db.SelectContext(ctx, &users, query, tenantID, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to list active admins: %w", err)
	}
	return users, nil
}

func (r *userRepository) GetByTeamMemberID(ctx context.Context, teamMemberID uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, tenant_id, email, name, role, team_member_id, active, created_at, updated_at
		FROM users
		WHERE team_member_id = $1
		AND active = true
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, teamMemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No login identity is linked to this team member.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by team member: %w", err)
	}
	return &user, nil
}
