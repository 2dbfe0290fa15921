package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentsift/recruitex-backend/internal/model"
)

// RoleRepository handles job role data access.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// List retrieves roles, optionally restricted to active ones.
func (r *RoleRepository) List(ctx context.Context, activeOnly bool) ([]model.Role, error) {
	query := `SELECT id, name, description, is_active, created_at, updated_at
	          FROM roles`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description,
			&role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetByID retrieves a role by ID.
func (r *RoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	role := &model.Role{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, is_active, created_at, updated_at
		 FROM roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.Name, &role.Description, &role.IsActive,
		&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return role, nil
}

// CountActiveByIDs returns how many of the given role IDs are active.
// Used to validate profile role selections.
func (r *RoleRepository) CountActiveByIDs(ctx context.Context, ids []uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM roles WHERE id = ANY($1) AND is_active = TRUE`, ids,
	).Scan(&count)
	return count, err
}

// Create inserts a new role.
func (r *RoleRepository) Create(ctx context.Context, role *model.Role) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, is_active)
		 VALUES ($1, $2, TRUE)
		 RETURNING id, is_active, created_at, updated_at`,
		role.Name, role.Description,
	).Scan(&role.ID, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
}

// Update modifies a role's name, description, and active flag.
func (r *RoleRepository) Update(ctx context.Context, role *model.Role) error {
	return r.pool.QueryRow(ctx,
		`UPDATE roles
		 SET name = $2, description = $3, is_active = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		role.ID, role.Name, role.Description, role.IsActive,
	).Scan(&role.UpdatedAt)
}

// IsReferenced reports whether any profile selection or bank question still
// points at the role. Referenced roles are archived instead of deleted.
func (r *RoleRepository) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var referenced bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bank_questions WHERE role_id = $1)
		     OR EXISTS (SELECT 1 FROM student_profiles WHERE role_ids @> to_jsonb(ARRAY[$1::text]))`,
		id,
	).Scan(&referenced)
	return referenced, err
}

// Archive deactivates a role without removing it.
func (r *RoleRepository) Archive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE roles SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// Delete removes a role. Fails with a foreign key violation if referenced.
func (r *RoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	return err
}
