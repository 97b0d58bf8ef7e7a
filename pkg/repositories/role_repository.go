package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
	"github.com/tracelens-io/tracelens-engine/pkg/database"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

// RoleRepository provides data access for roles.
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	GetByName(ctx context.Context, projectID uuid.UUID, name string) (*models.Role, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Reorder(ctx context.Context, projectID uuid.UUID, orderedIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type roleRepository struct {
	db *database.DB
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(db *database.DB) RoleRepository {
	return &roleRepository{db: db}
}

var _ RoleRepository = (*roleRepository)(nil)

const roleColumns = `id, project_id, name, type, description, color,
		display_order, lane_height, created_at, updated_at`

func (r *roleRepository) Create(ctx context.Context, role *models.Role) error {
	query := `
		INSERT INTO engine_roles (id, project_id, name, type, description, color,
			display_order, lane_height, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		role.ID, role.ProjectID, role.Name, string(role.Type), role.Description,
		role.Color, role.Order, role.LaneHeight, role.CreatedAt, role.UpdatedAt)
	if err != nil {
		return wrapUnique(err, "role")
	}
	return nil
}

func (r *roleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM engine_roles WHERE id = $1`
	return scanRole(r.db.QueryRow(ctx, query, id))
}

func (r *roleRepository) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM engine_roles WHERE project_id = $1 AND name = $2`
	return scanRole(r.db.QueryRow(ctx, query, projectID, name))
}

// ListByProject returns roles in display order; that order is also the
// top-to-bottom swimlane order on the diagram canvas.
func (r *roleRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Role, error) {
	query := `SELECT ` + roleColumns + `
		FROM engine_roles WHERE project_id = $1
		ORDER BY display_order, name`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var result []*models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}
	return result, nil
}

func (r *roleRepository) Update(ctx context.Context, role *models.Role) error {
	query := `
		UPDATE engine_roles
		SET name = $2, type = $3, description = $4, color = $5,
			display_order = $6, lane_height = $7, updated_at = $8
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query,
		role.ID, role.Name, string(role.Type), role.Description, role.Color,
		role.Order, role.LaneHeight, role.UpdatedAt)
	if err != nil {
		return wrapUnique(err, "role")
	}
	return nil
}

// Reorder rewrites display_order for the given roles in one transaction.
// A reorder that only half-applies would leave the lanes scrambled, so this is
// the one write path that is multi-statement atomic.
func (r *roleRepository) Reorder(ctx context.Context, projectID uuid.UUID, orderedIDs []uuid.UUID) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE engine_roles
			SET display_order = $3, updated_at = now()
			WHERE id = $1 AND project_id = $2`

		for i, id := range orderedIDs {
			tag, err := tx.Exec(ctx, query, id, projectID, i)
			if err != nil {
				return fmt.Errorf("failed to reorder role %s: %w", id, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("role %s: %w", id, apperrors.ErrNotFound)
			}
		}
		return nil
	})
}

func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM engine_roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

func scanRole(row pgx.Row) (*models.Role, error) {
	var role models.Role
	var roleType string

	err := row.Scan(&role.ID, &role.ProjectID, &role.Name, &roleType,
		&role.Description, &role.Color, &role.Order, &role.LaneHeight,
		&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan role: %w", err)
	}

	role.Type = models.RoleType(roleType)
	return &role, nil
}
