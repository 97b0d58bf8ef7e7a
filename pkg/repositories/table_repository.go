package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tracelens-io/tracelens-engine/pkg/database"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

// TableRepository provides data access for cataloged tables.
type TableRepository interface {
	Create(ctx context.Context, table *models.Table) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Table, error)
	GetByName(ctx context.Context, projectID uuid.UUID, name string) (*models.Table, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Table, error)
	Update(ctx context.Context, table *models.Table) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type tableRepository struct {
	db *database.DB
}

// NewTableRepository creates a new TableRepository.
func NewTableRepository(db *database.DB) TableRepository {
	return &tableRepository{db: db}
}

var _ TableRepository = (*tableRepository)(nil)

const tableColumns = `id, project_id, name, display_name, description, tags, created_at, updated_at`

func (r *tableRepository) Create(ctx context.Context, table *models.Table) error {
	query := `
		INSERT INTO engine_tables (id, project_id, name, display_name, description, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		table.ID, table.ProjectID, table.Name, table.DisplayName,
		table.Description, table.Tags, table.CreatedAt, table.UpdatedAt)
	if err != nil {
		return wrapUnique(err, "table")
	}
	return nil
}

func (r *tableRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM engine_tables WHERE id = $1`
	return scanTable(r.db.QueryRow(ctx, query, id))
}

func (r *tableRepository) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*models.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM engine_tables WHERE project_id = $1 AND name = $2`
	return scanTable(r.db.QueryRow(ctx, query, projectID, name))
}

func (r *tableRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM engine_tables WHERE project_id = $1 ORDER BY name`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var result []*models.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return result, nil
}

func (r *tableRepository) Update(ctx context.Context, table *models.Table) error {
	query := `
		UPDATE engine_tables
		SET name = $2, display_name = $3, description = $4, tags = $5, updated_at = $6
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query,
		table.ID, table.Name, table.DisplayName, table.Description,
		table.Tags, table.UpdatedAt)
	if err != nil {
		return wrapUnique(err, "table")
	}
	return nil
}

// Delete removes a table. Its columns go with it via ON DELETE CASCADE;
// traceability facts over those columns are left dangling on purpose.
func (r *tableRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM engine_tables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	return nil
}

func scanTable(row pgx.Row) (*models.Table, error) {
	var t models.Table

	err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.DisplayName,
		&t.Description, &t.Tags, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan table: %w", err)
	}
	return &t, nil
}
