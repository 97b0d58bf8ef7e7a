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

// ColumnRepository provides data access for cataloged columns.
type ColumnRepository interface {
	Create(ctx context.Context, column *models.Column) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Column, error)
	GetByName(ctx context.Context, tableID uuid.UUID, name string) (*models.Column, error)
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]*models.Column, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Column, error)
	Update(ctx context.Context, column *models.Column) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type columnRepository struct {
	db *database.DB
}

// NewColumnRepository creates a new ColumnRepository.
func NewColumnRepository(db *database.DB) ColumnRepository {
	return &columnRepository{db: db}
}

var _ ColumnRepository = (*columnRepository)(nil)

const columnColumns = `id, table_id, name, display_name, data_type,
		is_primary_key, is_foreign_key, is_nullable, is_unique,
		default_value, foreign_key_table, foreign_key_column,
		ordinal_position, created_at, updated_at`

func (r *columnRepository) Create(ctx context.Context, column *models.Column) error {
	query := `
		INSERT INTO engine_columns (id, table_id, name, display_name, data_type,
			is_primary_key, is_foreign_key, is_nullable, is_unique,
			default_value, foreign_key_table, foreign_key_column,
			ordinal_position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(ctx, query,
		column.ID, column.TableID, column.Name, column.DisplayName, string(column.DataType),
		column.IsPrimaryKey, column.IsForeignKey, column.IsNullable, column.IsUnique,
		column.DefaultValue, column.ForeignKeyTable, column.ForeignKeyColumn,
		column.Order, column.CreatedAt, column.UpdatedAt)
	if err != nil {
		return wrapUnique(err, "column")
	}
	return nil
}

func (r *columnRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Column, error) {
	query := `SELECT ` + columnColumns + ` FROM engine_columns WHERE id = $1`
	return scanColumn(r.db.QueryRow(ctx, query, id))
}

func (r *columnRepository) GetByName(ctx context.Context, tableID uuid.UUID, name string) (*models.Column, error) {
	query := `SELECT ` + columnColumns + ` FROM engine_columns WHERE table_id = $1 AND name = $2`
	return scanColumn(r.db.QueryRow(ctx, query, tableID, name))
}

func (r *columnRepository) ListByTable(ctx context.Context, tableID uuid.UUID) ([]*models.Column, error) {
	query := `SELECT ` + columnColumns + `
		FROM engine_columns WHERE table_id = $1
		ORDER BY ordinal_position, name`

	rows, err := r.db.Query(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()
	return collectColumns(rows)
}

// ListByProject returns every column of every table in a project, in table
// name then ordinal order. Used by the matrix aggregation, which needs the
// whole catalog in one read.
func (r *columnRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Column, error) {
	query := `
		SELECT c.id, c.table_id, c.name, c.display_name, c.data_type,
			c.is_primary_key, c.is_foreign_key, c.is_nullable, c.is_unique,
			c.default_value, c.foreign_key_table, c.foreign_key_column,
			c.ordinal_position, c.created_at, c.updated_at
		FROM engine_columns c
		JOIN engine_tables t ON t.id = c.table_id
		WHERE t.project_id = $1
		ORDER BY t.name, c.ordinal_position, c.name`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project columns: %w", err)
	}
	defer rows.Close()
	return collectColumns(rows)
}

func (r *columnRepository) Update(ctx context.Context, column *models.Column) error {
	query := `
		UPDATE engine_columns
		SET name = $2, display_name = $3, data_type = $4,
			is_primary_key = $5, is_foreign_key = $6, is_nullable = $7, is_unique = $8,
			default_value = $9, foreign_key_table = $10, foreign_key_column = $11,
			ordinal_position = $12, updated_at = $13
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query,
		column.ID, column.Name, column.DisplayName, string(column.DataType),
		column.IsPrimaryKey, column.IsForeignKey, column.IsNullable, column.IsUnique,
		column.DefaultValue, column.ForeignKeyTable, column.ForeignKeyColumn,
		column.Order, column.UpdatedAt)
	if err != nil {
		return wrapUnique(err, "column")
	}
	return nil
}

func (r *columnRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM engine_columns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete column: %w", err)
	}
	return nil
}

func collectColumns(rows pgx.Rows) ([]*models.Column, error) {
	var result []*models.Column
	for rows.Next() {
		c, err := scanColumn(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return result, nil
}

func scanColumn(row pgx.Row) (*models.Column, error) {
	var c models.Column
	var dataType string

	err := row.Scan(&c.ID, &c.TableID, &c.Name, &c.DisplayName, &dataType,
		&c.IsPrimaryKey, &c.IsForeignKey, &c.IsNullable, &c.IsUnique,
		&c.DefaultValue, &c.ForeignKeyTable, &c.ForeignKeyColumn,
		&c.Order, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan column: %w", err)
	}

	c.DataType = models.DataType(dataType)
	return &c, nil
}
