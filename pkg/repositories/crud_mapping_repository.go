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

// CrudMappingRepository provides data access for traceability facts.
//
// The fact table is append-mostly and carries no uniqueness or foreign key
// constraints: duplicate facts are legal and references may dangle. Reads
// return facts in a stable (operation, created_at) order so aggregations are
// deterministic.
type CrudMappingRepository interface {
	Create(ctx context.Context, mapping *models.CrudMapping) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CrudMapping, error)
	ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.CrudMapping, error)
	ListByColumnAndOperation(ctx context.Context, columnID uuid.UUID, operation models.Operation) ([]*models.CrudMapping, error)
	ListByRole(ctx context.Context, roleID uuid.UUID) ([]*models.CrudMapping, error)
	ListByFlow(ctx context.Context, flowID uuid.UUID) ([]*models.CrudMapping, error)
	ListByFlowNode(ctx context.Context, flowNodeID uuid.UUID) ([]*models.CrudMapping, error)
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]*models.CrudMapping, error)
	Update(ctx context.Context, mapping *models.CrudMapping) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type crudMappingRepository struct {
	db *database.DB
}

// NewCrudMappingRepository creates a new CrudMappingRepository.
func NewCrudMappingRepository(db *database.DB) CrudMappingRepository {
	return &crudMappingRepository{db: db}
}

var _ CrudMappingRepository = (*crudMappingRepository)(nil)

const crudMappingColumns = `id, column_id, operation, role_id, flow_id, flow_node_id,
		how, condition, description, created_at, updated_at`

func (r *crudMappingRepository) Create(ctx context.Context, mapping *models.CrudMapping) error {
	query := `
		INSERT INTO engine_crud_mappings (id, column_id, operation, role_id, flow_id, flow_node_id,
			how, condition, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		mapping.ID, mapping.ColumnID, string(mapping.Operation), mapping.RoleID,
		mapping.FlowID, mapping.FlowNodeID, mapping.How, mapping.Condition,
		mapping.Description, mapping.CreatedAt, mapping.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save crud mapping: %w", err)
	}
	return nil
}

func (r *crudMappingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CrudMapping, error) {
	query := `SELECT ` + crudMappingColumns + ` FROM engine_crud_mappings WHERE id = $1`
	return scanCrudMapping(r.db.QueryRow(ctx, query, id))
}

func (r *crudMappingRepository) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.CrudMapping, error) {
	query := `SELECT ` + crudMappingColumns + `
		FROM engine_crud_mappings WHERE column_id = $1
		ORDER BY operation, created_at, id`
	return r.listMappings(ctx, query, columnID)
}

func (r *crudMappingRepository) ListByColumnAndOperation(ctx context.Context, columnID uuid.UUID, operation models.Operation) ([]*models.CrudMapping, error) {
	query := `SELECT ` + crudMappingColumns + `
		FROM engine_crud_mappings WHERE column_id = $1 AND operation = $2
		ORDER BY created_at, id`
	return r.listMappings(ctx, query, columnID, string(operation))
}

func (r *crudMappingRepository) ListByRole(ctx context.Context, roleID uuid.UUID) ([]*models.CrudMapping, error) {
	query := `SELECT ` + crudMappingColumns + `
		FROM engine_crud_mappings WHERE role_id = $1
		ORDER BY operation, created_at, id`
	return r.listMappings(ctx, query, roleID)
}

func (r *crudMappingRepository) ListByFlow(ctx context.Context, flowID uuid.UUID) ([]*models.CrudMapping, error) {
	query := `SELECT ` + crudMappingColumns + `
		FROM engine_crud_mappings WHERE flow_id = $1
		ORDER BY operation, created_at, id`
	return r.listMappings(ctx, query, flowID)
}

func (r *crudMappingRepository) ListByFlowNode(ctx context.Context, flowNodeID uuid.UUID) ([]*models.CrudMapping, error) {
	query := `SELECT ` + crudMappingColumns + `
		FROM engine_crud_mappings WHERE flow_node_id = $1
		ORDER BY operation, created_at, id`
	return r.listMappings(ctx, query, flowNodeID)
}

// ListByTable returns facts over every column of a table, resolved through
// the catalog. Facts whose column was deleted do not appear here; they only
// surface on direct id lookups.
func (r *crudMappingRepository) ListByTable(ctx context.Context, tableID uuid.UUID) ([]*models.CrudMapping, error) {
	query := `
		SELECT m.id, m.column_id, m.operation, m.role_id, m.flow_id, m.flow_node_id,
			m.how, m.condition, m.description, m.created_at, m.updated_at
		FROM engine_crud_mappings m
		JOIN engine_columns c ON c.id = m.column_id
		WHERE c.table_id = $1
		ORDER BY c.ordinal_position, m.operation, m.created_at, m.id`
	return r.listMappings(ctx, query, tableID)
}

func (r *crudMappingRepository) Update(ctx context.Context, mapping *models.CrudMapping) error {
	query := `
		UPDATE engine_crud_mappings
		SET flow_id = $2, flow_node_id = $3, how = $4, condition = $5, description = $6, updated_at = $7
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query,
		mapping.ID, mapping.FlowID, mapping.FlowNodeID, mapping.How,
		mapping.Condition, mapping.Description, mapping.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update crud mapping: %w", err)
	}
	return nil
}

func (r *crudMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM engine_crud_mappings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete crud mapping: %w", err)
	}
	return nil
}

func (r *crudMappingRepository) listMappings(ctx context.Context, query string, args ...any) ([]*models.CrudMapping, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crud mappings: %w", err)
	}
	defer rows.Close()

	var result []*models.CrudMapping
	for rows.Next() {
		m, err := scanCrudMapping(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crud mappings: %w", err)
	}
	return result, nil
}

func scanCrudMapping(row pgx.Row) (*models.CrudMapping, error) {
	var m models.CrudMapping
	var operation string

	err := row.Scan(&m.ID, &m.ColumnID, &operation, &m.RoleID, &m.FlowID, &m.FlowNodeID,
		&m.How, &m.Condition, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan crud mapping: %w", err)
	}

	m.Operation = models.Operation(operation)
	return &m, nil
}
