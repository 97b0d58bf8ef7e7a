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

// FlowRepository provides data access for business flows.
type FlowRepository interface {
	Create(ctx context.Context, flow *models.BusinessFlow) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BusinessFlow, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.BusinessFlow, error)
	ListRoots(ctx context.Context, projectID uuid.UUID) ([]*models.BusinessFlow, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.BusinessFlow, error)
	Update(ctx context.Context, flow *models.BusinessFlow) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type flowRepository struct {
	db *database.DB
}

// NewFlowRepository creates a new FlowRepository.
func NewFlowRepository(db *database.DB) FlowRepository {
	return &flowRepository{db: db}
}

var _ FlowRepository = (*flowRepository)(nil)

const flowColumns = `id, project_id, name, description, version, parent_id, depth, created_at, updated_at`

func (r *flowRepository) Create(ctx context.Context, flow *models.BusinessFlow) error {
	query := `
		INSERT INTO engine_flows (id, project_id, name, description, version, parent_id, depth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		flow.ID, flow.ProjectID, flow.Name, flow.Description,
		flow.Version, flow.ParentID, flow.Depth, flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		return wrapUnique(err, "flow")
	}
	return nil
}

func (r *flowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BusinessFlow, error) {
	query := `SELECT ` + flowColumns + ` FROM engine_flows WHERE id = $1`
	return scanFlow(r.db.QueryRow(ctx, query, id))
}

func (r *flowRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.BusinessFlow, error) {
	query := `SELECT ` + flowColumns + `
		FROM engine_flows WHERE project_id = $1
		ORDER BY depth, name`
	return r.listFlows(ctx, query, projectID)
}

func (r *flowRepository) ListRoots(ctx context.Context, projectID uuid.UUID) ([]*models.BusinessFlow, error) {
	query := `SELECT ` + flowColumns + `
		FROM engine_flows WHERE project_id = $1 AND parent_id IS NULL
		ORDER BY name`
	return r.listFlows(ctx, query, projectID)
}

func (r *flowRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.BusinessFlow, error) {
	query := `SELECT ` + flowColumns + `
		FROM engine_flows WHERE parent_id = $1
		ORDER BY name`
	return r.listFlows(ctx, query, parentID)
}

func (r *flowRepository) Update(ctx context.Context, flow *models.BusinessFlow) error {
	query := `
		UPDATE engine_flows
		SET name = $2, description = $3, version = $4, updated_at = $5
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query,
		flow.ID, flow.Name, flow.Description, flow.Version, flow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update flow: %w", err)
	}
	return nil
}

// Delete removes a flow with its nodes and edges (cascade). Child flows are
// NOT cascaded: parent_id carries no ON DELETE action, so deleting a parent
// with children fails at the constraint and the service must detach or delete
// the children first.
func (r *flowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM engine_flows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return nil
}

func (r *flowRepository) listFlows(ctx context.Context, query string, arg any) ([]*models.BusinessFlow, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}
	defer rows.Close()

	var result []*models.BusinessFlow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}
	return result, nil
}

func scanFlow(row pgx.Row) (*models.BusinessFlow, error) {
	var f models.BusinessFlow

	err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Description,
		&f.Version, &f.ParentID, &f.Depth, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}
	return &f, nil
}
