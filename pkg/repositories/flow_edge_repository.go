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

// FlowEdgeRepository provides data access for flow edges.
type FlowEdgeRepository interface {
	Create(ctx context.Context, edge *models.FlowEdge) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FlowEdge, error)
	ListByFlow(ctx context.Context, flowID uuid.UUID) ([]*models.FlowEdge, error)
	Update(ctx context.Context, edge *models.FlowEdge) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type flowEdgeRepository struct {
	db *database.DB
}

// NewFlowEdgeRepository creates a new FlowEdgeRepository.
func NewFlowEdgeRepository(db *database.DB) FlowEdgeRepository {
	return &flowEdgeRepository{db: db}
}

var _ FlowEdgeRepository = (*flowEdgeRepository)(nil)

const flowEdgeColumns = `id, flow_id, source_node_id, target_node_id, label, condition, created_at, updated_at`

func (r *flowEdgeRepository) Create(ctx context.Context, edge *models.FlowEdge) error {
	query := `
		INSERT INTO engine_flow_edges (id, flow_id, source_node_id, target_node_id, label, condition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		edge.ID, edge.FlowID, edge.SourceNodeID, edge.TargetNodeID,
		edge.Label, edge.Condition, edge.CreatedAt, edge.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save flow edge: %w", err)
	}
	return nil
}

func (r *flowEdgeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FlowEdge, error) {
	query := `SELECT ` + flowEdgeColumns + ` FROM engine_flow_edges WHERE id = $1`
	return scanFlowEdge(r.db.QueryRow(ctx, query, id))
}

func (r *flowEdgeRepository) ListByFlow(ctx context.Context, flowID uuid.UUID) ([]*models.FlowEdge, error) {
	query := `SELECT ` + flowEdgeColumns + `
		FROM engine_flow_edges WHERE flow_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow edges: %w", err)
	}
	defer rows.Close()

	var result []*models.FlowEdge
	for rows.Next() {
		e, err := scanFlowEdge(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow edges: %w", err)
	}
	return result, nil
}

func (r *flowEdgeRepository) Update(ctx context.Context, edge *models.FlowEdge) error {
	query := `
		UPDATE engine_flow_edges
		SET label = $2, condition = $3, updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, edge.ID, edge.Label, edge.Condition, edge.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update flow edge: %w", err)
	}
	return nil
}

func (r *flowEdgeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM engine_flow_edges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow edge: %w", err)
	}
	return nil
}

func scanFlowEdge(row pgx.Row) (*models.FlowEdge, error) {
	var e models.FlowEdge

	err := row.Scan(&e.ID, &e.FlowID, &e.SourceNodeID, &e.TargetNodeID,
		&e.Label, &e.Condition, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan flow edge: %w", err)
	}
	return &e, nil
}
