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

// FlowNodeRepository provides data access for flow nodes.
type FlowNodeRepository interface {
	Create(ctx context.Context, node *models.FlowNode) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FlowNode, error)
	ListByFlow(ctx context.Context, flowID uuid.UUID) ([]*models.FlowNode, error)
	FindByChildFlow(ctx context.Context, childFlowID uuid.UUID) (*models.FlowNode, error)
	Update(ctx context.Context, node *models.FlowNode) error
	ClearRole(ctx context.Context, roleID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type flowNodeRepository struct {
	db *database.DB
}

// NewFlowNodeRepository creates a new FlowNodeRepository.
func NewFlowNodeRepository(db *database.DB) FlowNodeRepository {
	return &flowNodeRepository{db: db}
}

var _ FlowNodeRepository = (*flowNodeRepository)(nil)

const flowNodeColumns = `id, flow_id, type, label, description,
		position_x, position_y, role_id, child_flow_id, metadata,
		created_at, updated_at`

func (r *flowNodeRepository) Create(ctx context.Context, node *models.FlowNode) error {
	query := `
		INSERT INTO engine_flow_nodes (id, flow_id, type, label, description,
			position_x, position_y, role_id, child_flow_id, metadata,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		node.ID, node.FlowID, string(node.Type), node.Label, node.Description,
		node.PositionX, node.PositionY, node.RoleID, node.ChildFlowID, node.Metadata,
		node.CreatedAt, node.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save flow node: %w", err)
	}
	return nil
}

func (r *flowNodeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FlowNode, error) {
	query := `SELECT ` + flowNodeColumns + ` FROM engine_flow_nodes WHERE id = $1`
	return scanFlowNode(r.db.QueryRow(ctx, query, id))
}

// ListByFlow returns the flow's nodes in creation order, which is also the
// order the diagram export walks them in.
func (r *flowNodeRepository) ListByFlow(ctx context.Context, flowID uuid.UUID) ([]*models.FlowNode, error) {
	query := `SELECT ` + flowNodeColumns + `
		FROM engine_flow_nodes WHERE flow_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow nodes: %w", err)
	}
	defer rows.Close()

	var result []*models.FlowNode
	for rows.Next() {
		n, err := scanFlowNode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow nodes: %w", err)
	}
	return result, nil
}

// FindByChildFlow resolves the owning node of a sub-flow. The node-to-flow
// link is one-directional, so this is an indexed scan over child_flow_id;
// (nil, nil) means the flow is an orphan (valid state).
func (r *flowNodeRepository) FindByChildFlow(ctx context.Context, childFlowID uuid.UUID) (*models.FlowNode, error) {
	query := `SELECT ` + flowNodeColumns + ` FROM engine_flow_nodes WHERE child_flow_id = $1 LIMIT 1`
	return scanFlowNode(r.db.QueryRow(ctx, query, childFlowID))
}

func (r *flowNodeRepository) Update(ctx context.Context, node *models.FlowNode) error {
	query := `
		UPDATE engine_flow_nodes
		SET label = $2, description = $3, position_x = $4, position_y = $5,
			role_id = $6, child_flow_id = $7, metadata = $8, updated_at = $9
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query,
		node.ID, node.Label, node.Description, node.PositionX, node.PositionY,
		node.RoleID, node.ChildFlowID, node.Metadata, node.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update flow node: %w", err)
	}
	return nil
}

// ClearRole detaches every node from a role, used when the role is deleted so
// nodes fall back to "no lane" instead of pointing at a ghost.
func (r *flowNodeRepository) ClearRole(ctx context.Context, roleID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE engine_flow_nodes SET role_id = NULL, updated_at = now() WHERE role_id = $1`,
		roleID)
	if err != nil {
		return fmt.Errorf("failed to clear role from nodes: %w", err)
	}
	return nil
}

func (r *flowNodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM engine_flow_nodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow node: %w", err)
	}
	return nil
}

func scanFlowNode(row pgx.Row) (*models.FlowNode, error) {
	var n models.FlowNode
	var nodeType string

	err := row.Scan(&n.ID, &n.FlowID, &nodeType, &n.Label, &n.Description,
		&n.PositionX, &n.PositionY, &n.RoleID, &n.ChildFlowID, &n.Metadata,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan flow node: %w", err)
	}

	n.Type = models.NodeType(nodeType)
	return &n, nil
}
