package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

// AddNode places a new node on a flow's canvas. The owning role is derived
// from the vertical position through the project's swimlane layout; a node
// dropped below the last lane has no role.
func (s *FlowService) AddNode(ctx context.Context, flowID uuid.UUID, nodeType models.NodeType, label string, x, y float64) (*models.FlowNode, error) {
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	node, err := models.NewFlowNode(flowID, nodeType, label, x, y)
	if err != nil {
		return nil, err
	}

	lanes, err := s.lanes(ctx, flow.ProjectID)
	if err != nil {
		return nil, err
	}
	node.AssignRole(lanes.RoleIDAtY(y))

	if err := s.nodeRepo.Create(ctx, node); err != nil {
		return nil, err
	}

	s.logger.Debug("added node",
		zap.String("flow_id", flowID.String()),
		zap.String("node_id", node.ID.String()),
		zap.String("type", string(node.Type)))
	return node, nil
}

// NodeImport is one node of a bulk canvas import.
type NodeImport struct {
	Type  models.NodeType
	Label string
	X     float64
	Y     float64
}

// NodeImportResult reports the outcome of a bulk node import.
type NodeImportResult struct {
	Nodes   []*models.FlowNode `json:"nodes"`
	Skipped []ImportRowError   `json:"skipped,omitempty"`
}

// ImportNodes places many nodes on a flow's canvas in one call. Each entry is
// written independently: invalid entries are skipped and reported, valid ones
// are kept. Roles are derived from vertical position through the same swimlane
// layout AddNode and MoveNode use.
func (s *FlowService) ImportNodes(ctx context.Context, flowID uuid.UUID, inputs []NodeImport) (*NodeImportResult, error) {
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	lanes, err := s.lanes(ctx, flow.ProjectID)
	if err != nil {
		return nil, err
	}

	result := &NodeImportResult{}
	for i, in := range inputs {
		node, err := models.NewFlowNode(flowID, in.Type, in.Label, in.X, in.Y)
		if err != nil {
			result.Skipped = append(result.Skipped, ImportRowError{Line: i + 1, Message: err.Error()})
			continue
		}
		node.AssignRole(lanes.RoleIDAtY(in.Y))

		if err := s.nodeRepo.Create(ctx, node); err != nil {
			return nil, err
		}
		result.Nodes = append(result.Nodes, node)
	}

	s.logger.Info("imported nodes",
		zap.String("flow_id", flowID.String()),
		zap.Int("created", len(result.Nodes)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// GetNode fetches one node.
func (s *FlowService) GetNode(ctx context.Context, id uuid.UUID) (*models.FlowNode, error) {
	node, err := s.nodeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("flow node %s: %w", id, apperrors.ErrNotFound)
	}
	return node, nil
}

// NodeUpdate carries the optional fields of a node update.
type NodeUpdate struct {
	Label       *string
	Description *string
	Metadata    models.NodeMetadata
}

// UpdateNode applies a partial update to label, description or metadata.
// Position changes go through MoveNode so the swimlane rule applies.
func (s *FlowService) UpdateNode(ctx context.Context, id uuid.UUID, update NodeUpdate) (*models.FlowNode, error) {
	node, err := s.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Label != nil {
		if err := node.SetLabel(*update.Label); err != nil {
			return nil, err
		}
	}
	if update.Description != nil {
		node.SetDescription(*update.Description)
	}
	if update.Metadata != nil {
		node.SetMetadata(update.Metadata)
	}

	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

// MoveNode repositions a node and re-derives its role from the new vertical
// position, exactly as AddNode does on creation.
func (s *FlowService) MoveNode(ctx context.Context, id uuid.UUID, x, y float64) (*models.FlowNode, error) {
	node, err := s.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	flow, err := s.GetFlow(ctx, node.FlowID)
	if err != nil {
		return nil, err
	}

	lanes, err := s.lanes(ctx, flow.ProjectID)
	if err != nil {
		return nil, err
	}

	node.MoveTo(x, y)
	node.AssignRole(lanes.RoleIDAtY(y))

	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

// LinkChildFlow attaches an existing flow as the sub-flow of a node. The flow
// must belong to the same project; linking the already-linked flow is a
// no-op.
func (s *FlowService) LinkChildFlow(ctx context.Context, nodeID, childFlowID uuid.UUID) (*models.FlowNode, error) {
	node, err := s.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	parent, err := s.GetFlow(ctx, node.FlowID)
	if err != nil {
		return nil, err
	}
	child, err := s.GetFlow(ctx, childFlowID)
	if err != nil {
		return nil, err
	}
	if child.ProjectID != parent.ProjectID {
		return nil, apperrors.NewValidation("child_flow_id", "flow belongs to a different project")
	}
	if childFlowID == node.FlowID {
		return nil, apperrors.NewValidation("child_flow_id", "a node cannot own its own flow")
	}

	if err := node.LinkChildFlow(childFlowID); err != nil {
		return nil, err
	}
	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

// UnlinkChildFlow detaches a node's sub-flow without deleting it. The child
// flow becomes an orphan, still listed under its parent flow.
func (s *FlowService) UnlinkChildFlow(ctx context.Context, nodeID uuid.UUID) (*models.FlowNode, error) {
	node, err := s.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	node.UnlinkChildFlow()
	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

// DeleteNode removes a node; its edges go with it via cascade. A linked child
// flow survives as an orphan.
func (s *FlowService) DeleteNode(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetNode(ctx, id); err != nil {
		return err
	}
	return s.nodeRepo.Delete(ctx, id)
}

// AddEdge connects two nodes of the same flow. Cycles are legal: processes
// loop back to earlier steps all the time.
func (s *FlowService) AddEdge(ctx context.Context, flowID, sourceNodeID, targetNodeID uuid.UUID, label, condition string) (*models.FlowEdge, error) {
	if _, err := s.GetFlow(ctx, flowID); err != nil {
		return nil, err
	}

	source, err := s.GetNode(ctx, sourceNodeID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetNode(ctx, targetNodeID)
	if err != nil {
		return nil, err
	}
	if source.FlowID != flowID {
		return nil, apperrors.NewValidation("source_node_id", "node does not belong to this flow")
	}
	if target.FlowID != flowID {
		return nil, apperrors.NewValidation("target_node_id", "node does not belong to this flow")
	}

	edge, err := models.NewFlowEdge(flowID, sourceNodeID, targetNodeID, label, condition)
	if err != nil {
		return nil, err
	}
	if err := s.edgeRepo.Create(ctx, edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// EdgeUpdate carries the optional fields of an edge update.
type EdgeUpdate struct {
	Label     *string
	Condition *string
}

// UpdateEdge applies a partial update.
func (s *FlowService) UpdateEdge(ctx context.Context, id uuid.UUID, update EdgeUpdate) (*models.FlowEdge, error) {
	edge, err := s.edgeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		return nil, fmt.Errorf("flow edge %s: %w", id, apperrors.ErrNotFound)
	}

	if update.Label != nil {
		edge.SetLabel(*update.Label)
	}
	if update.Condition != nil {
		edge.SetCondition(*update.Condition)
	}

	if err := s.edgeRepo.Update(ctx, edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// DeleteEdge removes an edge.
func (s *FlowService) DeleteEdge(ctx context.Context, id uuid.UUID) error {
	edge, err := s.edgeRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if edge == nil {
		return fmt.Errorf("flow edge %s: %w", id, apperrors.ErrNotFound)
	}
	return s.edgeRepo.Delete(ctx, id)
}

// lanes builds the swimlane layout for a project.
func (s *FlowService) lanes(ctx context.Context, projectID uuid.UUID) (*Swimlanes, error) {
	roles, err := s.roleRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return NewSwimlanes(roles), nil
}
