package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
	"github.com/tracelens-io/tracelens-engine/pkg/repositories"
)

// breadcrumbDepthLimit bounds the parent walk. Parent links should form a
// tree, but the column is plain data; a corrupted chain must not hang the
// read path.
const breadcrumbDepthLimit = 64

// FlowService manages business flows, their node/edge canvases and the
// parent/child hierarchy.
type FlowService struct {
	flowRepo repositories.FlowRepository
	nodeRepo repositories.FlowNodeRepository
	edgeRepo repositories.FlowEdgeRepository
	roleRepo repositories.RoleRepository
	logger   *zap.Logger
}

// NewFlowService creates a new FlowService.
func NewFlowService(
	flowRepo repositories.FlowRepository,
	nodeRepo repositories.FlowNodeRepository,
	edgeRepo repositories.FlowEdgeRepository,
	roleRepo repositories.RoleRepository,
	logger *zap.Logger,
) *FlowService {
	return &FlowService{
		flowRepo: flowRepo,
		nodeRepo: nodeRepo,
		edgeRepo: edgeRepo,
		roleRepo: roleRepo,
		logger:   logger.Named("flow-service"),
	}
}

// CreateFlow creates a root flow.
func (s *FlowService) CreateFlow(ctx context.Context, projectID uuid.UUID, name, description string) (*models.BusinessFlow, error) {
	flow, err := models.NewBusinessFlow(projectID, name, description)
	if err != nil {
		return nil, err
	}
	if err := s.flowRepo.Create(ctx, flow); err != nil {
		return nil, err
	}

	s.logger.Info("created flow",
		zap.String("project_id", projectID.String()),
		zap.String("flow_id", flow.ID.String()),
		zap.String("name", flow.Name))
	return flow, nil
}

// CreateChildFlow creates a flow nested under parentID and, when nodeID is
// given, links it to that node in one call. The node must belong to the
// parent flow and be a business block. Without a node the child starts as an
// orphan, to be linked later.
func (s *FlowService) CreateChildFlow(ctx context.Context, parentID uuid.UUID, nodeID *uuid.UUID, name, description string) (*models.BusinessFlow, error) {
	parent, err := s.GetFlow(ctx, parentID)
	if err != nil {
		return nil, err
	}

	var node *models.FlowNode
	if nodeID != nil {
		node, err = s.GetNode(ctx, *nodeID)
		if err != nil {
			return nil, err
		}
		if node.FlowID != parentID {
			return nil, apperrors.NewValidation("node_id", "node does not belong to the parent flow")
		}
		if !node.Type.IsBusinessBlock() {
			return nil, apperrors.NewValidation("node_id",
				fmt.Sprintf("node type %s cannot own a child flow", node.Type))
		}
	}

	child, err := models.NewChildFlow(parent, name, description)
	if err != nil {
		return nil, err
	}
	if err := s.flowRepo.Create(ctx, child); err != nil {
		return nil, err
	}

	if node != nil {
		if err := node.LinkChildFlow(child.ID); err != nil {
			return nil, err
		}
		if err := s.nodeRepo.Update(ctx, node); err != nil {
			return nil, err
		}
	}

	s.logger.Info("created child flow",
		zap.String("parent_id", parentID.String()),
		zap.String("flow_id", child.ID.String()),
		zap.Int("depth", child.Depth))
	return child, nil
}

// GetFlow fetches one flow.
func (s *FlowService) GetFlow(ctx context.Context, id uuid.UUID) (*models.BusinessFlow, error) {
	flow, err := s.flowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, fmt.Errorf("flow %s: %w", id, apperrors.ErrNotFound)
	}
	return flow, nil
}

// ListFlows returns every flow of a project, roots first.
func (s *FlowService) ListFlows(ctx context.Context, projectID uuid.UUID) ([]*models.BusinessFlow, error) {
	return s.flowRepo.ListByProject(ctx, projectID)
}

// ListRootFlows returns the project's top-level flows.
func (s *FlowService) ListRootFlows(ctx context.Context, projectID uuid.UUID) ([]*models.BusinessFlow, error) {
	return s.flowRepo.ListRoots(ctx, projectID)
}

// ListChildFlows returns the direct children of a flow, linked or orphaned.
func (s *FlowService) ListChildFlows(ctx context.Context, parentID uuid.UUID) ([]*models.BusinessFlow, error) {
	return s.flowRepo.ListChildren(ctx, parentID)
}

// FlowUpdate carries the optional fields of a flow update.
type FlowUpdate struct {
	Name        *string
	Description *string
}

// UpdateFlow applies a partial update. Ordinary edits never move the version;
// use IncrementVersion for that.
func (s *FlowService) UpdateFlow(ctx context.Context, id uuid.UUID, update FlowUpdate) (*models.BusinessFlow, error) {
	flow, err := s.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		if err := flow.Rename(*update.Name); err != nil {
			return nil, err
		}
	}
	if update.Description != nil {
		flow.SetDescription(*update.Description)
	}

	if err := s.flowRepo.Update(ctx, flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// IncrementVersion marks the flow as a new revision.
func (s *FlowService) IncrementVersion(ctx context.Context, id uuid.UUID) (*models.BusinessFlow, error) {
	flow, err := s.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	flow.IncrementVersion()
	if err := s.flowRepo.Update(ctx, flow); err != nil {
		return nil, err
	}

	s.logger.Info("incremented flow version",
		zap.String("flow_id", id.String()),
		zap.Int("version", flow.Version))
	return flow, nil
}

// DeleteFlow removes a flow with its nodes and edges. A flow that still has
// child flows cannot be deleted; detach or delete the children first. If a
// node in a parent flow owns this flow, that link is cleared.
func (s *FlowService) DeleteFlow(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetFlow(ctx, id); err != nil {
		return err
	}

	children, err := s.flowRepo.ListChildren(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return apperrors.NewValidation("flow_id",
			fmt.Sprintf("flow has %d child flows; delete or detach them first", len(children)))
	}

	owner, err := s.nodeRepo.FindByChildFlow(ctx, id)
	if err != nil {
		return err
	}
	if owner != nil {
		owner.UnlinkChildFlow()
		if err := s.nodeRepo.Update(ctx, owner); err != nil {
			return err
		}
	}

	if err := s.flowRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("deleted flow", zap.String("flow_id", id.String()))
	return nil
}

// Breadcrumb is one step of a flow's ancestry path.
type Breadcrumb struct {
	FlowID uuid.UUID `json:"flow_id"`
	Name   string    `json:"name"`
	Depth  int       `json:"depth"`
}

// Breadcrumbs returns the ancestry path of a flow, root first, the flow
// itself last. The walk keeps a visited set and a depth cap so a corrupted
// parent chain (a cycle, or a chain deeper than any legal hierarchy) fails
// with a validation error instead of looping.
func (s *FlowService) Breadcrumbs(ctx context.Context, id uuid.UUID) ([]Breadcrumb, error) {
	visited := make(map[uuid.UUID]bool)
	var path []Breadcrumb

	current, err := s.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}

	for {
		if visited[current.ID] {
			return nil, apperrors.NewValidation("parent_id",
				fmt.Sprintf("cycle in flow hierarchy at %s", current.ID))
		}
		if len(path) >= breadcrumbDepthLimit {
			return nil, apperrors.NewValidation("parent_id",
				fmt.Sprintf("flow hierarchy deeper than %d levels", breadcrumbDepthLimit))
		}
		visited[current.ID] = true
		path = append(path, Breadcrumb{FlowID: current.ID, Name: current.Name, Depth: current.Depth})

		if current.ParentID == nil {
			break
		}
		parent, err := s.flowRepo.GetByID(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			// Dangling parent pointer: treat the last resolvable flow as root.
			break
		}
		current = parent
	}

	// Walked child-to-root; callers want root-to-child.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// FlowDetail is the full canvas projection of one flow: the flow itself, its
// nodes in creation order, its edges, and the owning node in the parent flow
// when one exists.
type FlowDetail struct {
	Flow       *models.BusinessFlow `json:"flow"`
	Nodes      []*models.FlowNode   `json:"nodes"`
	Edges      []*models.FlowEdge   `json:"edges"`
	OwnerNode  *models.FlowNode     `json:"owner_node,omitempty"`
	Breadcrumb []Breadcrumb         `json:"breadcrumb"`
}

// GetFlowDetail loads everything a canvas render needs in one call.
func (s *FlowService) GetFlowDetail(ctx context.Context, id uuid.UUID) (*FlowDetail, error) {
	flow, err := s.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}

	nodes, err := s.nodeRepo.ListByFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	edges, err := s.edgeRepo.ListByFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.nodeRepo.FindByChildFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	crumbs, err := s.Breadcrumbs(ctx, id)
	if err != nil {
		return nil, err
	}

	return &FlowDetail{
		Flow:       flow,
		Nodes:      nodes,
		Edges:      edges,
		OwnerNode:  owner,
		Breadcrumb: crumbs,
	}, nil
}
