package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

type flowFixture struct {
	svc       *FlowService
	flowRepo  *mockFlowRepo
	nodeRepo  *mockFlowNodeRepo
	edgeRepo  *mockFlowEdgeRepo
	roleRepo  *mockRoleRepo
	projectID uuid.UUID
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	f := &flowFixture{
		flowRepo:  &mockFlowRepo{},
		nodeRepo:  &mockFlowNodeRepo{},
		edgeRepo:  &mockFlowEdgeRepo{},
		roleRepo:  &mockRoleRepo{},
		projectID: uuid.New(),
	}
	f.svc = NewFlowService(f.flowRepo, f.nodeRepo, f.edgeRepo, f.roleRepo, zap.NewNop())
	return f
}

func (f *flowFixture) addRole(t *testing.T, name string, order, height int) *models.Role {
	t.Helper()
	role, err := models.NewRole(f.projectID, name, models.RoleTypeHuman, order)
	require.NoError(t, err)
	require.NoError(t, role.SetLaneHeight(height))
	f.roleRepo.roles = append(f.roleRepo.roles, role)
	return role
}

func TestFlowService_CreateChildFlow(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Order fulfillment", "")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, 1, root.Version)

	node, err := f.svc.AddNode(context.Background(), root.ID, models.NodeTypeProcess, "Pick items", 10, 10)
	require.NoError(t, err)

	child, err := f.svc.CreateChildFlow(context.Background(), root.ID, &node.ID, "Picking detail", "")
	require.NoError(t, err)
	assert.Equal(t, 1, child.Depth)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)
	require.NotNil(t, node.ChildFlowID)
	assert.Equal(t, child.ID, *node.ChildFlowID)
}

func TestFlowService_CreateChildFlow_RejectsNonBusinessBlock(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Order fulfillment", "")
	require.NoError(t, err)
	start, err := f.svc.AddNode(context.Background(), root.ID, models.NodeTypeStart, "Start", 0, 0)
	require.NoError(t, err)

	_, err = f.svc.CreateChildFlow(context.Background(), root.ID, &start.ID, "detail", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestFlowService_CreateChildFlow_OrphanWithoutNode(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Order fulfillment", "")
	require.NoError(t, err)

	child, err := f.svc.CreateChildFlow(context.Background(), root.ID, nil, "Orphan detail", "")
	require.NoError(t, err)

	children, err := f.svc.ListChildFlows(context.Background(), root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID, "orphan children stay listed under the parent")
}

func TestFlowService_Breadcrumbs(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)
	child, err := f.svc.CreateChildFlow(context.Background(), root.ID, nil, "Child", "")
	require.NoError(t, err)
	grandchild, err := f.svc.CreateChildFlow(context.Background(), child.ID, nil, "Grandchild", "")
	require.NoError(t, err)

	crumbs, err := f.svc.Breadcrumbs(context.Background(), grandchild.ID)
	require.NoError(t, err)
	require.Len(t, crumbs, 3)
	assert.Equal(t, "Root", crumbs[0].Name)
	assert.Equal(t, "Child", crumbs[1].Name)
	assert.Equal(t, "Grandchild", crumbs[2].Name)
	assert.Equal(t, 0, crumbs[0].Depth)
}

func TestFlowService_Breadcrumbs_DetectsCycle(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)
	child, err := f.svc.CreateChildFlow(context.Background(), root.ID, nil, "Child", "")
	require.NoError(t, err)

	// Corrupt the chain: root points back at its own child.
	childID := child.ID
	root.ParentID = &childID

	_, err = f.svc.Breadcrumbs(context.Background(), child.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestFlowService_Breadcrumbs_DanglingParentStops(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)
	ghost := uuid.New()
	root.ParentID = &ghost

	crumbs, err := f.svc.Breadcrumbs(context.Background(), root.ID)
	require.NoError(t, err)
	require.Len(t, crumbs, 1, "a dangling parent pointer truncates the path instead of failing")
}

func TestFlowService_IncrementVersion(t *testing.T) {
	f := newFlowFixture(t)

	flow, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)

	name := "Renamed"
	_, err = f.svc.UpdateFlow(context.Background(), flow.ID, FlowUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 1, flow.Version, "ordinary edits do not move the version")

	bumped, err := f.svc.IncrementVersion(context.Background(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, bumped.Version)
}

func TestFlowService_DeleteFlow_RefusesWithChildren(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)
	child, err := f.svc.CreateChildFlow(context.Background(), root.ID, nil, "Child", "")
	require.NoError(t, err)

	err = f.svc.DeleteFlow(context.Background(), root.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, f.svc.DeleteFlow(context.Background(), child.ID))
	require.NoError(t, f.svc.DeleteFlow(context.Background(), root.ID))
}

func TestFlowService_DeleteFlow_UnlinksOwningNode(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)
	node, err := f.svc.AddNode(context.Background(), root.ID, models.NodeTypeProcess, "Step", 0, 0)
	require.NoError(t, err)
	child, err := f.svc.CreateChildFlow(context.Background(), root.ID, &node.ID, "Child", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteFlow(context.Background(), child.ID))
	assert.Nil(t, node.ChildFlowID)
}

func TestFlowService_AddNode_DerivesRoleFromLane(t *testing.T) {
	f := newFlowFixture(t)
	customer := f.addRole(t, "Customer", 0, 100)
	warehouse := f.addRole(t, "Warehouse", 1, 200)

	flow, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)

	inFirst, err := f.svc.AddNode(context.Background(), flow.ID, models.NodeTypeProcess, "Order", 10, 50)
	require.NoError(t, err)
	require.NotNil(t, inFirst.RoleID)
	assert.Equal(t, customer.ID, *inFirst.RoleID)

	inSecond, err := f.svc.AddNode(context.Background(), flow.ID, models.NodeTypeProcess, "Pick", 10, 150)
	require.NoError(t, err)
	require.NotNil(t, inSecond.RoleID)
	assert.Equal(t, warehouse.ID, *inSecond.RoleID)

	below, err := f.svc.AddNode(context.Background(), flow.ID, models.NodeTypeEnd, "Done", 10, 500)
	require.NoError(t, err)
	assert.Nil(t, below.RoleID, "a node below the last lane has no role")
}

func TestFlowService_MoveNode_ReassignsRole(t *testing.T) {
	f := newFlowFixture(t)
	f.addRole(t, "Customer", 0, 100)
	warehouse := f.addRole(t, "Warehouse", 1, 200)

	flow, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)
	node, err := f.svc.AddNode(context.Background(), flow.ID, models.NodeTypeProcess, "Order", 10, 50)
	require.NoError(t, err)

	moved, err := f.svc.MoveNode(context.Background(), node.ID, 10, 150)
	require.NoError(t, err)
	assert.Equal(t, 150.0, moved.PositionY)
	require.NotNil(t, moved.RoleID)
	assert.Equal(t, warehouse.ID, *moved.RoleID, "moving across a lane boundary reassigns the role")
}

func TestFlowService_LinkChildFlow_Idempotent(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)
	node, err := f.svc.AddNode(context.Background(), root.ID, models.NodeTypeDecision, "Check", 0, 0)
	require.NoError(t, err)
	child, err := f.svc.CreateChildFlow(context.Background(), root.ID, nil, "Child", "")
	require.NoError(t, err)

	_, err = f.svc.LinkChildFlow(context.Background(), node.ID, child.ID)
	require.NoError(t, err)
	_, err = f.svc.LinkChildFlow(context.Background(), node.ID, child.ID)
	require.NoError(t, err, "relinking the same flow is a no-op")

	_, err = f.svc.LinkChildFlow(context.Background(), node.ID, node.FlowID)
	require.Error(t, err, "a node cannot own its own flow")
}

func TestFlowService_AddEdge_RejectsForeignNodes(t *testing.T) {
	f := newFlowFixture(t)

	flowA, err := f.svc.CreateFlow(context.Background(), f.projectID, "A", "")
	require.NoError(t, err)
	flowB, err := f.svc.CreateFlow(context.Background(), f.projectID, "B", "")
	require.NoError(t, err)

	inA, err := f.svc.AddNode(context.Background(), flowA.ID, models.NodeTypeStart, "Start", 0, 0)
	require.NoError(t, err)
	inB, err := f.svc.AddNode(context.Background(), flowB.ID, models.NodeTypeEnd, "End", 0, 0)
	require.NoError(t, err)

	_, err = f.svc.AddEdge(context.Background(), flowA.ID, inA.ID, inB.ID, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestFlowService_AddEdge_CyclesAreLegal(t *testing.T) {
	f := newFlowFixture(t)

	flow, err := f.svc.CreateFlow(context.Background(), f.projectID, "Retry loop", "")
	require.NoError(t, err)
	a, err := f.svc.AddNode(context.Background(), flow.ID, models.NodeTypeProcess, "Attempt", 0, 0)
	require.NoError(t, err)
	b, err := f.svc.AddNode(context.Background(), flow.ID, models.NodeTypeDecision, "Succeeded?", 0, 0)
	require.NoError(t, err)

	_, err = f.svc.AddEdge(context.Background(), flow.ID, a.ID, b.ID, "", "")
	require.NoError(t, err)
	_, err = f.svc.AddEdge(context.Background(), flow.ID, b.ID, a.ID, "no", "")
	require.NoError(t, err, "an edge back to an earlier node is a valid retry loop")
}

func TestFlowService_GetFlowDetail(t *testing.T) {
	f := newFlowFixture(t)

	root, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)
	owner, err := f.svc.AddNode(context.Background(), root.ID, models.NodeTypeProcess, "Step", 0, 0)
	require.NoError(t, err)
	child, err := f.svc.CreateChildFlow(context.Background(), root.ID, &owner.ID, "Child", "")
	require.NoError(t, err)

	a, err := f.svc.AddNode(context.Background(), child.ID, models.NodeTypeStart, "Start", 0, 0)
	require.NoError(t, err)
	b, err := f.svc.AddNode(context.Background(), child.ID, models.NodeTypeEnd, "End", 0, 100)
	require.NoError(t, err)
	_, err = f.svc.AddEdge(context.Background(), child.ID, a.ID, b.ID, "", "")
	require.NoError(t, err)

	detail, err := f.svc.GetFlowDetail(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Nodes, 2)
	assert.Len(t, detail.Edges, 1)
	require.NotNil(t, detail.OwnerNode)
	assert.Equal(t, owner.ID, detail.OwnerNode.ID)
	require.Len(t, detail.Breadcrumb, 2)
	assert.Equal(t, "Root", detail.Breadcrumb[0].Name)
}

func TestFlowService_GetFlow_NotFound(t *testing.T) {
	f := newFlowFixture(t)

	_, err := f.svc.GetFlow(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestFlowService_ImportNodes_SharesSwimlaneDerivation(t *testing.T) {
	f := newFlowFixture(t)
	customer := f.addRole(t, "Customer", 0, 100)
	warehouse := f.addRole(t, "Warehouse", 1, 200)

	flow, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)

	result, err := f.svc.ImportNodes(context.Background(), flow.ID, []NodeImport{
		{Type: models.NodeTypeStart, Label: "Start", X: 10, Y: 50},
		{Type: models.NodeTypeProcess, Label: "Pick", X: 10, Y: 150},
		{Type: models.NodeTypeEnd, Label: "Done", X: 10, Y: 900},
	})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 3)
	assert.Empty(t, result.Skipped)

	require.NotNil(t, result.Nodes[0].RoleID)
	assert.Equal(t, customer.ID, *result.Nodes[0].RoleID)
	require.NotNil(t, result.Nodes[1].RoleID)
	assert.Equal(t, warehouse.ID, *result.Nodes[1].RoleID)
	assert.Nil(t, result.Nodes[2].RoleID, "a node below the last lane has no role")
}

func TestFlowService_ImportNodes_SkipsInvalidEntries(t *testing.T) {
	f := newFlowFixture(t)

	flow, err := f.svc.CreateFlow(context.Background(), f.projectID, "Root", "")
	require.NoError(t, err)

	result, err := f.svc.ImportNodes(context.Background(), flow.ID, []NodeImport{
		{Type: models.NodeTypeProcess, Label: "Valid", X: 0, Y: 0},
		{Type: models.NodeType("BOGUS"), Label: "Invalid", X: 0, Y: 0},
		{Type: models.NodeTypeProcess, Label: "", X: 0, Y: 0},
	})
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 1)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, 2, result.Skipped[0].Line)
	assert.Equal(t, 3, result.Skipped[1].Line)
}

func TestFlowService_ImportNodes_UnknownFlow(t *testing.T) {
	f := newFlowFixture(t)

	_, err := f.svc.ImportNodes(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
