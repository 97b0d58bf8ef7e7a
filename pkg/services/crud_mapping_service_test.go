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

type mappingFixture struct {
	svc         *CrudMappingService
	mappingRepo *mockCrudMappingRepo
	columnRepo  *mockColumnRepo
	tableRepo   *mockTableRepo
	roleRepo    *mockRoleRepo
	flowRepo    *mockFlowRepo
	nodeRepo    *mockFlowNodeRepo
	projectID   uuid.UUID
	table       *models.Table
	column      *models.Column
	role        *models.Role
}

func newMappingFixture(t *testing.T) *mappingFixture {
	t.Helper()
	f := &mappingFixture{
		mappingRepo: &mockCrudMappingRepo{},
		columnRepo:  &mockColumnRepo{},
		tableRepo:   &mockTableRepo{},
		roleRepo:    &mockRoleRepo{},
		flowRepo:    &mockFlowRepo{},
		nodeRepo:    &mockFlowNodeRepo{},
		projectID:   uuid.New(),
	}
	f.svc = NewCrudMappingService(f.mappingRepo, f.columnRepo, f.tableRepo,
		f.roleRepo, f.flowRepo, f.nodeRepo, zap.NewNop())

	table, err := models.NewTable(f.projectID, "orders", "", "", nil)
	require.NoError(t, err)
	f.table = table
	f.tableRepo.tables = append(f.tableRepo.tables, table)

	column, err := models.NewColumn(table.ID, "status", models.DataTypeString, 0)
	require.NoError(t, err)
	f.column = column
	f.columnRepo.columns = append(f.columnRepo.columns, column)

	role, err := models.NewRole(f.projectID, "Customer", models.RoleTypeHuman, 0)
	require.NoError(t, err)
	f.role = role
	f.roleRepo.roles = append(f.roleRepo.roles, role)

	return f
}

func (f *mappingFixture) addRole(t *testing.T, name string) *models.Role {
	t.Helper()
	role, err := models.NewRole(f.projectID, name, models.RoleTypeSystem, len(f.roleRepo.roles))
	require.NoError(t, err)
	f.roleRepo.roles = append(f.roleRepo.roles, role)
	return role
}

func (f *mappingFixture) record(t *testing.T, columnID uuid.UUID, op models.Operation, roleID uuid.UUID) *models.CrudMapping {
	t.Helper()
	mapping, err := f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID:  columnID,
		Operation: op,
		RoleID:    roleID,
	})
	require.NoError(t, err)
	return mapping
}

func TestCrudMappingService_CreateMapping(t *testing.T) {
	f := newMappingFixture(t)

	mapping, err := f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID:  f.column.ID,
		Operation: models.OperationUpdate,
		RoleID:    f.role.ID,
		How:       "status dropdown",
	})
	require.NoError(t, err)
	assert.Equal(t, "status dropdown", mapping.How)
}

func TestCrudMappingService_CreateMapping_UnknownReferences(t *testing.T) {
	f := newMappingFixture(t)

	_, err := f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID:  uuid.New(),
		Operation: models.OperationRead,
		RoleID:    f.role.ID,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID:  f.column.ID,
		Operation: models.OperationRead,
		RoleID:    uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCrudMappingService_CreateMapping_SiteValidation(t *testing.T) {
	f := newMappingFixture(t)

	flow, err := models.NewBusinessFlow(f.projectID, "Checkout", "")
	require.NoError(t, err)
	f.flowRepo.flows = append(f.flowRepo.flows, flow)

	node, err := models.NewFlowNode(flow.ID, models.NodeTypeProcess, "Pay", 0, 0)
	require.NoError(t, err)
	f.nodeRepo.nodes = append(f.nodeRepo.nodes, node)

	otherFlow, err := models.NewBusinessFlow(f.projectID, "Other", "")
	require.NoError(t, err)
	f.flowRepo.flows = append(f.flowRepo.flows, otherFlow)

	// Node without flow.
	_, err = f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID: f.column.ID, Operation: models.OperationCreate, RoleID: f.role.ID,
		FlowNodeID: &node.ID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// Node from a different flow.
	_, err = f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID: f.column.ID, Operation: models.OperationCreate, RoleID: f.role.ID,
		FlowID: &otherFlow.ID, FlowNodeID: &node.ID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// Correct pair.
	mapping, err := f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID: f.column.ID, Operation: models.OperationCreate, RoleID: f.role.ID,
		FlowID: &flow.ID, FlowNodeID: &node.ID,
	})
	require.NoError(t, err)
	assert.NotNil(t, mapping.FlowNodeID)
}

func TestCrudMappingService_DuplicateFactsAllowed(t *testing.T) {
	f := newMappingFixture(t)

	first := f.record(t, f.column.ID, models.OperationCreate, f.role.ID)
	second := f.record(t, f.column.ID, models.OperationCreate, f.role.ID)
	assert.NotEqual(t, first.ID, second.ID)

	facts, err := f.svc.ListByColumn(context.Background(), f.column.ID)
	require.NoError(t, err)
	assert.Len(t, facts, 2)
}

func (f *mappingFixture) recordDetail(t *testing.T, columnID uuid.UUID, op models.Operation, roleID uuid.UUID, how, description string) *models.CrudMapping {
	t.Helper()
	mapping, err := f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID:    columnID,
		Operation:   op,
		RoleID:      roleID,
		How:         how,
		Description: description,
	})
	require.NoError(t, err)
	return mapping
}

func TestCrudMappingService_Matrix_MergesDetailAcrossColumns(t *testing.T) {
	f := newMappingFixture(t)

	amount, err := models.NewColumn(f.table.ID, "amount", models.DataTypeFloat, 1)
	require.NoError(t, err)
	f.columnRepo.columns = append(f.columnRepo.columns, amount)

	// Same table, same operation, same role, on two different columns: the
	// cell carries both detail strings.
	f.recordDetail(t, f.column.ID, models.OperationUpdate, f.role.ID, "via-admin-console", "")
	f.recordDetail(t, amount.ID, models.OperationUpdate, f.role.ID, "via-batch-job", "")

	matrix, err := f.svc.Matrix(context.Background(), f.projectID)
	require.NoError(t, err)
	require.Len(t, matrix.Tables, 1)
	require.Len(t, matrix.Tables[0].Rows, 1)

	row := matrix.Tables[0].Rows[0]
	assert.Equal(t, "Customer", row.RoleName)
	assert.Equal(t, "via-admin-console, via-batch-job", row.Cells[models.OperationUpdate])
	_, hasDelete := row.Cells[models.OperationDelete]
	assert.False(t, hasDelete, "operations with no facts have no cell")
}

func TestCrudMappingService_Matrix_DoesNotLeakAcrossTables(t *testing.T) {
	f := newMappingFixture(t)

	shipments, err := models.NewTable(f.projectID, "shipments", "", "", nil)
	require.NoError(t, err)
	f.tableRepo.tables = append(f.tableRepo.tables, shipments)
	carrier, err := models.NewColumn(shipments.ID, "carrier", models.DataTypeString, 0)
	require.NoError(t, err)
	f.columnRepo.columns = append(f.columnRepo.columns, carrier)

	f.recordDetail(t, f.column.ID, models.OperationUpdate, f.role.ID, "status dropdown", "")
	f.recordDetail(t, carrier.ID, models.OperationUpdate, f.role.ID, "carrier portal", "")

	matrix, err := f.svc.Matrix(context.Background(), f.projectID)
	require.NoError(t, err)
	require.Len(t, matrix.Tables, 2)

	orders := matrix.Tables[0]
	require.Len(t, orders.Rows, 1)
	assert.Equal(t, "status dropdown", orders.Rows[0].Cells[models.OperationUpdate])
	assert.NotContains(t, orders.Rows[0].Cells[models.OperationUpdate], "carrier portal")

	shipmentsTable := matrix.Tables[1]
	require.Len(t, shipmentsTable.Rows, 1)
	assert.Equal(t, "carrier portal", shipmentsTable.Rows[0].Cells[models.OperationUpdate])
}

func TestCrudMappingService_Matrix_DeduplicatesAndDropsDanglingRoles(t *testing.T) {
	f := newMappingFixture(t)
	ghost := f.addRole(t, "Ghost")

	// Two facts with the exact same detail collapse to one cell entry; a
	// near-duplicate stays separate.
	f.recordDetail(t, f.column.ID, models.OperationRead, f.role.ID, "self-service", "")
	f.recordDetail(t, f.column.ID, models.OperationRead, f.role.ID, "self-service", "")
	f.recordDetail(t, f.column.ID, models.OperationRead, f.role.ID, "Self-Service", "")
	f.recordDetail(t, f.column.ID, models.OperationRead, ghost.ID, "ghost path", "")

	// The role disappears; its facts dangle.
	require.NoError(t, f.roleRepo.Delete(context.Background(), ghost.ID))

	matrix, err := f.svc.Matrix(context.Background(), f.projectID)
	require.NoError(t, err)
	require.Len(t, matrix.Tables, 1)
	require.Len(t, matrix.Tables[0].Rows, 1, "dangling roles get no row")

	row := matrix.Tables[0].Rows[0]
	assert.Equal(t, "Customer", row.RoleName)
	assert.Equal(t, "self-service, Self-Service", row.Cells[models.OperationRead])
}

func TestCrudMappingService_Matrix_BackedCellWithoutDetail(t *testing.T) {
	f := newMappingFixture(t)

	f.record(t, f.column.ID, models.OperationCreate, f.role.ID)

	matrix, err := f.svc.Matrix(context.Background(), f.projectID)
	require.NoError(t, err)
	require.Len(t, matrix.Tables[0].Rows, 1)

	// The fact carries no text, but the cell must still exist: a populated
	// cell means the role performs the operation somewhere on the table.
	cell, ok := matrix.Tables[0].Rows[0].Cells[models.OperationCreate]
	require.True(t, ok)
	assert.Empty(t, cell)
}

func TestCrudMappingService_UpdateMapping_ClearsSite(t *testing.T) {
	f := newMappingFixture(t)

	flow, err := models.NewBusinessFlow(f.projectID, "Checkout", "")
	require.NoError(t, err)
	f.flowRepo.flows = append(f.flowRepo.flows, flow)

	mapping, err := f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID: f.column.ID, Operation: models.OperationRead, RoleID: f.role.ID,
		FlowID: &flow.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, mapping.FlowID)

	updated, err := f.svc.UpdateMapping(context.Background(), mapping.ID, MappingUpdate{SetSite: true})
	require.NoError(t, err)
	assert.Nil(t, updated.FlowID)
	assert.Nil(t, updated.FlowNodeID)
}

func TestCrudMappingService_DeleteMapping(t *testing.T) {
	f := newMappingFixture(t)
	mapping := f.record(t, f.column.ID, models.OperationDelete, f.role.ID)

	require.NoError(t, f.svc.DeleteMapping(context.Background(), mapping.ID))

	_, err := f.svc.GetMapping(context.Background(), mapping.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCrudMappingService_ListByColumnAndOperation(t *testing.T) {
	f := newMappingFixture(t)
	admin := f.addRole(t, "Admin")

	f.record(t, f.column.ID, models.OperationCreate, f.role.ID)
	f.record(t, f.column.ID, models.OperationRead, f.role.ID)
	f.record(t, f.column.ID, models.OperationRead, admin.ID)

	reads, err := f.svc.ListByColumnAndOperation(context.Background(), f.column.ID, models.OperationRead)
	require.NoError(t, err)
	require.Len(t, reads, 2)
	for _, m := range reads {
		assert.Equal(t, models.OperationRead, m.Operation)
	}
}

// End-to-end traceability over a small order workflow: facts recorded at flow
// steps are retrievable both from the data side (column) and the process side
// (node).
func TestCrudMappingService_OrderLifecycleTraceability(t *testing.T) {
	f := newMappingFixture(t)
	warehouse := f.addRole(t, "Warehouse")

	flow, err := models.NewBusinessFlow(f.projectID, "order-processing", "")
	require.NoError(t, err)
	f.flowRepo.flows = append(f.flowRepo.flows, flow)

	createOrder, err := models.NewFlowNode(flow.ID, models.NodeTypeProcess, "create-order", 0, 0)
	require.NoError(t, err)
	ship, err := models.NewFlowNode(flow.ID, models.NodeTypeProcess, "ship", 200, 0)
	require.NoError(t, err)
	f.nodeRepo.nodes = append(f.nodeRepo.nodes, createOrder, ship)

	created, err := f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID:   f.column.ID,
		Operation:  models.OperationCreate,
		RoleID:     f.role.ID,
		FlowID:     &flow.ID,
		FlowNodeID: &createOrder.ID,
		How:        `default "pending"`,
	})
	require.NoError(t, err)

	updated, err := f.svc.CreateMapping(context.Background(), MappingInput{
		ColumnID:   f.column.ID,
		Operation:  models.OperationUpdate,
		RoleID:     warehouse.ID,
		FlowID:     &flow.ID,
		FlowNodeID: &ship.ID,
		How:        `set "shipped"`,
	})
	require.NoError(t, err)

	byColumn, err := f.svc.ListByColumn(context.Background(), f.column.ID)
	require.NoError(t, err)
	require.Len(t, byColumn, 2)

	byShip, err := f.svc.ListByFlowNode(context.Background(), ship.ID)
	require.NoError(t, err)
	require.Len(t, byShip, 1)
	assert.Equal(t, updated.ID, byShip[0].ID)
	assert.NotEqual(t, created.ID, byShip[0].ID)
}
