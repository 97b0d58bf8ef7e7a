package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

// In-memory repository doubles. Each keeps its rows in a slice, honors the
// (nil, nil) absence contract, and can be forced to fail via the *Err fields.

type mockProjectRepo struct {
	projects  []*models.Project
	createErr error
	listErr   error
}

func (m *mockProjectRepo) Create(_ context.Context, project *models.Project) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.projects = append(m.projects, project)
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	for _, p := range m.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProjectRepo) GetByName(_ context.Context, name models.Slug) (*models.Project, error) {
	for _, p := range m.projects {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProjectRepo) List(_ context.Context) ([]*models.Project, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.projects, nil
}

func (m *mockProjectRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, p := range m.projects {
		if p.ID == id {
			m.projects = append(m.projects[:i], m.projects[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockTableRepo struct {
	tables    []*models.Table
	createErr error
}

func (m *mockTableRepo) Create(_ context.Context, table *models.Table) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.tables = append(m.tables, table)
	return nil
}

func (m *mockTableRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Table, error) {
	for _, t := range m.tables {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTableRepo) GetByName(_ context.Context, projectID uuid.UUID, name string) (*models.Table, error) {
	for _, t := range m.tables {
		if t.ProjectID == projectID && t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTableRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*models.Table, error) {
	var result []*models.Table
	for _, t := range m.tables {
		if t.ProjectID == projectID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockTableRepo) Update(_ context.Context, table *models.Table) error {
	for i, t := range m.tables {
		if t.ID == table.ID {
			m.tables[i] = table
			return nil
		}
	}
	return nil
}

func (m *mockTableRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, t := range m.tables {
		if t.ID == id {
			m.tables = append(m.tables[:i], m.tables[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockColumnRepo struct {
	columns   []*models.Column
	createErr error
}

func (m *mockColumnRepo) Create(_ context.Context, column *models.Column) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.columns = append(m.columns, column)
	return nil
}

func (m *mockColumnRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Column, error) {
	for _, c := range m.columns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockColumnRepo) GetByName(_ context.Context, tableID uuid.UUID, name string) (*models.Column, error) {
	for _, c := range m.columns {
		if c.TableID == tableID && c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockColumnRepo) ListByTable(_ context.Context, tableID uuid.UUID) ([]*models.Column, error) {
	var result []*models.Column
	for _, c := range m.columns {
		if c.TableID == tableID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockColumnRepo) ListByProject(_ context.Context, _ uuid.UUID) ([]*models.Column, error) {
	return m.columns, nil
}

func (m *mockColumnRepo) Update(_ context.Context, column *models.Column) error {
	for i, c := range m.columns {
		if c.ID == column.ID {
			m.columns[i] = column
			return nil
		}
	}
	return nil
}

func (m *mockColumnRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, c := range m.columns {
		if c.ID == id {
			m.columns = append(m.columns[:i], m.columns[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockRoleRepo struct {
	roles      []*models.Role
	createErr  error
	reorderErr error
}

func (m *mockRoleRepo) Create(_ context.Context, role *models.Role) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.roles = append(m.roles, role)
	return nil
}

func (m *mockRoleRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Role, error) {
	for _, r := range m.roles {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRoleRepo) GetByName(_ context.Context, projectID uuid.UUID, name string) (*models.Role, error) {
	for _, r := range m.roles {
		if r.ProjectID == projectID && r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRoleRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*models.Role, error) {
	var result []*models.Role
	for _, r := range m.roles {
		if r.ProjectID == projectID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockRoleRepo) Update(_ context.Context, role *models.Role) error {
	for i, r := range m.roles {
		if r.ID == role.ID {
			m.roles[i] = role
			return nil
		}
	}
	return nil
}

func (m *mockRoleRepo) Reorder(_ context.Context, projectID uuid.UUID, orderedIDs []uuid.UUID) error {
	if m.reorderErr != nil {
		return m.reorderErr
	}
	for i, id := range orderedIDs {
		for _, r := range m.roles {
			if r.ProjectID == projectID && r.ID == id {
				r.Order = i
			}
		}
	}
	return nil
}

func (m *mockRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, r := range m.roles {
		if r.ID == id {
			m.roles = append(m.roles[:i], m.roles[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockFlowRepo struct {
	flows     []*models.BusinessFlow
	createErr error
}

func (m *mockFlowRepo) Create(_ context.Context, flow *models.BusinessFlow) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.flows = append(m.flows, flow)
	return nil
}

func (m *mockFlowRepo) GetByID(_ context.Context, id uuid.UUID) (*models.BusinessFlow, error) {
	for _, f := range m.flows {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, nil
}

func (m *mockFlowRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*models.BusinessFlow, error) {
	var result []*models.BusinessFlow
	for _, f := range m.flows {
		if f.ProjectID == projectID {
			result = append(result, f)
		}
	}
	return result, nil
}

func (m *mockFlowRepo) ListRoots(_ context.Context, projectID uuid.UUID) ([]*models.BusinessFlow, error) {
	var result []*models.BusinessFlow
	for _, f := range m.flows {
		if f.ProjectID == projectID && f.ParentID == nil {
			result = append(result, f)
		}
	}
	return result, nil
}

func (m *mockFlowRepo) ListChildren(_ context.Context, parentID uuid.UUID) ([]*models.BusinessFlow, error) {
	var result []*models.BusinessFlow
	for _, f := range m.flows {
		if f.ParentID != nil && *f.ParentID == parentID {
			result = append(result, f)
		}
	}
	return result, nil
}

func (m *mockFlowRepo) Update(_ context.Context, flow *models.BusinessFlow) error {
	for i, f := range m.flows {
		if f.ID == flow.ID {
			m.flows[i] = flow
			return nil
		}
	}
	return nil
}

func (m *mockFlowRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, f := range m.flows {
		if f.ID == id {
			m.flows = append(m.flows[:i], m.flows[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockFlowNodeRepo struct {
	nodes     []*models.FlowNode
	createErr error
}

func (m *mockFlowNodeRepo) Create(_ context.Context, node *models.FlowNode) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nodes = append(m.nodes, node)
	return nil
}

func (m *mockFlowNodeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.FlowNode, error) {
	for _, n := range m.nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, nil
}

func (m *mockFlowNodeRepo) ListByFlow(_ context.Context, flowID uuid.UUID) ([]*models.FlowNode, error) {
	var result []*models.FlowNode
	for _, n := range m.nodes {
		if n.FlowID == flowID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *mockFlowNodeRepo) FindByChildFlow(_ context.Context, childFlowID uuid.UUID) (*models.FlowNode, error) {
	for _, n := range m.nodes {
		if n.ChildFlowID != nil && *n.ChildFlowID == childFlowID {
			return n, nil
		}
	}
	return nil, nil
}

func (m *mockFlowNodeRepo) Update(_ context.Context, node *models.FlowNode) error {
	for i, n := range m.nodes {
		if n.ID == node.ID {
			m.nodes[i] = node
			return nil
		}
	}
	return nil
}

func (m *mockFlowNodeRepo) ClearRole(_ context.Context, roleID uuid.UUID) error {
	for _, n := range m.nodes {
		if n.RoleID != nil && *n.RoleID == roleID {
			n.RoleID = nil
		}
	}
	return nil
}

func (m *mockFlowNodeRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, n := range m.nodes {
		if n.ID == id {
			m.nodes = append(m.nodes[:i], m.nodes[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockFlowEdgeRepo struct {
	edges     []*models.FlowEdge
	createErr error
}

func (m *mockFlowEdgeRepo) Create(_ context.Context, edge *models.FlowEdge) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.edges = append(m.edges, edge)
	return nil
}

func (m *mockFlowEdgeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.FlowEdge, error) {
	for _, e := range m.edges {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockFlowEdgeRepo) ListByFlow(_ context.Context, flowID uuid.UUID) ([]*models.FlowEdge, error) {
	var result []*models.FlowEdge
	for _, e := range m.edges {
		if e.FlowID == flowID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockFlowEdgeRepo) Update(_ context.Context, edge *models.FlowEdge) error {
	for i, e := range m.edges {
		if e.ID == edge.ID {
			m.edges[i] = edge
			return nil
		}
	}
	return nil
}

func (m *mockFlowEdgeRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, e := range m.edges {
		if e.ID == id {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockCrudMappingRepo struct {
	mappings  []*models.CrudMapping
	createErr error
}

func (m *mockCrudMappingRepo) Create(_ context.Context, mapping *models.CrudMapping) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mappings = append(m.mappings, mapping)
	return nil
}

func (m *mockCrudMappingRepo) GetByID(_ context.Context, id uuid.UUID) (*models.CrudMapping, error) {
	for _, mp := range m.mappings {
		if mp.ID == id {
			return mp, nil
		}
	}
	return nil, nil
}

func (m *mockCrudMappingRepo) ListByColumn(_ context.Context, columnID uuid.UUID) ([]*models.CrudMapping, error) {
	var result []*models.CrudMapping
	for _, mp := range m.mappings {
		if mp.ColumnID == columnID {
			result = append(result, mp)
		}
	}
	return result, nil
}

func (m *mockCrudMappingRepo) ListByColumnAndOperation(_ context.Context, columnID uuid.UUID, operation models.Operation) ([]*models.CrudMapping, error) {
	var result []*models.CrudMapping
	for _, mp := range m.mappings {
		if mp.ColumnID == columnID && mp.Operation == operation {
			result = append(result, mp)
		}
	}
	return result, nil
}

func (m *mockCrudMappingRepo) ListByRole(_ context.Context, roleID uuid.UUID) ([]*models.CrudMapping, error) {
	var result []*models.CrudMapping
	for _, mp := range m.mappings {
		if mp.RoleID == roleID {
			result = append(result, mp)
		}
	}
	return result, nil
}

func (m *mockCrudMappingRepo) ListByFlow(_ context.Context, flowID uuid.UUID) ([]*models.CrudMapping, error) {
	var result []*models.CrudMapping
	for _, mp := range m.mappings {
		if mp.FlowID != nil && *mp.FlowID == flowID {
			result = append(result, mp)
		}
	}
	return result, nil
}

func (m *mockCrudMappingRepo) ListByFlowNode(_ context.Context, flowNodeID uuid.UUID) ([]*models.CrudMapping, error) {
	var result []*models.CrudMapping
	for _, mp := range m.mappings {
		if mp.FlowNodeID != nil && *mp.FlowNodeID == flowNodeID {
			result = append(result, mp)
		}
	}
	return result, nil
}

func (m *mockCrudMappingRepo) ListByTable(_ context.Context, _ uuid.UUID) ([]*models.CrudMapping, error) {
	return m.mappings, nil
}

func (m *mockCrudMappingRepo) Update(_ context.Context, mapping *models.CrudMapping) error {
	for i, mp := range m.mappings {
		if mp.ID == mapping.ID {
			m.mappings[i] = mapping
			return nil
		}
	}
	return nil
}

func (m *mockCrudMappingRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, mp := range m.mappings {
		if mp.ID == id {
			m.mappings = append(m.mappings[:i], m.mappings[i+1:]...)
			return nil
		}
	}
	return nil
}
