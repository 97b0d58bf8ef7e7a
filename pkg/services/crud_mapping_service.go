package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
	"github.com/tracelens-io/tracelens-engine/pkg/repositories"
)

// CrudMappingService manages traceability facts and their aggregations.
//
// Facts are written against live entities but read tolerantly: a fact whose
// role, flow or node has since been deleted still exists, and aggregations
// resolve the dangling reference to "absent" rather than failing the read.
type CrudMappingService struct {
	mappingRepo repositories.CrudMappingRepository
	columnRepo  repositories.ColumnRepository
	tableRepo   repositories.TableRepository
	roleRepo    repositories.RoleRepository
	flowRepo    repositories.FlowRepository
	nodeRepo    repositories.FlowNodeRepository
	logger      *zap.Logger
}

// NewCrudMappingService creates a new CrudMappingService.
func NewCrudMappingService(
	mappingRepo repositories.CrudMappingRepository,
	columnRepo repositories.ColumnRepository,
	tableRepo repositories.TableRepository,
	roleRepo repositories.RoleRepository,
	flowRepo repositories.FlowRepository,
	nodeRepo repositories.FlowNodeRepository,
	logger *zap.Logger,
) *CrudMappingService {
	return &CrudMappingService{
		mappingRepo: mappingRepo,
		columnRepo:  columnRepo,
		tableRepo:   tableRepo,
		roleRepo:    roleRepo,
		flowRepo:    flowRepo,
		nodeRepo:    nodeRepo,
		logger:      logger.Named("crud-mapping-service"),
	}
}

// MappingInput describes a traceability fact to record.
type MappingInput struct {
	ColumnID    uuid.UUID
	Operation   models.Operation
	RoleID      uuid.UUID
	FlowID      *uuid.UUID
	FlowNodeID  *uuid.UUID
	How         string
	Condition   string
	Description string
}

// CreateMapping records a fact. The column and role must exist at write time;
// the optional flow/node site is validated for existence and membership.
// Duplicate facts over the same axes are allowed, each with its own identity.
func (s *CrudMappingService) CreateMapping(ctx context.Context, input MappingInput) (*models.CrudMapping, error) {
	column, err := s.columnRepo.GetByID(ctx, input.ColumnID)
	if err != nil {
		return nil, err
	}
	if column == nil {
		return nil, fmt.Errorf("column %s: %w", input.ColumnID, apperrors.ErrNotFound)
	}

	role, err := s.roleRepo.GetByID(ctx, input.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, fmt.Errorf("role %s: %w", input.RoleID, apperrors.ErrNotFound)
	}

	if err := s.validateSite(ctx, input.FlowID, input.FlowNodeID); err != nil {
		return nil, err
	}

	mapping, err := models.NewCrudMapping(input.ColumnID, input.Operation, input.RoleID)
	if err != nil {
		return nil, err
	}
	if err := mapping.SetSite(input.FlowID, input.FlowNodeID); err != nil {
		return nil, err
	}
	mapping.SetHow(input.How)
	mapping.SetCondition(input.Condition)
	mapping.SetDescription(input.Description)

	if err := s.mappingRepo.Create(ctx, mapping); err != nil {
		return nil, err
	}

	s.logger.Debug("created crud mapping",
		zap.String("mapping_id", mapping.ID.String()),
		zap.String("column_id", input.ColumnID.String()),
		zap.String("operation", string(input.Operation)),
		zap.String("role_id", input.RoleID.String()))
	return mapping, nil
}

// GetMapping fetches one fact, even if its references dangle.
func (s *CrudMappingService) GetMapping(ctx context.Context, id uuid.UUID) (*models.CrudMapping, error) {
	mapping, err := s.mappingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, fmt.Errorf("crud mapping %s: %w", id, apperrors.ErrNotFound)
	}
	return mapping, nil
}

// ListByColumn returns a column's facts in operation order.
func (s *CrudMappingService) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.CrudMapping, error) {
	return s.mappingRepo.ListByColumn(ctx, columnID)
}

// ListByColumnAndOperation narrows a column's facts to one operation.
func (s *CrudMappingService) ListByColumnAndOperation(ctx context.Context, columnID uuid.UUID, operation models.Operation) ([]*models.CrudMapping, error) {
	return s.mappingRepo.ListByColumnAndOperation(ctx, columnID, operation)
}

// ListByRole returns a role's facts.
func (s *CrudMappingService) ListByRole(ctx context.Context, roleID uuid.UUID) ([]*models.CrudMapping, error) {
	return s.mappingRepo.ListByRole(ctx, roleID)
}

// ListByFlow returns the facts sited in a flow.
func (s *CrudMappingService) ListByFlow(ctx context.Context, flowID uuid.UUID) ([]*models.CrudMapping, error) {
	return s.mappingRepo.ListByFlow(ctx, flowID)
}

// ListByFlowNode returns the facts sited at one node.
func (s *CrudMappingService) ListByFlowNode(ctx context.Context, flowNodeID uuid.UUID) ([]*models.CrudMapping, error) {
	return s.mappingRepo.ListByFlowNode(ctx, flowNodeID)
}

// ListByTable returns the facts over all columns of a table.
func (s *CrudMappingService) ListByTable(ctx context.Context, tableID uuid.UUID) ([]*models.CrudMapping, error) {
	return s.mappingRepo.ListByTable(ctx, tableID)
}

// MappingUpdate carries the optional fields of a fact update. The axes
// (column, operation, role) are immutable; record a new fact instead.
type MappingUpdate struct {
	FlowID      *uuid.UUID
	FlowNodeID  *uuid.UUID
	SetSite     bool // true to apply FlowID/FlowNodeID, including clearing
	How         *string
	Condition   *string
	Description *string
}

// UpdateMapping applies a partial update to a fact's site and annotations.
func (s *CrudMappingService) UpdateMapping(ctx context.Context, id uuid.UUID, update MappingUpdate) (*models.CrudMapping, error) {
	mapping, err := s.GetMapping(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.SetSite {
		if err := s.validateSite(ctx, update.FlowID, update.FlowNodeID); err != nil {
			return nil, err
		}
		if err := mapping.SetSite(update.FlowID, update.FlowNodeID); err != nil {
			return nil, err
		}
	}
	if update.How != nil {
		mapping.SetHow(*update.How)
	}
	if update.Condition != nil {
		mapping.SetCondition(*update.Condition)
	}
	if update.Description != nil {
		mapping.SetDescription(*update.Description)
	}

	if err := s.mappingRepo.Update(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// DeleteMapping removes a fact.
func (s *CrudMappingService) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetMapping(ctx, id); err != nil {
		return err
	}
	return s.mappingRepo.Delete(ctx, id)
}

// validateSite checks the flow/node pair of a fact being written: a node
// requires its flow, both must exist, and the node must belong to the flow.
func (s *CrudMappingService) validateSite(ctx context.Context, flowID, flowNodeID *uuid.UUID) error {
	if flowNodeID != nil && flowID == nil {
		return apperrors.NewValidation("flow_id", "required when flow_node_id is set")
	}
	if flowID == nil {
		return nil
	}

	flow, err := s.flowRepo.GetByID(ctx, *flowID)
	if err != nil {
		return err
	}
	if flow == nil {
		return fmt.Errorf("flow %s: %w", *flowID, apperrors.ErrNotFound)
	}

	if flowNodeID != nil {
		node, err := s.nodeRepo.GetByID(ctx, *flowNodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return fmt.Errorf("flow node %s: %w", *flowNodeID, apperrors.ErrNotFound)
		}
		if node.FlowID != *flowID {
			return apperrors.NewValidation("flow_node_id", "node does not belong to the given flow")
		}
	}
	return nil
}

// MatrixRow is one role's populated cells for a table. An operation key being
// present means at least one fact backs it; its value is the merged detail
// text of those facts, which may be empty when none of them carry text. A
// missing key is absence of evidence, not impossibility.
type MatrixRow struct {
	RoleID   uuid.UUID                   `json:"role_id"`
	RoleName string                      `json:"role_name"`
	Cells    map[models.Operation]string `json:"cells"`
}

// MatrixTable groups matrix rows by catalog table.
type MatrixTable struct {
	TableID   uuid.UUID   `json:"table_id"`
	TableName string      `json:"table_name"`
	Rows      []MatrixRow `json:"rows"`
}

// CrudMatrix is the project-wide table-per-table CRUD view.
type CrudMatrix struct {
	ProjectID uuid.UUID     `json:"project_id"`
	Tables    []MatrixTable `json:"tables"`
}

// Matrix aggregates every fact of a project into the classic CRUD matrix:
// one cell per (table, operation, role), holding the merged how/description
// text of every fact recorded against that table's columns for that operation
// and role. Detail strings are comma-joined in fact order, each exact string
// at most once; near-duplicates are not merged. Roles appear in display
// order; roles with no facts on a table get no row there, and facts whose
// role was deleted contribute nothing.
func (s *CrudMappingService) Matrix(ctx context.Context, projectID uuid.UUID) (*CrudMatrix, error) {
	tables, err := s.tableRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	columns, err := s.columnRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	roles, err := s.roleRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	matrix := &CrudMatrix{ProjectID: projectID}
	for _, table := range tables {
		mt := MatrixTable{TableID: table.ID, TableName: table.Name}

		// Facts over this table's columns only, in column order.
		var facts []*models.CrudMapping
		for _, column := range columns {
			if column.TableID != table.ID {
				continue
			}
			columnFacts, err := s.mappingRepo.ListByColumn(ctx, column.ID)
			if err != nil {
				return nil, err
			}
			facts = append(facts, columnFacts...)
		}

		for _, role := range roles {
			row := MatrixRow{
				RoleID:   role.ID,
				RoleName: role.Name,
				Cells:    make(map[models.Operation]string),
			}
			for _, op := range models.Operations {
				detail, backed := mergeDetail(facts, op, role.ID)
				if backed {
					row.Cells[op] = detail
				}
			}
			if len(row.Cells) > 0 {
				mt.Rows = append(mt.Rows, row)
			}
		}
		matrix.Tables = append(matrix.Tables, mt)
	}
	return matrix, nil
}

// mergeDetail builds one matrix cell from the facts matching op and roleID:
// the how and description texts in fact order, each exact string at most
// once. The second return reports whether any fact matched at all, since a
// backed cell may still have no text.
func mergeDetail(facts []*models.CrudMapping, op models.Operation, roleID uuid.UUID) (string, bool) {
	seen := make(map[string]bool)
	var parts []string
	backed := false
	for _, fact := range facts {
		if fact.Operation != op || fact.RoleID != roleID {
			continue
		}
		backed = true
		for _, text := range []string{fact.How, fact.Description} {
			if text == "" || seen[text] {
				continue
			}
			seen[text] = true
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, ", "), backed
}
