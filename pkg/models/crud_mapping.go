package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

// Operation is one of the four CRUD verbs.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationRead   Operation = "READ"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// Operations lists the verbs in matrix display order.
var Operations = []Operation{OperationCreate, OperationRead, OperationUpdate, OperationDelete}

var validOperations = map[Operation]bool{
	OperationCreate: true,
	OperationRead:   true,
	OperationUpdate: true,
	OperationDelete: true,
}

// ParseOperation validates an operation string.
func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	if !validOperations[op] {
		return "", apperrors.NewValidation("operation", fmt.Sprintf("unknown operation %q", s))
	}
	return op, nil
}

// CrudMapping is one traceability fact: role R performs operation O on column
// C, optionally as part of node N within flow F, via mechanism How, under
// Condition.
//
// The relation is deliberately not unique-keyed: two facts for the same
// (column, operation) pair are legal, e.g. a self-service path and an admin
// override path both creating the same column. Every reference is a plain
// identifier; when a referenced entity is deleted the fact dangles and read
// paths resolve it to "absent" rather than failing.
type CrudMapping struct {
	ID          uuid.UUID  `json:"id"`
	ColumnID    uuid.UUID  `json:"column_id"`
	Operation   Operation  `json:"operation"`
	RoleID      uuid.UUID  `json:"role_id"`
	FlowID      *uuid.UUID `json:"flow_id,omitempty"`
	FlowNodeID  *uuid.UUID `json:"flow_node_id,omitempty"`
	How         string     `json:"how,omitempty"`
	Condition   string     `json:"condition,omitempty"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewCrudMapping creates a traceability fact.
func NewCrudMapping(columnID uuid.UUID, operation Operation, roleID uuid.UUID) (*CrudMapping, error) {
	if columnID == uuid.Nil {
		return nil, apperrors.NewValidation("column_id", "must not be empty")
	}
	if roleID == uuid.Nil {
		return nil, apperrors.NewValidation("role_id", "must not be empty")
	}
	if !validOperations[operation] {
		return nil, apperrors.NewValidation("operation", fmt.Sprintf("unknown operation %q", operation))
	}

	now := time.Now().UTC()
	return &CrudMapping{
		ID:        uuid.New(),
		ColumnID:  columnID,
		Operation: operation,
		RoleID:    roleID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Equal reports identity-based equality.
func (m *CrudMapping) Equal(other *CrudMapping) bool {
	return other != nil && m.ID == other.ID
}

// SetSite records where in the process the fact applies. Passing a node
// without its flow is rejected; a flow without a node is fine (flow-level
// fact).
func (m *CrudMapping) SetSite(flowID, flowNodeID *uuid.UUID) error {
	if flowNodeID != nil && flowID == nil {
		return apperrors.NewValidation("flow_id", "required when flow_node_id is set")
	}
	m.FlowID = flowID
	m.FlowNodeID = flowNodeID
	m.touch()
	return nil
}

// SetHow records the mechanism text. Empty clears it.
func (m *CrudMapping) SetHow(how string) {
	m.How = how
	m.touch()
}

// SetCondition records the guard text. Empty clears it.
func (m *CrudMapping) SetCondition(condition string) {
	m.Condition = condition
	m.touch()
}

// SetDescription records the free-text rationale. Empty clears it.
func (m *CrudMapping) SetDescription(description string) {
	m.Description = description
	m.touch()
}

func (m *CrudMapping) touch() {
	m.UpdatedAt = time.Now().UTC()
}
