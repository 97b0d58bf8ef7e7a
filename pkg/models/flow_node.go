package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

// NodeType is the kind of step a FlowNode represents.
type NodeType string

const (
	NodeTypeStart             NodeType = "START"
	NodeTypeEnd               NodeType = "END"
	NodeTypeProcess           NodeType = "PROCESS"
	NodeTypeDecision          NodeType = "DECISION"
	NodeTypeSystemIntegration NodeType = "SYSTEM_INTEGRATION"
	NodeTypeManualOperation   NodeType = "MANUAL_OPERATION"
	NodeTypeDataStore         NodeType = "DATA_STORE"
)

var validNodeTypes = map[NodeType]bool{
	NodeTypeStart:             true,
	NodeTypeEnd:               true,
	NodeTypeProcess:           true,
	NodeTypeDecision:          true,
	NodeTypeSystemIntegration: true,
	NodeTypeManualOperation:   true,
	NodeTypeDataStore:         true,
}

// ParseNodeType validates a node type string.
func ParseNodeType(s string) (NodeType, error) {
	nt := NodeType(s)
	if !validNodeTypes[nt] {
		return "", apperrors.NewValidation("type", fmt.Sprintf("unknown node type %q", s))
	}
	return nt, nil
}

// IsBusinessBlock reports whether nodes of this type may own a child flow.
// Only PROCESS and DECISION steps decompose into sub-flows.
func (nt NodeType) IsBusinessBlock() bool {
	return nt == NodeTypeProcess || nt == NodeTypeDecision
}

// NodeMetadata holds free-form per-node annotations as JSONB.
type NodeMetadata map[string]any

// Scan implements sql.Scanner for reading JSONB from the database.
func (m *NodeMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = nil
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer for writing JSONB to the database.
func (m NodeMetadata) Value() (interface{}, error) {
	if m == nil {
		return json.Marshal(map[string]any{})
	}
	return json.Marshal(m)
}

// FlowNode is one typed step of a BusinessFlow on the diagram canvas.
//
// ChildFlowID is a one-directional ownership link from node to flow: the
// reverse pointer is not materialized, so resolving "which node owns flow X"
// requires a scan. Deleting the node does not delete the child flow.
type FlowNode struct {
	ID          uuid.UUID    `json:"id"`
	FlowID      uuid.UUID    `json:"flow_id"`
	Type        NodeType     `json:"type"`
	Label       string       `json:"label"`
	Description string       `json:"description,omitempty"`
	PositionX   float64      `json:"position_x"`
	PositionY   float64      `json:"position_y"`
	RoleID      *uuid.UUID   `json:"role_id,omitempty"`
	ChildFlowID *uuid.UUID   `json:"child_flow_id,omitempty"`
	Metadata    NodeMetadata `json:"metadata,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewFlowNode creates a node at the given canvas position.
func NewFlowNode(flowID uuid.UUID, nodeType NodeType, label string, x, y float64) (*FlowNode, error) {
	if flowID == uuid.Nil {
		return nil, apperrors.NewValidation("flow_id", "must not be empty")
	}
	if !validNodeTypes[nodeType] {
		return nil, apperrors.NewValidation("type", fmt.Sprintf("unknown node type %q", nodeType))
	}
	if label == "" {
		return nil, apperrors.NewValidation("label", "must not be empty")
	}

	now := time.Now().UTC()
	return &FlowNode{
		ID:        uuid.New(),
		FlowID:    flowID,
		Type:      nodeType,
		Label:     label,
		PositionX: x,
		PositionY: y,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Equal reports identity-based equality.
func (n *FlowNode) Equal(other *FlowNode) bool {
	return other != nil && n.ID == other.ID
}

// SetLabel changes the node label.
func (n *FlowNode) SetLabel(label string) error {
	if label == "" {
		return apperrors.NewValidation("label", "must not be empty")
	}
	n.Label = label
	n.touch()
	return nil
}

// SetDescription sets the description. Empty clears it.
func (n *FlowNode) SetDescription(description string) {
	n.Description = description
	n.touch()
}

// MoveTo updates the canvas position. Role reassignment from the new lane is
// the caller's job via the swimlane derivation, on every path that moves
// nodes (interactive edit and bulk import alike).
func (n *FlowNode) MoveTo(x, y float64) {
	n.PositionX = x
	n.PositionY = y
	n.touch()
}

// AssignRole sets the owning role. nil clears it.
func (n *FlowNode) AssignRole(roleID *uuid.UUID) {
	n.RoleID = roleID
	n.touch()
}

// LinkChildFlow records that this step decomposes into the given sub-flow.
// Only business blocks (PROCESS, DECISION) may own a child flow; the rule is
// enforced here on every mutation, not just at construction. Relinking the
// same flow id is a no-op.
func (n *FlowNode) LinkChildFlow(childFlowID uuid.UUID) error {
	if childFlowID == uuid.Nil {
		return apperrors.NewValidation("child_flow_id", "must not be empty")
	}
	if !n.Type.IsBusinessBlock() {
		return apperrors.NewValidation("child_flow_id",
			fmt.Sprintf("node type %s cannot own a child flow", n.Type))
	}
	if n.ChildFlowID != nil && *n.ChildFlowID == childFlowID {
		return nil
	}
	n.ChildFlowID = &childFlowID
	n.touch()
	return nil
}

// UnlinkChildFlow clears the link without deleting the referenced flow.
// Sub-flows can be detached and relinked, e.g. during a refactor.
func (n *FlowNode) UnlinkChildFlow() {
	if n.ChildFlowID == nil {
		return
	}
	n.ChildFlowID = nil
	n.touch()
}

// SetMetadata replaces the metadata map.
func (n *FlowNode) SetMetadata(metadata NodeMetadata) {
	n.Metadata = metadata
	n.touch()
}

// Validate re-checks the node invariants.
func (n *FlowNode) Validate() error {
	if n.Label == "" {
		return apperrors.NewValidation("label", "must not be empty")
	}
	if !validNodeTypes[n.Type] {
		return apperrors.NewValidation("type", fmt.Sprintf("unknown node type %q", n.Type))
	}
	if n.ChildFlowID != nil && !n.Type.IsBusinessBlock() {
		return apperrors.NewValidation("child_flow_id",
			fmt.Sprintf("node type %s cannot own a child flow", n.Type))
	}
	return nil
}

func (n *FlowNode) touch() {
	n.UpdatedAt = time.Now().UTC()
}
