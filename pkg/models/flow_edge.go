package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

// FlowEdge is a directed transition between two nodes of the same flow.
// No acyclicity is enforced: retry loops back to earlier nodes are valid.
type FlowEdge struct {
	ID           uuid.UUID `json:"id"`
	FlowID       uuid.UUID `json:"flow_id"`
	SourceNodeID uuid.UUID `json:"source_node_id"`
	TargetNodeID uuid.UUID `json:"target_node_id"`
	Label        string    `json:"label,omitempty"`
	Condition    string    `json:"condition,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewFlowEdge creates an edge. Same-flow membership of both endpoints is
// checked by the service, which can see the nodes.
func NewFlowEdge(flowID, sourceNodeID, targetNodeID uuid.UUID, label, condition string) (*FlowEdge, error) {
	if flowID == uuid.Nil {
		return nil, apperrors.NewValidation("flow_id", "must not be empty")
	}
	if sourceNodeID == uuid.Nil {
		return nil, apperrors.NewValidation("source_node_id", "must not be empty")
	}
	if targetNodeID == uuid.Nil {
		return nil, apperrors.NewValidation("target_node_id", "must not be empty")
	}

	now := time.Now().UTC()
	return &FlowEdge{
		ID:           uuid.New(),
		FlowID:       flowID,
		SourceNodeID: sourceNodeID,
		TargetNodeID: targetNodeID,
		Label:        label,
		Condition:    condition,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Equal reports identity-based equality.
func (e *FlowEdge) Equal(other *FlowEdge) bool {
	return other != nil && e.ID == other.ID
}

// SetLabel sets the transition label. Empty clears it.
func (e *FlowEdge) SetLabel(label string) {
	e.Label = label
	e.UpdatedAt = time.Now().UTC()
}

// SetCondition sets the guard condition. Empty clears it.
func (e *FlowEdge) SetCondition(condition string) {
	e.Condition = condition
	e.UpdatedAt = time.Now().UTC()
}
