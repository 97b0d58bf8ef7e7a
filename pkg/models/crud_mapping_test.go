package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewCrudMapping_Validation(t *testing.T) {
	columnID := uuid.New()
	roleID := uuid.New()

	tests := []struct {
		name      string
		columnID  uuid.UUID
		operation Operation
		roleID    uuid.UUID
		wantErr   bool
	}{
		{"valid", columnID, OperationCreate, roleID, false},
		{"nil column", uuid.Nil, OperationCreate, roleID, true},
		{"nil role", columnID, OperationUpdate, uuid.Nil, true},
		{"unknown operation", columnID, Operation("UPSERT"), roleID, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCrudMapping(tt.columnID, tt.operation, tt.roleID)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCrudMapping() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCrudMapping_SetSite(t *testing.T) {
	mapping, err := NewCrudMapping(uuid.New(), OperationRead, uuid.New())
	if err != nil {
		t.Fatalf("NewCrudMapping failed: %v", err)
	}

	flowID := uuid.New()
	nodeID := uuid.New()

	// Node without flow is rejected.
	if err := mapping.SetSite(nil, &nodeID); err == nil {
		t.Error("SetSite with node but no flow should fail")
	}

	// Flow-level fact without a node is fine.
	if err := mapping.SetSite(&flowID, nil); err != nil {
		t.Errorf("SetSite(flow, nil) failed: %v", err)
	}

	if err := mapping.SetSite(&flowID, &nodeID); err != nil {
		t.Errorf("SetSite(flow, node) failed: %v", err)
	}
	if mapping.FlowID == nil || mapping.FlowNodeID == nil {
		t.Error("site not recorded")
	}

	// Clearing both is allowed.
	if err := mapping.SetSite(nil, nil); err != nil {
		t.Errorf("clearing site failed: %v", err)
	}
}

func TestCrudMapping_DuplicateFactsAreIndependent(t *testing.T) {
	columnID := uuid.New()
	roleID := uuid.New()

	a, _ := NewCrudMapping(columnID, OperationCreate, roleID)
	b, _ := NewCrudMapping(columnID, OperationCreate, roleID)

	if a.Equal(b) {
		t.Error("two facts over the same axes must keep independent identity")
	}
}
