package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestNodeType_IsBusinessBlock(t *testing.T) {
	tests := []struct {
		nodeType NodeType
		want     bool
	}{
		{NodeTypeProcess, true},
		{NodeTypeDecision, true},
		{NodeTypeStart, false},
		{NodeTypeEnd, false},
		{NodeTypeSystemIntegration, false},
		{NodeTypeManualOperation, false},
		{NodeTypeDataStore, false},
	}

	for _, tt := range tests {
		if got := tt.nodeType.IsBusinessBlock(); got != tt.want {
			t.Errorf("%s.IsBusinessBlock() = %v, want %v", tt.nodeType, got, tt.want)
		}
	}
}

func TestFlowNode_LinkChildFlow(t *testing.T) {
	flowID := uuid.New()
	childID := uuid.New()

	process, _ := NewFlowNode(flowID, NodeTypeProcess, "ship", 0, 0)
	if err := process.LinkChildFlow(childID); err != nil {
		t.Fatalf("LinkChildFlow on PROCESS failed: %v", err)
	}
	if process.ChildFlowID == nil || *process.ChildFlowID != childID {
		t.Error("child flow id not recorded")
	}

	// Relinking the same id is idempotent.
	before := process.UpdatedAt
	if err := process.LinkChildFlow(childID); err != nil {
		t.Fatalf("relinking same flow id should not error: %v", err)
	}
	if *process.ChildFlowID != childID {
		t.Error("relinking changed the child flow id")
	}
	if process.UpdatedAt != before {
		t.Error("relinking the same id should be a no-op")
	}

	start, _ := NewFlowNode(flowID, NodeTypeStart, "start", 0, 0)
	if err := start.LinkChildFlow(childID); err == nil {
		t.Error("LinkChildFlow on START should fail")
	}
}

func TestFlowNode_UnlinkChildFlow(t *testing.T) {
	node, _ := NewFlowNode(uuid.New(), NodeTypeDecision, "approve?", 0, 0)
	childID := uuid.New()

	if err := node.LinkChildFlow(childID); err != nil {
		t.Fatalf("LinkChildFlow failed: %v", err)
	}

	node.UnlinkChildFlow()
	if node.ChildFlowID != nil {
		t.Error("UnlinkChildFlow must clear the link")
	}

	// Unlinking when nothing is linked is harmless.
	node.UnlinkChildFlow()
	if node.ChildFlowID != nil {
		t.Error("repeated unlink must stay clear")
	}
}

func TestFlowNode_Validate(t *testing.T) {
	node, _ := NewFlowNode(uuid.New(), NodeTypeProcess, "ship", 10, 20)
	childID := uuid.New()
	node.ChildFlowID = &childID

	if err := node.Validate(); err != nil {
		t.Errorf("valid PROCESS node rejected: %v", err)
	}

	node.Type = NodeTypeDataStore
	if err := node.Validate(); err == nil {
		t.Error("DATA_STORE with child flow must be invalid")
	}
}
