package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewBusinessFlow_Root(t *testing.T) {
	flow, err := NewBusinessFlow(uuid.New(), "order-processing", "")
	if err != nil {
		t.Fatalf("NewBusinessFlow failed: %v", err)
	}

	if !flow.IsRoot() {
		t.Error("new flow should be a root")
	}
	if flow.Depth != 0 {
		t.Errorf("root depth = %d, want 0", flow.Depth)
	}
	if flow.Version != 1 {
		t.Errorf("initial version = %d, want 1", flow.Version)
	}
	if err := flow.Validate(); err != nil {
		t.Errorf("Validate() on root: %v", err)
	}
}

func TestNewChildFlow_DepthChain(t *testing.T) {
	root, _ := NewBusinessFlow(uuid.New(), "root", "")

	child, err := NewChildFlow(root, "child", "")
	if err != nil {
		t.Fatalf("NewChildFlow failed: %v", err)
	}
	if child.ParentID == nil || *child.ParentID != root.ID {
		t.Error("child parent_id must point at the parent")
	}
	if child.Depth != root.Depth+1 {
		t.Errorf("child depth = %d, want %d", child.Depth, root.Depth+1)
	}
	if child.Version != 1 {
		t.Errorf("child version = %d, want 1", child.Version)
	}

	grandchild, err := NewChildFlow(child, "grandchild", "")
	if err != nil {
		t.Fatalf("NewChildFlow failed: %v", err)
	}
	if grandchild.Depth != 2 {
		t.Errorf("grandchild depth = %d, want 2", grandchild.Depth)
	}
}

func TestBusinessFlow_VersionOnlyMovesExplicitly(t *testing.T) {
	flow, _ := NewBusinessFlow(uuid.New(), "order-processing", "")

	if err := flow.Rename("order-handling"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	flow.SetDescription("handles orders")
	if flow.Version != 1 {
		t.Errorf("ordinary edits moved version to %d, want 1", flow.Version)
	}

	flow.IncrementVersion()
	if flow.Version != 2 {
		t.Errorf("version after IncrementVersion = %d, want 2", flow.Version)
	}
}

func TestBusinessFlow_Validate_DepthInvariant(t *testing.T) {
	flow, _ := NewBusinessFlow(uuid.New(), "f", "")

	// Root with non-zero depth is invalid.
	flow.Depth = 1
	if err := flow.Validate(); err == nil {
		t.Error("root with depth 1 should be invalid")
	}

	// Non-root with depth 0 is invalid.
	parentID := uuid.New()
	flow.ParentID = &parentID
	flow.Depth = 0
	if err := flow.Validate(); err == nil {
		t.Error("child with depth 0 should be invalid")
	}

	flow.Depth = 3
	if err := flow.Validate(); err != nil {
		t.Errorf("child with positive depth should be valid: %v", err)
	}
}
