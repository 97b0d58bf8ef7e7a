package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewTable_NameValidation(t *testing.T) {
	projectID := uuid.New()

	tests := []struct {
		name      string
		tableName string
		wantErr   bool
	}{
		{"simple", "orders", false},
		{"snake case", "order_items", false},
		{"with digits", "orders_v2", false},
		{"empty", "", true},
		{"uppercase", "Orders", true},
		{"leading digit", "2orders", true},
		{"hyphen", "order-items", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(projectID, tt.tableName, "", "", nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTable(%q) error = %v, wantErr %v", tt.tableName, err, tt.wantErr)
			}
		})
	}
}

func TestTable_TagsAreASet(t *testing.T) {
	table, err := NewTable(uuid.New(), "orders", "", "", []string{"sales", "core", "sales", " ", "core"})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	want := []string{"core", "sales"}
	if len(table.Tags) != len(want) {
		t.Fatalf("tags = %v, want %v", table.Tags, want)
	}
	for i, tag := range want {
		if table.Tags[i] != tag {
			t.Errorf("tags[%d] = %q, want %q", i, table.Tags[i], tag)
		}
	}
}

func TestNewTable_DisplayNameDefaultsToEntityLabel(t *testing.T) {
	tests := []struct {
		tableName   string
		displayName string
		want        string
	}{
		{"order_items", "", "Order Item"},
		{"orders", "", "Order"},
		{"users", "", "User"},
		{"orders", "Customer Orders", "Customer Orders"},
	}

	for _, tt := range tests {
		t.Run(tt.tableName, func(t *testing.T) {
			table, err := NewTable(uuid.New(), tt.tableName, tt.displayName, "", nil)
			if err != nil {
				t.Fatalf("NewTable failed: %v", err)
			}
			if table.DisplayName != tt.want {
				t.Errorf("DisplayName = %q, want %q", table.DisplayName, tt.want)
			}
			if got := table.EntityLabel(); got != tt.want {
				t.Errorf("EntityLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTable_EntityLabel_AfterDisplayNameCleared(t *testing.T) {
	table, err := NewTable(uuid.New(), "order_items", "Line Items", "", nil)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	table.SetDisplayName("")
	if got := table.EntityLabel(); got != "Order Item" {
		t.Errorf("EntityLabel() = %q, want %q", got, "Order Item")
	}
}
