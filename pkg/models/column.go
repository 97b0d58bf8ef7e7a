package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

// DataType is the declared type of a cataloged column.
type DataType string

const (
	DataTypeString   DataType = "STRING"
	DataTypeInteger  DataType = "INTEGER"
	DataTypeFloat    DataType = "FLOAT"
	DataTypeBoolean  DataType = "BOOLEAN"
	DataTypeDate     DataType = "DATE"
	DataTypeDateTime DataType = "DATETIME"
	DataTypeJSON     DataType = "JSON"
	DataTypeText     DataType = "TEXT"
	DataTypeUUID     DataType = "UUID"
)

var validDataTypes = map[DataType]bool{
	DataTypeString:   true,
	DataTypeInteger:  true,
	DataTypeFloat:    true,
	DataTypeBoolean:  true,
	DataTypeDate:     true,
	DataTypeDateTime: true,
	DataTypeJSON:     true,
	DataTypeText:     true,
	DataTypeUUID:     true,
}

// ParseDataType validates a data type string.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(s)
	if !validDataTypes[dt] {
		return "", apperrors.NewValidation("data_type", fmt.Sprintf("unknown data type %q", s))
	}
	return dt, nil
}

// Column describes one column of a cataloged table.
//
// Foreign-key references are advisory string pairs, not enforced joins: the
// catalog may describe a system whose schema is only partially known, so
// dangling references are tolerated. The invariant is that IsForeignKey is
// true iff both ForeignKeyTable and ForeignKeyColumn are set.
type Column struct {
	ID               uuid.UUID `json:"id"`
	TableID          uuid.UUID `json:"table_id"`
	Name             string    `json:"name"` // unique within table
	DisplayName      string    `json:"display_name,omitempty"`
	DataType         DataType  `json:"data_type"`
	IsPrimaryKey     bool      `json:"is_primary_key"`
	IsForeignKey     bool      `json:"is_foreign_key"`
	IsNullable       bool      `json:"is_nullable"`
	IsUnique         bool      `json:"is_unique"`
	DefaultValue     *string   `json:"default_value,omitempty"`
	ForeignKeyTable  *string   `json:"foreign_key_table,omitempty"`
	ForeignKeyColumn *string   `json:"foreign_key_column,omitempty"`
	Order            int       `json:"order"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewColumn creates a column after validating its name and data type.
// Columns start nullable, non-key; flags are applied via the mutators, which
// re-validate the invariants.
func NewColumn(tableID uuid.UUID, name string, dataType DataType, order int) (*Column, error) {
	if tableID == uuid.Nil {
		return nil, apperrors.NewValidation("table_id", "must not be empty")
	}
	if name == "" {
		return nil, apperrors.NewValidation("name", "must not be empty")
	}
	if !validDataTypes[dataType] {
		return nil, apperrors.NewValidation("data_type", fmt.Sprintf("unknown data type %q", dataType))
	}
	if order < 0 {
		return nil, apperrors.NewValidation("order", "must not be negative")
	}

	now := time.Now().UTC()
	return &Column{
		ID:         uuid.New(),
		TableID:    tableID,
		Name:       name,
		DataType:   dataType,
		IsNullable: true,
		Order:      order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Equal reports identity-based equality.
func (c *Column) Equal(other *Column) bool {
	return other != nil && c.ID == other.ID
}

// SetPrimaryKey toggles the primary-key flag. Marking a column as primary key
// forces it non-nullable.
func (c *Column) SetPrimaryKey(isPK bool) {
	c.IsPrimaryKey = isPK
	if isPK {
		c.IsNullable = false
	}
	c.touch()
}

// SetNullable toggles nullability. A primary key column cannot be nullable.
func (c *Column) SetNullable(nullable bool) error {
	if nullable && c.IsPrimaryKey {
		return apperrors.NewValidation("is_nullable", "primary key column cannot be nullable")
	}
	c.IsNullable = nullable
	c.touch()
	return nil
}

// SetUnique toggles the uniqueness flag.
func (c *Column) SetUnique(unique bool) {
	c.IsUnique = unique
	c.touch()
}

// SetForeignKey records an advisory reference to table.column. Both parts are
// required; the referenced pair is not resolved against the catalog.
func (c *Column) SetForeignKey(table, column string) error {
	if table == "" || column == "" {
		return apperrors.NewValidation("foreign_key", "both table and column are required")
	}
	c.IsForeignKey = true
	c.ForeignKeyTable = &table
	c.ForeignKeyColumn = &column
	c.touch()
	return nil
}

// ClearForeignKey removes the advisory reference.
func (c *Column) ClearForeignKey() {
	c.IsForeignKey = false
	c.ForeignKeyTable = nil
	c.ForeignKeyColumn = nil
	c.touch()
}

// SetDefaultValue sets the default value. nil clears it.
func (c *Column) SetDefaultValue(value *string) {
	c.DefaultValue = value
	c.touch()
}

// SetDisplayName sets the human-facing name. Empty clears it.
func (c *Column) SetDisplayName(displayName string) {
	c.DisplayName = displayName
	c.touch()
}

// SetOrder changes the column's position within its table.
func (c *Column) SetOrder(order int) error {
	if order < 0 {
		return apperrors.NewValidation("order", "must not be negative")
	}
	c.Order = order
	c.touch()
	return nil
}

// Validate re-checks the column invariants. It is called by the service on
// every save so that rows written through bulk paths hold the same rules as
// interactively edited ones.
func (c *Column) Validate() error {
	if c.Name == "" {
		return apperrors.NewValidation("name", "must not be empty")
	}
	if !validDataTypes[c.DataType] {
		return apperrors.NewValidation("data_type", fmt.Sprintf("unknown data type %q", c.DataType))
	}
	fkSet := c.ForeignKeyTable != nil && c.ForeignKeyColumn != nil
	fkPartial := (c.ForeignKeyTable != nil) != (c.ForeignKeyColumn != nil)
	if fkPartial {
		return apperrors.NewValidation("foreign_key", "table and column must be set together")
	}
	if c.IsForeignKey != fkSet {
		return apperrors.NewValidation("is_foreign_key", "must match presence of foreign key reference")
	}
	if c.IsPrimaryKey && c.IsNullable {
		return apperrors.NewValidation("is_nullable", "primary key column cannot be nullable")
	}
	return nil
}

func (c *Column) touch() {
	c.UpdatedAt = time.Now().UTC()
}
