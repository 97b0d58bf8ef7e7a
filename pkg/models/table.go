package models

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

// tableNamePattern matches lowercase snake_case physical table names.
var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Table describes the physical shape of one dataset. It owns its columns:
// deleting a table cascades to them.
type Table struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"` // lowercase snake_case, unique within project
	DisplayName string    `json:"display_name,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTable creates a table after validating its name. An empty displayName
// defaults to the label derived from the physical name.
func NewTable(projectID uuid.UUID, name, displayName, description string, tags []string) (*Table, error) {
	if projectID == uuid.Nil {
		return nil, apperrors.NewValidation("project_id", "must not be empty")
	}
	if err := validateTableName(name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	table := &Table{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Name:        name,
		DisplayName: displayName,
		Description: description,
		Tags:        normalizeTags(tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if table.DisplayName == "" {
		table.DisplayName = table.EntityLabel()
	}
	return table, nil
}

// Equal reports identity-based equality.
func (t *Table) Equal(other *Table) bool {
	return other != nil && t.ID == other.ID
}

// Rename changes the physical name, re-validating the format. Project-level
// uniqueness is checked by the service against the store.
func (t *Table) Rename(name string) error {
	if err := validateTableName(name); err != nil {
		return err
	}
	t.Name = name
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetDisplayName sets the human-facing name. Empty clears it.
func (t *Table) SetDisplayName(displayName string) {
	t.DisplayName = displayName
	t.UpdatedAt = time.Now().UTC()
}

// SetDescription sets the description. Empty clears it.
func (t *Table) SetDescription(description string) {
	t.Description = description
	t.UpdatedAt = time.Now().UTC()
}

// SetTags replaces the tag set. Tags are de-duplicated and sorted.
func (t *Table) SetTags(tags []string) {
	t.Tags = normalizeTags(tags)
	t.UpdatedAt = time.Now().UTC()
}

// EntityLabel derives a human-readable singular label from the physical name
// when no display name is set: "order_items" becomes "Order Item".
func (t *Table) EntityLabel() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	singular := inflection.Singular(t.Name)
	words := strings.Split(singular, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func validateTableName(name string) error {
	if name == "" {
		return apperrors.NewValidation("name", "must not be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return apperrors.NewValidation("name", "must be lowercase snake_case")
	}
	return nil
}

// normalizeTags de-duplicates and sorts tags, dropping empties.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	sort.Strings(result)
	if len(result) == 0 {
		return nil
	}
	return result
}
