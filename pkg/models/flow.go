package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

// BusinessFlow is a named, versioned process diagram, optionally nested under
// a parent flow. Depth is 0 iff the flow is a root; a child's depth is always
// its parent's depth plus one at the moment of creation.
//
// Version is a coarse "this is a new revision" marker bumped only by
// IncrementVersion, never by ordinary edits.
type BusinessFlow struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Version     int        `json:"version"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Depth       int        `json:"depth"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewBusinessFlow creates a root flow (depth 0, version 1).
func NewBusinessFlow(projectID uuid.UUID, name, description string) (*BusinessFlow, error) {
	if projectID == uuid.Nil {
		return nil, apperrors.NewValidation("project_id", "must not be empty")
	}
	if name == "" {
		return nil, apperrors.NewValidation("name", "must not be empty")
	}

	now := time.Now().UTC()
	return &BusinessFlow{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		Version:     1,
		Depth:       0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewChildFlow creates a flow nested under parent: parentId points at the
// parent and depth is parent.Depth+1. Linking the new flow to an owning node
// is a separate write; until that happens the child is a valid orphan.
func NewChildFlow(parent *BusinessFlow, name, description string) (*BusinessFlow, error) {
	if parent == nil {
		return nil, apperrors.NewValidation("parent", "must not be nil")
	}
	flow, err := NewBusinessFlow(parent.ProjectID, name, description)
	if err != nil {
		return nil, err
	}
	parentID := parent.ID
	flow.ParentID = &parentID
	flow.Depth = parent.Depth + 1
	return flow, nil
}

// Equal reports identity-based equality.
func (f *BusinessFlow) Equal(other *BusinessFlow) bool {
	return other != nil && f.ID == other.ID
}

// IsRoot reports whether this flow has no parent.
func (f *BusinessFlow) IsRoot() bool {
	return f.ParentID == nil
}

// Rename changes the flow name. Does not bump the version.
func (f *BusinessFlow) Rename(name string) error {
	if name == "" {
		return apperrors.NewValidation("name", "must not be empty")
	}
	f.Name = name
	f.touch()
	return nil
}

// SetDescription sets the description. Empty clears it. Does not bump the version.
func (f *BusinessFlow) SetDescription(description string) {
	f.Description = description
	f.touch()
}

// IncrementVersion marks the flow as a new revision. This is the only way the
// version counter moves.
func (f *BusinessFlow) IncrementVersion() {
	f.Version++
	f.touch()
}

// Validate re-checks the depth/parent invariant.
func (f *BusinessFlow) Validate() error {
	if f.Name == "" {
		return apperrors.NewValidation("name", "must not be empty")
	}
	if f.Version < 1 {
		return apperrors.NewValidation("version", "must be at least 1")
	}
	if (f.Depth == 0) != (f.ParentID == nil) {
		return apperrors.NewValidation("depth", "must be 0 exactly when the flow has no parent")
	}
	if f.Depth < 0 {
		return apperrors.NewValidation("depth", "must not be negative")
	}
	return nil
}

func (f *BusinessFlow) touch() {
	f.UpdatedAt = time.Now().UTC()
}
