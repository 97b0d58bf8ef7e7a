package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

// RoleType classifies the actor behind a role.
type RoleType string

const (
	RoleTypeHuman  RoleType = "HUMAN"
	RoleTypeSystem RoleType = "SYSTEM"
	RoleTypeOther  RoleType = "OTHER"
)

var validRoleTypes = map[RoleType]bool{
	RoleTypeHuman:  true,
	RoleTypeSystem: true,
	RoleTypeOther:  true,
}

// ParseRoleType validates a role type string.
func ParseRoleType(s string) (RoleType, error) {
	rt := RoleType(s)
	if !validRoleTypes[rt] {
		return "", apperrors.NewValidation("type", fmt.Sprintf("unknown role type %q", s))
	}
	return rt, nil
}

// Swimlane sizing bounds, in pixels.
const (
	RoleNameMaxLength = 50
	LaneHeightMin     = 60
	LaneHeightMax     = 500
	LaneHeightDefault = 120
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Role is a named actor (human, system or other). Roles are the "who" axis of
// every CRUD mapping and each role occupies one horizontal swimlane, sized by
// LaneHeight and positioned by display Order.
type Role struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"` // unique within project
	Type        RoleType  `json:"type"`
	Description string    `json:"description,omitempty"`
	Color       *string   `json:"color,omitempty"` // #RRGGBB, stored uppercase
	Order       int       `json:"order"`
	LaneHeight  int       `json:"lane_height"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRole creates a role with the default lane height.
func NewRole(projectID uuid.UUID, name string, roleType RoleType, order int) (*Role, error) {
	if projectID == uuid.Nil {
		return nil, apperrors.NewValidation("project_id", "must not be empty")
	}
	if err := validateRoleName(name); err != nil {
		return nil, err
	}
	if !validRoleTypes[roleType] {
		return nil, apperrors.NewValidation("type", fmt.Sprintf("unknown role type %q", roleType))
	}
	if order < 0 {
		return nil, apperrors.NewValidation("order", "must not be negative")
	}

	now := time.Now().UTC()
	return &Role{
		ID:         uuid.New(),
		ProjectID:  projectID,
		Name:       name,
		Type:       roleType,
		Order:      order,
		LaneHeight: LaneHeightDefault,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Equal reports identity-based equality.
func (r *Role) Equal(other *Role) bool {
	return other != nil && r.ID == other.ID
}

// Rename changes the role name, re-validating length.
func (r *Role) Rename(name string) error {
	if err := validateRoleName(name); err != nil {
		return err
	}
	r.Name = name
	r.touch()
	return nil
}

// SetDescription sets the description. Empty clears it.
func (r *Role) SetDescription(description string) {
	r.Description = description
	r.touch()
}

// SetColor sets the lane color. The value must match #RRGGBB and is
// normalized to uppercase. An empty string clears the color.
func (r *Role) SetColor(color string) error {
	if color == "" {
		r.Color = nil
		r.touch()
		return nil
	}
	if !colorPattern.MatchString(color) {
		return apperrors.NewValidation("color", "must match #RRGGBB")
	}
	normalized := strings.ToUpper(color)
	r.Color = &normalized
	r.touch()
	return nil
}

// SetLaneHeight sets the swimlane height in pixels, bounded to [60, 500].
func (r *Role) SetLaneHeight(height int) error {
	if height < LaneHeightMin || height > LaneHeightMax {
		return apperrors.NewValidation("lane_height",
			fmt.Sprintf("must be between %d and %d", LaneHeightMin, LaneHeightMax))
	}
	r.LaneHeight = height
	r.touch()
	return nil
}

// SetOrder changes the display order.
func (r *Role) SetOrder(order int) error {
	if order < 0 {
		return apperrors.NewValidation("order", "must not be negative")
	}
	r.Order = order
	r.touch()
	return nil
}

func validateRoleName(name string) error {
	if name == "" {
		return apperrors.NewValidation("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > RoleNameMaxLength {
		return apperrors.NewValidation("name",
			fmt.Sprintf("must be at most %d characters", RoleNameMaxLength))
	}
	return nil
}

func (r *Role) touch() {
	r.UpdatedAt = time.Now().UTC()
}
