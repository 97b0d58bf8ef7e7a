// Package services implements the application logic of tracelens-engine on
// top of the repositories: catalog management, roles and swimlanes, business
// flow editing, diagram export and CRUD traceability.
package services

import (
	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

// Swimlanes maps vertical canvas positions to roles. Lanes are stacked top to
// bottom in role display order, each role.LaneHeight pixels tall.
//
// Every path that positions a node (interactive move, node creation, bulk
// import) derives the owning role through the same instance, so the
// position-to-role rule cannot drift between entry points.
type Swimlanes struct {
	roles []*models.Role
}

// NewSwimlanes builds the lane layout for roles already sorted in display
// order, as ListByProject returns them.
func NewSwimlanes(roles []*models.Role) *Swimlanes {
	return &Swimlanes{roles: roles}
}

// RoleAtY returns the role whose lane contains the vertical position y, or nil
// when y falls below the last lane (or above zero). The lane boundary belongs
// to the lane it opens: y == top of lane N is in lane N.
func (s *Swimlanes) RoleAtY(y float64) *models.Role {
	if y < 0 {
		return nil
	}
	var top float64
	for _, role := range s.roles {
		bottom := top + float64(role.LaneHeight)
		if y >= top && y < bottom {
			return role
		}
		top = bottom
	}
	return nil
}

// RoleIDAtY is RoleAtY for callers that store the pointer form.
func (s *Swimlanes) RoleIDAtY(y float64) *uuid.UUID {
	role := s.RoleAtY(y)
	if role == nil {
		return nil
	}
	id := role.ID
	return &id
}

// LaneCenterY returns the vertical center of the given role's lane, used to
// snap nodes into a lane. The second result is false when the role has no
// lane (not part of this layout).
func (s *Swimlanes) LaneCenterY(roleID uuid.UUID) (float64, bool) {
	var top float64
	for _, role := range s.roles {
		if role.ID == roleID {
			return top + float64(role.LaneHeight)/2, true
		}
		top += float64(role.LaneHeight)
	}
	return 0, false
}

// TotalHeight returns the combined height of all lanes.
func (s *Swimlanes) TotalHeight() float64 {
	var total float64
	for _, role := range s.roles {
		total += float64(role.LaneHeight)
	}
	return total
}
