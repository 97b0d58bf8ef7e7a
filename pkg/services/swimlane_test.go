package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

func laneRoles(t *testing.T, heights ...int) []*models.Role {
	t.Helper()
	projectID := uuid.New()
	roles := make([]*models.Role, 0, len(heights))
	for i, h := range heights {
		role, err := models.NewRole(projectID, roleName(i), models.RoleTypeHuman, i)
		require.NoError(t, err)
		require.NoError(t, role.SetLaneHeight(h))
		roles = append(roles, role)
	}
	return roles
}

func roleName(i int) string {
	return string(rune('A' + i))
}

func TestSwimlanes_RoleAtY(t *testing.T) {
	roles := laneRoles(t, 100, 200, 60)
	lanes := NewSwimlanes(roles)

	tests := []struct {
		name string
		y    float64
		want *models.Role
	}{
		{"top of first lane", 0, roles[0]},
		{"inside first lane", 99.9, roles[0]},
		{"boundary opens second lane", 100, roles[1]},
		{"inside second lane", 250, roles[1]},
		{"inside third lane", 320, roles[2]},
		{"below all lanes", 360, nil},
		{"above canvas", -1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lanes.RoleAtY(tt.y)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.ID, got.ID)
		})
	}
}

func TestSwimlanes_RoleAtY_NoLanes(t *testing.T) {
	lanes := NewSwimlanes(nil)
	assert.Nil(t, lanes.RoleAtY(0))
	assert.Nil(t, lanes.RoleIDAtY(50))
}

func TestSwimlanes_LaneCenterY(t *testing.T) {
	roles := laneRoles(t, 100, 200)
	lanes := NewSwimlanes(roles)

	center, ok := lanes.LaneCenterY(roles[0].ID)
	require.True(t, ok)
	assert.Equal(t, 50.0, center)

	center, ok = lanes.LaneCenterY(roles[1].ID)
	require.True(t, ok)
	assert.Equal(t, 200.0, center)

	_, ok = lanes.LaneCenterY(uuid.New())
	assert.False(t, ok)
}

func TestSwimlanes_TotalHeight(t *testing.T) {
	lanes := NewSwimlanes(laneRoles(t, 100, 200, 60))
	assert.Equal(t, 360.0, lanes.TotalHeight())
}
