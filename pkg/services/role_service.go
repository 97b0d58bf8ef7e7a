package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
	"github.com/tracelens-io/tracelens-engine/pkg/repositories"
)

// RoleService manages roles and their swimlane layout.
type RoleService struct {
	roleRepo repositories.RoleRepository
	nodeRepo repositories.FlowNodeRepository
	logger   *zap.Logger
}

// NewRoleService creates a new RoleService.
func NewRoleService(
	roleRepo repositories.RoleRepository,
	nodeRepo repositories.FlowNodeRepository,
	logger *zap.Logger,
) *RoleService {
	return &RoleService{
		roleRepo: roleRepo,
		nodeRepo: nodeRepo,
		logger:   logger.Named("role-service"),
	}
}

// RoleUpdate carries the optional fields of an update request. nil means
// "leave unchanged"; for Color and Description an empty string clears.
type RoleUpdate struct {
	Name        *string
	Type        *models.RoleType
	Description *string
	Color       *string
	LaneHeight  *int
}

// CreateRole creates a role at the end of the lane stack.
func (s *RoleService) CreateRole(ctx context.Context, projectID uuid.UUID, name string, roleType models.RoleType, description string) (*models.Role, error) {
	existing, err := s.roleRepo.GetByName(ctx, projectID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check role name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("role %q: %w", name, apperrors.ErrAlreadyExists)
	}

	current, err := s.roleRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	role, err := models.NewRole(projectID, name, roleType, len(current))
	if err != nil {
		return nil, err
	}
	role.SetDescription(description)

	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}

	s.logger.Info("created role",
		zap.String("project_id", projectID.String()),
		zap.String("role_id", role.ID.String()),
		zap.String("name", role.Name))
	return role, nil
}

// GetRole fetches one role.
func (s *RoleService) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, fmt.Errorf("role %s: %w", id, apperrors.ErrNotFound)
	}
	return role, nil
}

// ListRoles returns the project's roles in swimlane order.
func (s *RoleService) ListRoles(ctx context.Context, projectID uuid.UUID) ([]*models.Role, error) {
	return s.roleRepo.ListByProject(ctx, projectID)
}

// UpdateRole applies a partial update.
func (s *RoleService) UpdateRole(ctx context.Context, id uuid.UUID, update RoleUpdate) (*models.Role, error) {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil && *update.Name != role.Name {
		existing, err := s.roleRepo.GetByName(ctx, role.ProjectID, *update.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check role name: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("role %q: %w", *update.Name, apperrors.ErrAlreadyExists)
		}
		if err := role.Rename(*update.Name); err != nil {
			return nil, err
		}
	}
	if update.Type != nil {
		if _, err := models.ParseRoleType(string(*update.Type)); err != nil {
			return nil, err
		}
		role.Type = *update.Type
	}
	if update.Description != nil {
		role.SetDescription(*update.Description)
	}
	if update.Color != nil {
		if err := role.SetColor(*update.Color); err != nil {
			return nil, err
		}
	}
	if update.LaneHeight != nil {
		if err := role.SetLaneHeight(*update.LaneHeight); err != nil {
			return nil, err
		}
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// ReorderRoles rewrites the swimlane order to match orderedIDs, which must be
// a permutation of the project's role ids. The write is atomic: either the
// whole new order lands or none of it does.
func (s *RoleService) ReorderRoles(ctx context.Context, projectID uuid.UUID, orderedIDs []uuid.UUID) error {
	current, err := s.roleRepo.ListByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list roles: %w", err)
	}
	if len(orderedIDs) != len(current) {
		return apperrors.NewValidation("role_ids",
			fmt.Sprintf("expected %d role ids, got %d", len(current), len(orderedIDs)))
	}

	known := make(map[uuid.UUID]bool, len(current))
	for _, role := range current {
		known[role.ID] = true
	}
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] {
			return apperrors.NewValidation("role_ids", fmt.Sprintf("unknown role id %s", id))
		}
		if seen[id] {
			return apperrors.NewValidation("role_ids", fmt.Sprintf("duplicate role id %s", id))
		}
		seen[id] = true
	}

	if err := s.roleRepo.Reorder(ctx, projectID, orderedIDs); err != nil {
		return err
	}

	s.logger.Info("reordered roles",
		zap.String("project_id", projectID.String()),
		zap.Int("count", len(orderedIDs)))
	return nil
}

// DeleteRole removes a role. Nodes assigned to it are detached first so they
// fall back to "no lane"; traceability facts referencing the role are left in
// place and dangle.
func (s *RoleService) DeleteRole(ctx context.Context, id uuid.UUID) error {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return err
	}

	if err := s.nodeRepo.ClearRole(ctx, id); err != nil {
		return err
	}
	if err := s.roleRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("deleted role",
		zap.String("project_id", role.ProjectID.String()),
		zap.String("role_id", id.String()),
		zap.String("name", role.Name))
	return nil
}

// Lanes builds the current swimlane layout for a project.
func (s *RoleService) Lanes(ctx context.Context, projectID uuid.UUID) (*Swimlanes, error) {
	roles, err := s.roleRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return NewSwimlanes(roles), nil
}
