package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/auth"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
	"github.com/tracelens-io/tracelens-engine/pkg/services"
)

// CreateRoleRequest for POST /api/projects/{pid}/roles
type CreateRoleRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// UpdateRoleRequest for PATCH /api/projects/{pid}/roles/{rid}
type UpdateRoleRequest struct {
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"type,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	LaneHeight  *int    `json:"lane_height,omitempty"`
}

// ReorderRolesRequest for PUT /api/projects/{pid}/roles/order
type ReorderRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids"`
}

// RoleListResponse for GET /api/projects/{pid}/roles
type RoleListResponse struct {
	Roles []*models.Role `json:"roles"`
	Total int            `json:"total"`
}

// RolesHandler handles role and swimlane HTTP requests.
type RolesHandler struct {
	roleService *services.RoleService
	logger      *zap.Logger
}

// NewRolesHandler creates a new RolesHandler.
func NewRolesHandler(roleService *services.RoleService, logger *zap.Logger) *RolesHandler {
	return &RolesHandler{roleService: roleService, logger: logger}
}

// RegisterRoutes registers the role routes on the given mux.
func (h *RolesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/projects/{pid}/roles"
	withAuth := authMiddleware.RequireAuthWithPathValidation("pid")

	mux.HandleFunc("GET "+base, withAuth(h.List))
	mux.HandleFunc("POST "+base, withAuth(h.Create))
	mux.HandleFunc("PUT "+base+"/order", withAuth(h.Reorder))
	mux.HandleFunc("GET "+base+"/{rid}", withAuth(h.Get))
	mux.HandleFunc("PATCH "+base+"/{rid}", withAuth(h.Update))
	mux.HandleFunc("DELETE "+base+"/{rid}", withAuth(h.Delete))
}

// List handles GET /api/projects/{pid}/roles
func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	roles, err := h.roleService.ListRoles(r.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to list roles",
			zap.String("project_id", projectID.String()), zap.Error(err))
		WriteServiceError(w, err, "list_roles_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, RoleListResponse{Roles: roles, Total: len(roles)}, h.logger)
}

// Create handles POST /api/projects/{pid}/roles
func (h *RolesHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	roleType, err := models.ParseRoleType(req.Type)
	if err != nil {
		WriteServiceError(w, err, "create_role_failed", h.logger)
		return
	}

	role, err := h.roleService.CreateRole(r.Context(), projectID, req.Name, roleType, req.Description)
	if err != nil {
		h.logger.Error("Failed to create role",
			zap.String("project_id", projectID.String()),
			zap.String("name", req.Name), zap.Error(err))
		WriteServiceError(w, err, "create_role_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, role, h.logger)
}

// Get handles GET /api/projects/{pid}/roles/{rid}
func (h *RolesHandler) Get(w http.ResponseWriter, r *http.Request) {
	roleID, ok := ParseRoleID(w, r, h.logger)
	if !ok {
		return
	}

	role, err := h.roleService.GetRole(r.Context(), roleID)
	if err != nil {
		WriteServiceError(w, err, "get_role_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, role, h.logger)
}

// Update handles PATCH /api/projects/{pid}/roles/{rid}
func (h *RolesHandler) Update(w http.ResponseWriter, r *http.Request) {
	roleID, ok := ParseRoleID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	update := services.RoleUpdate{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		LaneHeight:  req.LaneHeight,
	}
	if req.Type != nil {
		roleType, err := models.ParseRoleType(*req.Type)
		if err != nil {
			WriteServiceError(w, err, "update_role_failed", h.logger)
			return
		}
		update.Type = &roleType
	}

	role, err := h.roleService.UpdateRole(r.Context(), roleID, update)
	if err != nil {
		h.logger.Error("Failed to update role",
			zap.String("role_id", roleID.String()), zap.Error(err))
		WriteServiceError(w, err, "update_role_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, role, h.logger)
}

// Reorder handles PUT /api/projects/{pid}/roles/order
func (h *RolesHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req ReorderRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.roleService.ReorderRoles(r.Context(), projectID, req.RoleIDs); err != nil {
		h.logger.Error("Failed to reorder roles",
			zap.String("project_id", projectID.String()), zap.Error(err))
		WriteServiceError(w, err, "reorder_roles_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"status": "reordered"}, h.logger)
}

// Delete handles DELETE /api/projects/{pid}/roles/{rid}
func (h *RolesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	roleID, ok := ParseRoleID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.roleService.DeleteRole(r.Context(), roleID); err != nil {
		h.logger.Error("Failed to delete role",
			zap.String("role_id", roleID.String()), zap.Error(err))
		WriteServiceError(w, err, "delete_role_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}
