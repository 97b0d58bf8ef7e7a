package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/auth"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
	"github.com/tracelens-io/tracelens-engine/pkg/services"
)

// CreateProjectRequest for POST /api/projects
type CreateProjectRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	OwnerEmail  string `json:"owner_email"`
}

// ProjectListResponse for GET /api/projects
type ProjectListResponse struct {
	Projects []*models.Project `json:"projects"`
	Total    int               `json:"total"`
}

// ProjectsHandler handles project HTTP requests.
type ProjectsHandler struct {
	catalogService *services.CatalogService
	logger         *zap.Logger
}

// NewProjectsHandler creates a new ProjectsHandler.
func NewProjectsHandler(catalogService *services.CatalogService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{catalogService: catalogService, logger: logger}
}

// RegisterRoutes registers the project routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/projects", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/projects", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/projects/{pid}",
		authMiddleware.RequireAuthWithPathValidation("pid")(h.Get))
	mux.HandleFunc("DELETE /api/projects/{pid}",
		authMiddleware.RequireAuthWithPathValidation("pid")(h.Delete))
}

// List handles GET /api/projects
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.catalogService.ListProjects(r.Context())
	if err != nil {
		h.logger.Error("Failed to list projects", zap.Error(err))
		WriteServiceError(w, err, "list_projects_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, ProjectListResponse{Projects: projects, Total: len(projects)}, h.logger)
}

// Create handles POST /api/projects
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project, err := h.catalogService.CreateProject(r.Context(), req.Name, req.DisplayName, req.OwnerEmail)
	if err != nil {
		h.logger.Error("Failed to create project", zap.String("name", req.Name), zap.Error(err))
		WriteServiceError(w, err, "create_project_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, project, h.logger)
}

// Get handles GET /api/projects/{pid}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.catalogService.GetProject(r.Context(), projectID)
	if err != nil {
		WriteServiceError(w, err, "get_project_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, project, h.logger)
}

// Delete handles DELETE /api/projects/{pid}
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProject(r.Context(), projectID); err != nil {
		h.logger.Error("Failed to delete project",
			zap.String("project_id", projectID.String()), zap.Error(err))
		WriteServiceError(w, err, "delete_project_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}
