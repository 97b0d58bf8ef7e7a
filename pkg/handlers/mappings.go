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

// CreateMappingRequest for POST /api/projects/{pid}/mappings
type CreateMappingRequest struct {
	ColumnID    uuid.UUID  `json:"column_id"`
	Operation   string     `json:"operation"`
	RoleID      uuid.UUID  `json:"role_id"`
	FlowID      *uuid.UUID `json:"flow_id,omitempty"`
	FlowNodeID  *uuid.UUID `json:"flow_node_id,omitempty"`
	How         string     `json:"how,omitempty"`
	Condition   string     `json:"condition,omitempty"`
	Description string     `json:"description,omitempty"`
}

// UpdateMappingRequest for PATCH /api/projects/{pid}/mappings/{mid}. Site is
// applied (including cleared) only when set_site is true.
type UpdateMappingRequest struct {
	SetSite     bool       `json:"set_site,omitempty"`
	FlowID      *uuid.UUID `json:"flow_id,omitempty"`
	FlowNodeID  *uuid.UUID `json:"flow_node_id,omitempty"`
	How         *string    `json:"how,omitempty"`
	Condition   *string    `json:"condition,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// MappingListResponse for mapping list endpoints.
type MappingListResponse struct {
	Mappings []*models.CrudMapping `json:"mappings"`
	Total    int                   `json:"total"`
}

// MappingsHandler handles CRUD traceability HTTP requests.
type MappingsHandler struct {
	mappingService *services.CrudMappingService
	logger         *zap.Logger
}

// NewMappingsHandler creates a new MappingsHandler.
func NewMappingsHandler(mappingService *services.CrudMappingService, logger *zap.Logger) *MappingsHandler {
	return &MappingsHandler{mappingService: mappingService, logger: logger}
}

// RegisterRoutes registers the traceability routes on the given mux.
func (h *MappingsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/projects/{pid}/mappings"
	withAuth := authMiddleware.RequireAuthWithPathValidation("pid")

	mux.HandleFunc("POST "+base, withAuth(h.Create))
	mux.HandleFunc("GET "+base+"/{mid}", withAuth(h.Get))
	mux.HandleFunc("PATCH "+base+"/{mid}", withAuth(h.Update))
	mux.HandleFunc("DELETE "+base+"/{mid}", withAuth(h.Delete))

	mux.HandleFunc("GET /api/projects/{pid}/columns/{cid}/mappings", withAuth(h.ListByColumn))
	mux.HandleFunc("GET /api/projects/{pid}/tables/{tid}/mappings", withAuth(h.ListByTable))
	mux.HandleFunc("GET /api/projects/{pid}/roles/{rid}/mappings", withAuth(h.ListByRole))
	mux.HandleFunc("GET /api/projects/{pid}/flows/{fid}/mappings", withAuth(h.ListByFlow))
	mux.HandleFunc("GET /api/projects/{pid}/flows/{fid}/nodes/{nid}/mappings", withAuth(h.ListByNode))

	mux.HandleFunc("GET /api/projects/{pid}/matrix", withAuth(h.Matrix))
}

// Create handles POST /api/projects/{pid}/mappings
func (h *MappingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	operation, err := models.ParseOperation(req.Operation)
	if err != nil {
		WriteServiceError(w, err, "create_mapping_failed", h.logger)
		return
	}

	mapping, err := h.mappingService.CreateMapping(r.Context(), services.MappingInput{
		ColumnID:    req.ColumnID,
		Operation:   operation,
		RoleID:      req.RoleID,
		FlowID:      req.FlowID,
		FlowNodeID:  req.FlowNodeID,
		How:         req.How,
		Condition:   req.Condition,
		Description: req.Description,
	})
	if err != nil {
		h.logger.Error("Failed to create mapping",
			zap.String("column_id", req.ColumnID.String()),
			zap.String("operation", req.Operation), zap.Error(err))
		WriteServiceError(w, err, "create_mapping_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, mapping, h.logger)
}

// Get handles GET /api/projects/{pid}/mappings/{mid}
func (h *MappingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	mappingID, ok := ParseMappingID(w, r, h.logger)
	if !ok {
		return
	}

	mapping, err := h.mappingService.GetMapping(r.Context(), mappingID)
	if err != nil {
		WriteServiceError(w, err, "get_mapping_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, mapping, h.logger)
}

// Update handles PATCH /api/projects/{pid}/mappings/{mid}
func (h *MappingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	mappingID, ok := ParseMappingID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	mapping, err := h.mappingService.UpdateMapping(r.Context(), mappingID, services.MappingUpdate{
		SetSite:     req.SetSite,
		FlowID:      req.FlowID,
		FlowNodeID:  req.FlowNodeID,
		How:         req.How,
		Condition:   req.Condition,
		Description: req.Description,
	})
	if err != nil {
		WriteServiceError(w, err, "update_mapping_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, mapping, h.logger)
}

// Delete handles DELETE /api/projects/{pid}/mappings/{mid}
func (h *MappingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	mappingID, ok := ParseMappingID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.mappingService.DeleteMapping(r.Context(), mappingID); err != nil {
		WriteServiceError(w, err, "delete_mapping_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// ListByColumn handles GET /api/projects/{pid}/columns/{cid}/mappings.
// An optional ?operation=CREATE narrows the list to one operation.
func (h *MappingsHandler) ListByColumn(w http.ResponseWriter, r *http.Request) {
	columnID, ok := ParseColumnID(w, r, h.logger)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("operation"); raw != "" {
		operation, err := models.ParseOperation(raw)
		if err != nil {
			WriteServiceError(w, err, "list_mappings_failed", h.logger)
			return
		}
		h.list(w, r, func() ([]*models.CrudMapping, error) {
			return h.mappingService.ListByColumnAndOperation(r.Context(), columnID, operation)
		})
		return
	}

	h.list(w, r, func() ([]*models.CrudMapping, error) {
		return h.mappingService.ListByColumn(r.Context(), columnID)
	})
}

// ListByTable handles GET /api/projects/{pid}/tables/{tid}/mappings
func (h *MappingsHandler) ListByTable(w http.ResponseWriter, r *http.Request) {
	tableID, ok := ParseTableID(w, r, h.logger)
	if !ok {
		return
	}
	h.list(w, r, func() ([]*models.CrudMapping, error) {
		return h.mappingService.ListByTable(r.Context(), tableID)
	})
}

// ListByRole handles GET /api/projects/{pid}/roles/{rid}/mappings
func (h *MappingsHandler) ListByRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := ParseRoleID(w, r, h.logger)
	if !ok {
		return
	}
	h.list(w, r, func() ([]*models.CrudMapping, error) {
		return h.mappingService.ListByRole(r.Context(), roleID)
	})
}

// ListByFlow handles GET /api/projects/{pid}/flows/{fid}/mappings
func (h *MappingsHandler) ListByFlow(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}
	h.list(w, r, func() ([]*models.CrudMapping, error) {
		return h.mappingService.ListByFlow(r.Context(), flowID)
	})
}

// ListByNode handles GET /api/projects/{pid}/flows/{fid}/nodes/{nid}/mappings
func (h *MappingsHandler) ListByNode(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := ParseNodeID(w, r, h.logger)
	if !ok {
		return
	}
	h.list(w, r, func() ([]*models.CrudMapping, error) {
		return h.mappingService.ListByFlowNode(r.Context(), nodeID)
	})
}

// Matrix handles GET /api/projects/{pid}/matrix
func (h *MappingsHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	matrix, err := h.mappingService.Matrix(r.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to build matrix",
			zap.String("project_id", projectID.String()), zap.Error(err))
		WriteServiceError(w, err, "matrix_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, matrix, h.logger)
}

func (h *MappingsHandler) list(w http.ResponseWriter, _ *http.Request, fetch func() ([]*models.CrudMapping, error)) {
	mappings, err := fetch()
	if err != nil {
		WriteServiceError(w, err, "list_mappings_failed", h.logger)
		return
	}
	WriteData(w, http.StatusOK, MappingListResponse{Mappings: mappings, Total: len(mappings)}, h.logger)
}
