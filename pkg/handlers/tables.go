package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/auth"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
	"github.com/tracelens-io/tracelens-engine/pkg/services"
)

// CreateTableRequest for POST /api/projects/{pid}/tables
type CreateTableRequest struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdateTableRequest for PATCH /api/projects/{pid}/tables/{tid}
type UpdateTableRequest struct {
	Name        *string  `json:"name,omitempty"`
	DisplayName *string  `json:"display_name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// TableListResponse for GET /api/projects/{pid}/tables
type TableListResponse struct {
	Tables []*models.Table `json:"tables"`
	Total  int             `json:"total"`
}

// ColumnRequest for column create/update requests.
type ColumnRequest struct {
	Name             string  `json:"name"`
	DisplayName      string  `json:"display_name,omitempty"`
	DataType         string  `json:"data_type"`
	IsPrimaryKey     bool    `json:"is_primary_key,omitempty"`
	IsNullable       *bool   `json:"is_nullable,omitempty"`
	IsUnique         bool    `json:"is_unique,omitempty"`
	DefaultValue     *string `json:"default_value,omitempty"`
	ForeignKeyTable  string  `json:"foreign_key_table,omitempty"`
	ForeignKeyColumn string  `json:"foreign_key_column,omitempty"`
}

// ColumnListResponse for GET /api/projects/{pid}/tables/{tid}/columns
type ColumnListResponse struct {
	Columns []*models.Column `json:"columns"`
	Total   int              `json:"total"`
}

// TablesHandler handles catalog table and column HTTP requests.
type TablesHandler struct {
	catalogService *services.CatalogService
	logger         *zap.Logger
}

// NewTablesHandler creates a new TablesHandler.
func NewTablesHandler(catalogService *services.CatalogService, logger *zap.Logger) *TablesHandler {
	return &TablesHandler{catalogService: catalogService, logger: logger}
}

// RegisterRoutes registers the catalog routes on the given mux.
func (h *TablesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/projects/{pid}/tables"
	withAuth := authMiddleware.RequireAuthWithPathValidation("pid")

	mux.HandleFunc("GET "+base, withAuth(h.List))
	mux.HandleFunc("POST "+base, withAuth(h.Create))
	mux.HandleFunc("GET "+base+"/{tid}", withAuth(h.Get))
	mux.HandleFunc("PATCH "+base+"/{tid}", withAuth(h.Update))
	mux.HandleFunc("DELETE "+base+"/{tid}", withAuth(h.Delete))

	mux.HandleFunc("GET "+base+"/{tid}/columns", withAuth(h.ListColumns))
	mux.HandleFunc("POST "+base+"/{tid}/columns", withAuth(h.AddColumn))
	mux.HandleFunc("PUT "+base+"/{tid}/columns/{cid}", withAuth(h.UpdateColumn))
	mux.HandleFunc("DELETE "+base+"/{tid}/columns/{cid}", withAuth(h.DeleteColumn))

	mux.HandleFunc("POST /api/projects/{pid}/catalog/import", withAuth(h.ImportCSV))
}

// List handles GET /api/projects/{pid}/tables
func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	tables, err := h.catalogService.ListTables(r.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to list tables",
			zap.String("project_id", projectID.String()), zap.Error(err))
		WriteServiceError(w, err, "list_tables_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, TableListResponse{Tables: tables, Total: len(tables)}, h.logger)
}

// Create handles POST /api/projects/{pid}/tables
func (h *TablesHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	table, err := h.catalogService.CreateTable(r.Context(), projectID, req.Name, req.DisplayName, req.Description, req.Tags)
	if err != nil {
		h.logger.Error("Failed to create table",
			zap.String("project_id", projectID.String()),
			zap.String("name", req.Name), zap.Error(err))
		WriteServiceError(w, err, "create_table_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, table, h.logger)
}

// Get handles GET /api/projects/{pid}/tables/{tid}
func (h *TablesHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableID, ok := ParseTableID(w, r, h.logger)
	if !ok {
		return
	}

	table, err := h.catalogService.GetTable(r.Context(), tableID)
	if err != nil {
		WriteServiceError(w, err, "get_table_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, table, h.logger)
}

// Update handles PATCH /api/projects/{pid}/tables/{tid}
func (h *TablesHandler) Update(w http.ResponseWriter, r *http.Request) {
	tableID, ok := ParseTableID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	table, err := h.catalogService.UpdateTable(r.Context(), tableID, services.TableUpdate{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		h.logger.Error("Failed to update table",
			zap.String("table_id", tableID.String()), zap.Error(err))
		WriteServiceError(w, err, "update_table_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, table, h.logger)
}

// Delete handles DELETE /api/projects/{pid}/tables/{tid}
func (h *TablesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tableID, ok := ParseTableID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteTable(r.Context(), tableID); err != nil {
		h.logger.Error("Failed to delete table",
			zap.String("table_id", tableID.String()), zap.Error(err))
		WriteServiceError(w, err, "delete_table_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// ListColumns handles GET /api/projects/{pid}/tables/{tid}/columns
func (h *TablesHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	tableID, ok := ParseTableID(w, r, h.logger)
	if !ok {
		return
	}

	columns, err := h.catalogService.ListColumns(r.Context(), tableID)
	if err != nil {
		WriteServiceError(w, err, "list_columns_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, ColumnListResponse{Columns: columns, Total: len(columns)}, h.logger)
}

// AddColumn handles POST /api/projects/{pid}/tables/{tid}/columns
func (h *TablesHandler) AddColumn(w http.ResponseWriter, r *http.Request) {
	tableID, ok := ParseTableID(w, r, h.logger)
	if !ok {
		return
	}

	req, ok := h.decodeColumnRequest(w, r)
	if !ok {
		return
	}

	column, err := h.catalogService.AddColumn(r.Context(), tableID, columnInputFromRequest(req))
	if err != nil {
		h.logger.Error("Failed to add column",
			zap.String("table_id", tableID.String()),
			zap.String("name", req.Name), zap.Error(err))
		WriteServiceError(w, err, "add_column_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, column, h.logger)
}

// UpdateColumn handles PUT /api/projects/{pid}/tables/{tid}/columns/{cid}
func (h *TablesHandler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	columnID, ok := ParseColumnID(w, r, h.logger)
	if !ok {
		return
	}

	req, ok := h.decodeColumnRequest(w, r)
	if !ok {
		return
	}

	column, err := h.catalogService.UpdateColumn(r.Context(), columnID, columnInputFromRequest(req))
	if err != nil {
		h.logger.Error("Failed to update column",
			zap.String("column_id", columnID.String()), zap.Error(err))
		WriteServiceError(w, err, "update_column_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, column, h.logger)
}

// DeleteColumn handles DELETE /api/projects/{pid}/tables/{tid}/columns/{cid}
func (h *TablesHandler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	columnID, ok := ParseColumnID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteColumn(r.Context(), columnID); err != nil {
		WriteServiceError(w, err, "delete_column_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// ImportCSV handles POST /api/projects/{pid}/catalog/import with a CSV body.
func (h *TablesHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.catalogService.ImportCatalogCSV(r.Context(), projectID, r.Body)
	if err != nil {
		h.logger.Error("Failed to import catalog csv",
			zap.String("project_id", projectID.String()), zap.Error(err))
		WriteServiceError(w, err, "import_catalog_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, result, h.logger)
}

func (h *TablesHandler) decodeColumnRequest(w http.ResponseWriter, r *http.Request) (ColumnRequest, bool) {
	var req ColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return req, false
	}
	return req, true
}

func columnInputFromRequest(req ColumnRequest) services.ColumnInput {
	return services.ColumnInput{
		Name:             req.Name,
		DisplayName:      req.DisplayName,
		DataType:         models.DataType(req.DataType),
		IsPrimaryKey:     req.IsPrimaryKey,
		IsNullable:       req.IsNullable,
		IsUnique:         req.IsUnique,
		DefaultValue:     req.DefaultValue,
		ForeignKeyTable:  req.ForeignKeyTable,
		ForeignKeyColumn: req.ForeignKeyColumn,
	}
}
