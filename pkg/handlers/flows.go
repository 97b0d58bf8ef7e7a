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

// CreateFlowRequest for POST /api/projects/{pid}/flows
type CreateFlowRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateChildFlowRequest for POST /api/projects/{pid}/flows/{fid}/children.
// NodeID optionally links the new child to a business block of the parent.
type CreateChildFlowRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	NodeID      *uuid.UUID `json:"node_id,omitempty"`
}

// UpdateFlowRequest for PATCH /api/projects/{pid}/flows/{fid}
type UpdateFlowRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// FlowListResponse for GET /api/projects/{pid}/flows
type FlowListResponse struct {
	Flows []*models.BusinessFlow `json:"flows"`
	Total int                    `json:"total"`
}

// CreateNodeRequest for POST /api/projects/{pid}/flows/{fid}/nodes
type CreateNodeRequest struct {
	Type      string  `json:"type"`
	Label     string  `json:"label"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
}

// ImportNodesRequest for POST .../nodes/import
type ImportNodesRequest struct {
	Nodes []CreateNodeRequest `json:"nodes"`
}

// UpdateNodeRequest for PATCH .../nodes/{nid}
type UpdateNodeRequest struct {
	Label       *string             `json:"label,omitempty"`
	Description *string             `json:"description,omitempty"`
	Metadata    models.NodeMetadata `json:"metadata,omitempty"`
}

// MoveNodeRequest for PUT .../nodes/{nid}/position
type MoveNodeRequest struct {
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
}

// LinkChildFlowRequest for POST .../nodes/{nid}/child-flow
type LinkChildFlowRequest struct {
	FlowID uuid.UUID `json:"flow_id"`
}

// CreateEdgeRequest for POST /api/projects/{pid}/flows/{fid}/edges
type CreateEdgeRequest struct {
	SourceNodeID uuid.UUID `json:"source_node_id"`
	TargetNodeID uuid.UUID `json:"target_node_id"`
	Label        string    `json:"label,omitempty"`
	Condition    string    `json:"condition,omitempty"`
}

// UpdateEdgeRequest for PATCH .../edges/{eid}
type UpdateEdgeRequest struct {
	Label     *string `json:"label,omitempty"`
	Condition *string `json:"condition,omitempty"`
}

// FlowsHandler handles business flow, node and edge HTTP requests.
type FlowsHandler struct {
	flowService *services.FlowService
	logger      *zap.Logger
}

// NewFlowsHandler creates a new FlowsHandler.
func NewFlowsHandler(flowService *services.FlowService, logger *zap.Logger) *FlowsHandler {
	return &FlowsHandler{flowService: flowService, logger: logger}
}

// RegisterRoutes registers the flow routes on the given mux.
func (h *FlowsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/projects/{pid}/flows"
	withAuth := authMiddleware.RequireAuthWithPathValidation("pid")

	mux.HandleFunc("GET "+base, withAuth(h.List))
	mux.HandleFunc("POST "+base, withAuth(h.Create))
	mux.HandleFunc("GET "+base+"/{fid}", withAuth(h.Get))
	mux.HandleFunc("PATCH "+base+"/{fid}", withAuth(h.Update))
	mux.HandleFunc("DELETE "+base+"/{fid}", withAuth(h.Delete))

	mux.HandleFunc("POST "+base+"/{fid}/version", withAuth(h.IncrementVersion))
	mux.HandleFunc("GET "+base+"/{fid}/breadcrumbs", withAuth(h.Breadcrumbs))
	mux.HandleFunc("GET "+base+"/{fid}/detail", withAuth(h.Detail))
	mux.HandleFunc("GET "+base+"/{fid}/children", withAuth(h.ListChildren))
	mux.HandleFunc("POST "+base+"/{fid}/children", withAuth(h.CreateChild))
	mux.HandleFunc("GET "+base+"/{fid}/diagram", withAuth(h.Diagram))

	mux.HandleFunc("POST "+base+"/{fid}/nodes", withAuth(h.AddNode))
	mux.HandleFunc("POST "+base+"/{fid}/nodes/import", withAuth(h.ImportNodes))
	mux.HandleFunc("PATCH "+base+"/{fid}/nodes/{nid}", withAuth(h.UpdateNode))
	mux.HandleFunc("PUT "+base+"/{fid}/nodes/{nid}/position", withAuth(h.MoveNode))
	mux.HandleFunc("POST "+base+"/{fid}/nodes/{nid}/child-flow", withAuth(h.LinkChildFlow))
	mux.HandleFunc("DELETE "+base+"/{fid}/nodes/{nid}/child-flow", withAuth(h.UnlinkChildFlow))
	mux.HandleFunc("DELETE "+base+"/{fid}/nodes/{nid}", withAuth(h.DeleteNode))

	mux.HandleFunc("POST "+base+"/{fid}/edges", withAuth(h.AddEdge))
	mux.HandleFunc("PATCH "+base+"/{fid}/edges/{eid}", withAuth(h.UpdateEdge))
	mux.HandleFunc("DELETE "+base+"/{fid}/edges/{eid}", withAuth(h.DeleteEdge))
}

// List handles GET /api/projects/{pid}/flows. With ?scope=roots only
// top-level flows are returned.
func (h *FlowsHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var flows []*models.BusinessFlow
	var err error
	if r.URL.Query().Get("scope") == "roots" {
		flows, err = h.flowService.ListRootFlows(r.Context(), projectID)
	} else {
		flows, err = h.flowService.ListFlows(r.Context(), projectID)
	}
	if err != nil {
		h.logger.Error("Failed to list flows",
			zap.String("project_id", projectID.String()), zap.Error(err))
		WriteServiceError(w, err, "list_flows_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, FlowListResponse{Flows: flows, Total: len(flows)}, h.logger)
}

// Create handles POST /api/projects/{pid}/flows
func (h *FlowsHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateFlowRequest
	if !h.decode(w, r, &req) {
		return
	}

	flow, err := h.flowService.CreateFlow(r.Context(), projectID, req.Name, req.Description)
	if err != nil {
		h.logger.Error("Failed to create flow",
			zap.String("project_id", projectID.String()), zap.Error(err))
		WriteServiceError(w, err, "create_flow_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, flow, h.logger)
}

// Get handles GET /api/projects/{pid}/flows/{fid}
func (h *FlowsHandler) Get(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	flow, err := h.flowService.GetFlow(r.Context(), flowID)
	if err != nil {
		WriteServiceError(w, err, "get_flow_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, flow, h.logger)
}

// Update handles PATCH /api/projects/{pid}/flows/{fid}
func (h *FlowsHandler) Update(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateFlowRequest
	if !h.decode(w, r, &req) {
		return
	}

	flow, err := h.flowService.UpdateFlow(r.Context(), flowID, services.FlowUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		WriteServiceError(w, err, "update_flow_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, flow, h.logger)
}

// Delete handles DELETE /api/projects/{pid}/flows/{fid}
func (h *FlowsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.flowService.DeleteFlow(r.Context(), flowID); err != nil {
		h.logger.Error("Failed to delete flow",
			zap.String("flow_id", flowID.String()), zap.Error(err))
		WriteServiceError(w, err, "delete_flow_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// IncrementVersion handles POST /api/projects/{pid}/flows/{fid}/version
func (h *FlowsHandler) IncrementVersion(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	flow, err := h.flowService.IncrementVersion(r.Context(), flowID)
	if err != nil {
		WriteServiceError(w, err, "increment_version_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, flow, h.logger)
}

// Breadcrumbs handles GET /api/projects/{pid}/flows/{fid}/breadcrumbs
func (h *FlowsHandler) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	crumbs, err := h.flowService.Breadcrumbs(r.Context(), flowID)
	if err != nil {
		WriteServiceError(w, err, "breadcrumbs_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, crumbs, h.logger)
}

// Detail handles GET /api/projects/{pid}/flows/{fid}/detail
func (h *FlowsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	detail, err := h.flowService.GetFlowDetail(r.Context(), flowID)
	if err != nil {
		WriteServiceError(w, err, "flow_detail_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, detail, h.logger)
}

// ListChildren handles GET /api/projects/{pid}/flows/{fid}/children
func (h *FlowsHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	children, err := h.flowService.ListChildFlows(r.Context(), flowID)
	if err != nil {
		WriteServiceError(w, err, "list_children_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, FlowListResponse{Flows: children, Total: len(children)}, h.logger)
}

// CreateChild handles POST /api/projects/{pid}/flows/{fid}/children
func (h *FlowsHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateChildFlowRequest
	if !h.decode(w, r, &req) {
		return
	}

	child, err := h.flowService.CreateChildFlow(r.Context(), flowID, req.NodeID, req.Name, req.Description)
	if err != nil {
		h.logger.Error("Failed to create child flow",
			zap.String("parent_id", flowID.String()), zap.Error(err))
		WriteServiceError(w, err, "create_child_flow_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, child, h.logger)
}

// Diagram handles GET /api/projects/{pid}/flows/{fid}/diagram and responds
// with Mermaid text rather than the JSON envelope.
func (h *FlowsHandler) Diagram(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	diagram, err := h.flowService.ExportDiagram(r.Context(), flowID)
	if err != nil {
		WriteServiceError(w, err, "export_diagram_failed", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/vnd.mermaid; charset=utf-8")
	if _, err := w.Write([]byte(diagram)); err != nil {
		h.logger.Error("Failed to write diagram response", zap.Error(err))
	}
}

// AddNode handles POST /api/projects/{pid}/flows/{fid}/nodes
func (h *FlowsHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	nodeType, err := models.ParseNodeType(req.Type)
	if err != nil {
		WriteServiceError(w, err, "add_node_failed", h.logger)
		return
	}

	node, err := h.flowService.AddNode(r.Context(), flowID, nodeType, req.Label, req.PositionX, req.PositionY)
	if err != nil {
		h.logger.Error("Failed to add node",
			zap.String("flow_id", flowID.String()), zap.Error(err))
		WriteServiceError(w, err, "add_node_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, node, h.logger)
}

// ImportNodes handles POST /api/projects/{pid}/flows/{fid}/nodes/import.
// Unknown node types are reported per entry, not rejected wholesale.
func (h *FlowsHandler) ImportNodes(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	var req ImportNodesRequest
	if !h.decode(w, r, &req) {
		return
	}

	inputs := make([]services.NodeImport, len(req.Nodes))
	for i, n := range req.Nodes {
		inputs[i] = services.NodeImport{
			Type:  models.NodeType(n.Type),
			Label: n.Label,
			X:     n.PositionX,
			Y:     n.PositionY,
		}
	}

	result, err := h.flowService.ImportNodes(r.Context(), flowID, inputs)
	if err != nil {
		h.logger.Error("Failed to import nodes",
			zap.String("flow_id", flowID.String()), zap.Error(err))
		WriteServiceError(w, err, "import_nodes_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, result, h.logger)
}

// UpdateNode handles PATCH /api/projects/{pid}/flows/{fid}/nodes/{nid}
func (h *FlowsHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := ParseNodeID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	node, err := h.flowService.UpdateNode(r.Context(), nodeID, services.NodeUpdate{
		Label:       req.Label,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		WriteServiceError(w, err, "update_node_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, node, h.logger)
}

// MoveNode handles PUT /api/projects/{pid}/flows/{fid}/nodes/{nid}/position
func (h *FlowsHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := ParseNodeID(w, r, h.logger)
	if !ok {
		return
	}

	var req MoveNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	node, err := h.flowService.MoveNode(r.Context(), nodeID, req.PositionX, req.PositionY)
	if err != nil {
		WriteServiceError(w, err, "move_node_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, node, h.logger)
}

// LinkChildFlow handles POST /api/projects/{pid}/flows/{fid}/nodes/{nid}/child-flow
func (h *FlowsHandler) LinkChildFlow(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := ParseNodeID(w, r, h.logger)
	if !ok {
		return
	}

	var req LinkChildFlowRequest
	if !h.decode(w, r, &req) {
		return
	}

	node, err := h.flowService.LinkChildFlow(r.Context(), nodeID, req.FlowID)
	if err != nil {
		WriteServiceError(w, err, "link_child_flow_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, node, h.logger)
}

// UnlinkChildFlow handles DELETE /api/projects/{pid}/flows/{fid}/nodes/{nid}/child-flow
func (h *FlowsHandler) UnlinkChildFlow(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := ParseNodeID(w, r, h.logger)
	if !ok {
		return
	}

	node, err := h.flowService.UnlinkChildFlow(r.Context(), nodeID)
	if err != nil {
		WriteServiceError(w, err, "unlink_child_flow_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, node, h.logger)
}

// DeleteNode handles DELETE /api/projects/{pid}/flows/{fid}/nodes/{nid}
func (h *FlowsHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := ParseNodeID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.flowService.DeleteNode(r.Context(), nodeID); err != nil {
		WriteServiceError(w, err, "delete_node_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// AddEdge handles POST /api/projects/{pid}/flows/{fid}/edges
func (h *FlowsHandler) AddEdge(w http.ResponseWriter, r *http.Request) {
	flowID, ok := ParseFlowID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateEdgeRequest
	if !h.decode(w, r, &req) {
		return
	}

	edge, err := h.flowService.AddEdge(r.Context(), flowID, req.SourceNodeID, req.TargetNodeID, req.Label, req.Condition)
	if err != nil {
		WriteServiceError(w, err, "add_edge_failed", h.logger)
		return
	}

	WriteData(w, http.StatusCreated, edge, h.logger)
}

// UpdateEdge handles PATCH /api/projects/{pid}/flows/{fid}/edges/{eid}
func (h *FlowsHandler) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	edgeID, ok := ParseEdgeID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateEdgeRequest
	if !h.decode(w, r, &req) {
		return
	}

	edge, err := h.flowService.UpdateEdge(r.Context(), edgeID, services.EdgeUpdate{
		Label:     req.Label,
		Condition: req.Condition,
	})
	if err != nil {
		WriteServiceError(w, err, "update_edge_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, edge, h.logger)
}

// DeleteEdge handles DELETE /api/projects/{pid}/flows/{fid}/edges/{eid}
func (h *FlowsHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	edgeID, ok := ParseEdgeID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.flowService.DeleteEdge(r.Context(), edgeID); err != nil {
		WriteServiceError(w, err, "delete_edge_failed", h.logger)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

func (h *FlowsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}
