package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseProjectID extracts and validates the project ID from the request path.
// Expects path parameter: pid
func ParseProjectID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "pid", "invalid_project_id", "Invalid project ID format", logger)
}

// ParseTableID extracts and validates the table ID from the request path.
// Expects path parameter: tid
func ParseTableID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "tid", "invalid_table_id", "Invalid table ID format", logger)
}

// ParseColumnID extracts and validates the column ID from the request path.
// Expects path parameter: cid
func ParseColumnID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "cid", "invalid_column_id", "Invalid column ID format", logger)
}

// ParseRoleID extracts and validates the role ID from the request path.
// Expects path parameter: rid
func ParseRoleID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "rid", "invalid_role_id", "Invalid role ID format", logger)
}

// ParseFlowID extracts and validates the flow ID from the request path.
// Expects path parameter: fid
func ParseFlowID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "fid", "invalid_flow_id", "Invalid flow ID format", logger)
}

// ParseNodeID extracts and validates the flow node ID from the request path.
// Expects path parameter: nid
func ParseNodeID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "nid", "invalid_node_id", "Invalid node ID format", logger)
}

// ParseEdgeID extracts and validates the flow edge ID from the request path.
// Expects path parameter: eid
func ParseEdgeID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "eid", "invalid_edge_id", "Invalid edge ID format", logger)
}

// ParseMappingID extracts and validates the crud mapping ID from the request path.
// Expects path parameter: mid
func ParseMappingID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "mid", "invalid_mapping_id", "Invalid mapping ID format", logger)
}

func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
