package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

// ErrParserUnavailable is returned when no requirement parser is configured.
var ErrParserUnavailable = errors.New("requirement parser unavailable")

// RequirementDraft is the unsaved output of parsing a requirements document:
// suggested flows with their steps, plus suggested traceability facts. The
// caller reviews the draft and persists what it accepts through the ordinary
// services; nothing here touches the store.
type RequirementDraft struct {
	Flows    []DraftFlow    `json:"flows"`
	Mappings []MappingInput `json:"mappings"`
}

// DraftFlow is one suggested flow with its steps in reading order.
type DraftFlow struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Steps       []DraftStep     `json:"steps"`
	RoleHints   map[string]bool `json:"role_hints,omitempty"` // role names seen in the text
}

// DraftStep is one suggested node.
type DraftStep struct {
	Type     models.NodeType `json:"type"`
	Label    string          `json:"label"`
	RoleName string          `json:"role_name,omitempty"`
}

// RequirementParser turns a free-text requirements document into a draft of
// flows and traceability facts. Implementations are pluggable; the engine
// ships without one and wires whatever the deployment provides.
type RequirementParser interface {
	Parse(ctx context.Context, projectID uuid.UUID, document string) (*RequirementDraft, error)
}

// NoopRequirementParser is the default when no parser is configured.
type NoopRequirementParser struct{}

// Parse always reports that parsing is unavailable.
func (NoopRequirementParser) Parse(context.Context, uuid.UUID, string) (*RequirementDraft, error) {
	return nil, ErrParserUnavailable
}

var _ RequirementParser = NoopRequirementParser{}
