package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

// ExportDiagram renders a flow as Mermaid flowchart text. Nodes appear in
// creation order with stable n1..nN identifiers, so re-exporting an unchanged
// flow yields byte-identical output. A node's role is appended to its label
// in square brackets; a role id whose role was deleted is silently omitted.
func (s *FlowService) ExportDiagram(ctx context.Context, flowID uuid.UUID) (string, error) {
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return "", err
	}

	nodes, err := s.nodeRepo.ListByFlow(ctx, flowID)
	if err != nil {
		return "", err
	}
	edges, err := s.edgeRepo.ListByFlow(ctx, flowID)
	if err != nil {
		return "", err
	}
	roles, err := s.roleRepo.ListByProject(ctx, flow.ProjectID)
	if err != nil {
		return "", err
	}

	roleNames := make(map[uuid.UUID]string, len(roles))
	for _, role := range roles {
		roleNames[role.ID] = role.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "---\ntitle: %s\n---\n", flow.Name)
	b.WriteString("flowchart TD\n")

	ids := make(map[uuid.UUID]string, len(nodes))
	for i, node := range nodes {
		id := fmt.Sprintf("n%d", i+1)
		ids[node.ID] = id

		label := node.Label
		if node.RoleID != nil {
			if name, ok := roleNames[*node.RoleID]; ok {
				label = fmt.Sprintf("%s [%s]", label, name)
			}
		}
		fmt.Fprintf(&b, "    %s%s\n", id, mermaidShape(node.Type, label))
	}

	for _, edge := range edges {
		source, ok := ids[edge.SourceNodeID]
		if !ok {
			continue
		}
		target, ok := ids[edge.TargetNodeID]
		if !ok {
			continue
		}
		if edge.Label != "" {
			fmt.Fprintf(&b, "    %s -->|%s| %s\n", source, escapeMermaid(edge.Label), target)
		} else {
			fmt.Fprintf(&b, "    %s --> %s\n", source, target)
		}
	}

	return b.String(), nil
}

// mermaidShape wraps a label in the Mermaid bracket syntax for the node type:
// stadium for start/end, diamond for decisions, cylinder for data stores,
// rectangle for everything else.
func mermaidShape(nodeType models.NodeType, label string) string {
	quoted := `"` + escapeMermaid(label) + `"`
	switch nodeType {
	case models.NodeTypeStart, models.NodeTypeEnd:
		return "([" + quoted + "])"
	case models.NodeTypeDecision:
		return "{" + quoted + "}"
	case models.NodeTypeDataStore:
		return "[(" + quoted + ")]"
	default:
		return "[" + quoted + "]"
	}
}

func escapeMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, "|", "#124;")
	return s
}
