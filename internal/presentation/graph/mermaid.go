package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/cueline/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedCues []string
	CurrentCue  string
	Vamping     bool
}

// GenerateMermaid produces a Mermaid flowchart of a cue list in show order.
// It applies semantic styling:
// - Start cue: ((Circle))
// - Vamp cue: {{Hexagon}}
// - Jump cue: [/Parallelogram/]
// - Default: [Rectangle]
// Edges are labelled with what fires them: the exit boundary, a release, or Go.
func GenerateMermaid(cues []domain.CueNode, start string, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	if start == "" && len(cues) > 0 {
		start = cues[0].ID
	}

	for i, cue := range cues {
		safeID := sanitizeMermaidID(cue.ID)

		opener, closer := "[", "]"
		switch {
		case cue.ID == start:
			opener, closer = "((", "))"
		case cue.Policy.Kind == domain.PolicyVamp:
			opener, closer = "{{", "}}"
		case cue.Policy.Kind == domain.PolicyJump:
			opener, closer = "[/", "/]"
		}

		label := cue.ID
		if cue.Name != "" && cue.Name != cue.ID {
			label = fmt.Sprintf("%s <br/> %s", cue.ID, escape(cue.Name))
		}
		if cue.HasExit() {
			label = fmt.Sprintf("%s <br/> %g-%g", label, cue.Entry, cue.Exit)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		target := cue.Policy.Target
		switch cue.Policy.Kind {
		case domain.PolicyVamp:
			if target != "" {
				sb.WriteString(fmt.Sprintf("    %s -- \"release\" --> %s\n", safeID, sanitizeMermaidID(target)))
			}
		case domain.PolicyJump:
			if target != "" {
				sb.WriteString(fmt.Sprintf("    %s -. \"go\" .-> %s\n", safeID, sanitizeMermaidID(target)))
			}
		default:
			if target != "" {
				sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(target)))
			} else if i+1 < len(cues) {
				// An open cue reaches the next one in show order only with Go.
				sb.WriteString(fmt.Sprintf("    %s -. \"go\" .-> %s\n", safeID, sanitizeMermaidID(cues[i+1].ID)))
			}
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef vamping fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedCues {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentCue != "" {
			class := "current"
			if overlay.Vamping {
				class = "vamping"
			}
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(overlay.CurrentCue), class))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
