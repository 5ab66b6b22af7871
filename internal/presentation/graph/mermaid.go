package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lessonkit/pkg/domain"
	stategraph "github.com/aretw0/lessonkit/pkg/graph"
	"github.com/aretw0/lessonkit/pkg/widget"
)

// Overlay contains learner progress to visualize on the graph.
type Overlay struct {
	VisitedStates []string
	CurrentState  string
}

const endID = "END__"

// GenerateMermaid produces a Mermaid flowchart of an exploration.
// It applies semantic styling:
// - Init state: ((Circle))
// - Answer widgets: [/Parallelogram/]
// - EndExploration and END: ([Stadium])
// - Default: [Rectangle]
// Default rules looping back to their own state are omitted.
func GenerateMermaid(exp *domain.Exploration, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	usesEnd := false
	for _, name := range exp.StateNames() {
		st := exp.States[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == exp.InitStateName:
			opener, closer = "((", "))"
		case st.Widget.WidgetID == widget.EndExploration:
			opener, closer = "([", "])"
		case st.Widget.WidgetID == widget.TextInput,
			st.Widget.WidgetID == widget.NumericInput,
			st.Widget.WidgetID == widget.MultipleChoiceInput:
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(name), closer))

		choices := stategraph.Choices(st.Widget.CustomizationArgs)
		for _, h := range st.Widget.Handlers {
			for _, r := range h.RuleSpecs {
				if r.IsDefault() && r.Dest == name {
					continue
				}
				to := sanitizeMermaidID(r.Dest)
				if r.Dest == domain.EndDest {
					to = endID
					usesEnd = true
				}
				arrow := "-->"
				if !r.IsDefault() {
					arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(stategraph.DescribeRule(r, choices)))
				}
				if h.Name != domain.SubmitHandler {
					arrow = fmt.Sprintf("-. \"%s\" .->", escapeLabel(h.Name))
				}
				sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, to))
			}
		}
	}
	if usesEnd {
		sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", endID, domain.EndDest))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedStates {
			if _, ok := exp.States[name]; !ok {
				continue
			}
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if _, ok := exp.States[overlay.CurrentState]; ok {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
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
