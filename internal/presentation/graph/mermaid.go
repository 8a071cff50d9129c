package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/domain"
)

// Overlay highlights a conversation on top of the dialogue graph.
type Overlay struct {
	Visited []domain.State
	Current domain.State
}

// GenerateMermaid renders a rule table as a Mermaid flowchart.
//
// Shapes: start is a circle, states waiting on user input are
// parallelograms, everything else is a rectangle. Rules with an empty source
// list are drawn from a single "any" node. Guarded rules get a dotted edge to
// their fallback destination.
func GenerateMermaid(table []runtime.Rule, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, s := range domain.States {
		sb.WriteString(node(s))
	}

	wildcard := false
	for _, r := range table {
		sources := r.Sources
		if len(sources) == 0 {
			if !wildcard {
				sb.WriteString("    any{{\"*\"}}\n")
				wildcard = true
			}
			sources = []domain.State{"any"}
		}
		for _, from := range sources {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitize(string(from)), r.Trigger, sanitize(string(r.Dest)))
			if r.Guard != nil && r.Otherwise != "" {
				fmt.Fprintf(&sb, "    %s -. \"%s (otherwise)\" .-> %s\n", sanitize(string(from)), r.Trigger, sanitize(string(r.Otherwise)))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, s := range overlay.Visited {
			id := sanitize(string(s))
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", id)
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitize(string(overlay.Current)))
		}
	}

	return sb.String()
}

func node(s domain.State) string {
	opener, closer := "[", "]"
	switch {
	case s == domain.StateStart:
		opener, closer = "((", "))"
	case awaitsInput(s):
		opener, closer = "[/", "/]"
	}
	return fmt.Sprintf("    %s%s\"%s\"%s\n", sanitize(string(s)), opener, s, closer)
}

func awaitsInput(s domain.State) bool {
	switch s {
	case domain.StateGetLocation, domain.StateGetSubject, domain.StateGetSchedule,
		domain.StateGetTermInfo, domain.StateGetArticleSummary, domain.StateGetNewsSuggestion,
		domain.StateFeedback, domain.StateSelectURL, domain.StateMonthlyNewsResponse:
		return true
	}
	return false
}

func sanitize(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", " ", "_").Replace(id)
}
