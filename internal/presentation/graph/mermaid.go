// Package graph renders dialogue graphs as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/palaver/pkg/domain"
)

// EndNode is the node every closing choice points to.
const EndNode = "__end"

// Overlay marks the page a stored conversation is on.
type Overlay struct {
	CurrentPage string
}

// GenerateMermaid produces a Mermaid flowchart for g.
// Shapes:
// - First page: ((Circle))
// - Page running commands: [[Subroutine]]
// - Other pages: [Rectangle]
// Command hops use dotted arrows. Choices that close point at EndNode.
func GenerateMermaid(g *domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ends := false
	for i := range g.Pages {
		page := &g.Pages[i]
		safeID := sanitizeMermaidID(page.ID)

		opener, closer := "[", "]"
		switch {
		case i == 0:
			opener, closer = "((", "))"
		case runsCommands(page):
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, page.ID, closer)

		for _, c := range page.Choices {
			if edge(&sb, g, i, label(c), c.Action) {
				ends = true
			}
		}
		exit := page.OnExit
		if exit == nil {
			exit = g.EscapeAction
		}
		if exit != nil && exit.Kind != domain.ActionClose {
			edge(&sb, g, i, "esc", exit)
		}
	}
	if ends {
		fmt.Fprintf(&sb, "    %s((\"end\"))\n", EndNode)
	}

	if overlay != nil && overlay.CurrentPage != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentPage))
	}
	return sb.String()
}

// edge writes the arrow for act leaving page i and reports whether it closes.
func edge(sb *strings.Builder, g *domain.Graph, i int, text string, act *domain.Action) bool {
	if act == nil {
		return false
	}
	from := sanitizeMermaidID(g.Pages[i].ID)

	var to string
	switch act.Kind {
	case domain.ActionAdvancePage:
		if i+1 >= len(g.Pages) {
			to = EndNode
		} else {
			to = sanitizeMermaidID(g.Pages[i+1].ID)
		}
	case domain.ActionNavigate, domain.ActionRunCommandsThenNavigate:
		to = sanitizeMermaidID(act.Target)
	case domain.ActionClose:
		to = EndNode
	case domain.ActionRunCommands:
		if !act.CloseAfter {
			return false
		}
		to = EndNode
	default:
		return false
	}

	text = strings.ReplaceAll(text, "\"", "'")
	if act.RunsCommands() {
		fmt.Fprintf(sb, "    %s -. \"%s\" .-> %s\n", from, text, to)
	} else {
		fmt.Fprintf(sb, "    %s -- \"%s\" --> %s\n", from, text, to)
	}
	return to == EndNode
}

func runsCommands(p *domain.Page) bool {
	for _, c := range p.Choices {
		if c.Action != nil && c.Action.RunsCommands() {
			return true
		}
	}
	return false
}

// label uses the literal choice text when there is one, the value otherwise.
func label(c domain.Choice) string {
	if s, ok := c.Text.(domain.StaticText); ok && s != "" {
		return string(s)
	}
	return c.Value
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
