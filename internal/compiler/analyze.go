package compiler

import (
	"github.com/aretw0/palaver/pkg/domain"
)

// Link is a navigation reference found in a graph.
type Link struct {
	PageID string `json:"page_id"`
	Choice string `json:"choice,omitempty"` // choice value, empty for page-level actions
	Target string `json:"target"`
}

// Report lists structural problems of a graph. None of them stop a graph from
// running: dangling jumps close the conversation, unreachable pages are never shown.
type Report struct {
	Dangling    []Link   `json:"dangling"`
	Unreachable []string `json:"unreachable"`
}

// OK reports whether the graph has no problems.
func (r Report) OK() bool {
	return len(r.Dangling) == 0 && len(r.Unreachable) == 0
}

// Analyze walks g from its first page and reports dangling jumps and pages no
// path reaches.
func Analyze(g *domain.Graph) Report {
	var report Report
	if len(g.Pages) == 0 {
		return report
	}

	visited := make([]bool, len(g.Pages))
	queue := []int{0}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if visited[i] {
			continue
		}
		visited[i] = true

		page := &g.Pages[i]
		follow := func(choice string, act *domain.Action) {
			if act == nil {
				return
			}
			switch act.Kind {
			case domain.ActionAdvancePage:
				if i+1 < len(g.Pages) {
					queue = append(queue, i+1)
				}
			case domain.ActionNavigate, domain.ActionRunCommandsThenNavigate:
				next, ok := g.IndexOf(act.Target)
				if !ok {
					report.Dangling = append(report.Dangling, Link{PageID: page.ID, Choice: choice, Target: act.Target})
					return
				}
				queue = append(queue, next)
			}
		}
		for _, c := range page.Choices {
			follow(c.Value, c.Action)
		}
		if page.OnExit != nil {
			follow("", page.OnExit)
		} else {
			follow("", g.EscapeAction)
		}
	}

	for i, ok := range visited {
		if !ok {
			report.Unreachable = append(report.Unreachable, g.Pages[i].ID)
		}
	}
	return report
}
