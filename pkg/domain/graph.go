package domain

// DefaultBackground is used when a document does not name a background.
const DefaultBackground = "palaver:textures/gui/dialogue/default.png"

// Graph is the executable form of a conversation document.
// It is never mutated after it is built and is shared by every conversation
// opened from the same document.
type Graph struct {
	Name         string
	Pages        []Page
	PageIndex    map[string]int
	Speakers     map[string]Speaker
	Background   string
	EscapeAction *Action
	InitAction   *Action
}

// IndexOf returns the position of the page with the given id.
func (g *Graph) IndexOf(pageID string) (int, bool) {
	i, ok := g.PageIndex[pageID]
	return i, ok
}

// PageAt returns the page at position i.
func (g *Graph) PageAt(i int) (*Page, bool) {
	if i < 0 || i >= len(g.Pages) {
		return nil, false
	}
	return &g.Pages[i], true
}

// Speaker returns the registered speaker for id, or a default speaker named after the id.
func (g *Graph) Speaker(id string) Speaker {
	if s, ok := g.Speakers[id]; ok {
		return s
	}
	return Speaker{ID: id, Name: StaticText(id)}
}
