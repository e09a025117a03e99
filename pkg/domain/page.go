package domain

// Page is one screen of dialogue.
type Page struct {
	ID        string
	SpeakerID string
	Lines     []Text
	Choices   []Choice
	// OnExit overrides the graph escape action while this page is shown.
	OnExit *Action
}

// Choice is a selectable answer on a page.
type Choice struct {
	Text  Text
	Value string
	// Action is nil for choices whose action could not be resolved.
	Action *Action
}

// Enabled reports whether selecting the choice does anything.
func (c Choice) Enabled() bool {
	return c.Action != nil
}

// ChoiceByValue returns the first choice whose value matches.
func (p *Page) ChoiceByValue(value string) (Choice, bool) {
	for _, c := range p.Choices {
		if c.Value == value {
			return c, true
		}
	}
	return Choice{}, false
}

// Speaker is who says the lines of a page.
type Speaker struct {
	ID       string
	Name     Text
	Portrait string
}
