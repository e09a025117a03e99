package domain

// View is a fully resolved rendering of the current page.
type View struct {
	ConversationID string       `json:"conversation_id"`
	Document       string       `json:"document"`
	Player         string       `json:"player"`
	PageID         string       `json:"page_id"`
	PageIndex      int          `json:"page_index"`
	Speaker        string       `json:"speaker"`
	Portrait       string       `json:"portrait,omitempty"`
	Lines          []string     `json:"lines"`
	Choices        []ChoiceView `json:"choices"`
	Background     string       `json:"background"`
	Status         Status       `json:"status"`
}

// ChoiceView is one resolved choice.
type ChoiceView struct {
	Value   string `json:"value"`
	Text    string `json:"text"`
	Enabled bool   `json:"enabled"`
}
