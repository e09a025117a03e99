package loam

// DocumentMetadata is the frontmatter of a conversation document.
// Values stay untyped; the document package decodes them.
type DocumentMetadata struct {
	Pages        any `json:"pages,omitempty" mapstructure:"pages"`
	Dialogue     any `json:"dialogue,omitempty" mapstructure:"dialogue"`
	Speakers     any `json:"speakers,omitempty" mapstructure:"speakers"`
	Background   any `json:"background,omitempty" mapstructure:"background"`
	EscapeAction any `json:"escape_action,omitempty" mapstructure:"escape_action"`
	InitAction   any `json:"init_action,omitempty" mapstructure:"init_action"`
}

func (m DocumentMetadata) empty() bool {
	return m.Pages == nil && m.Dialogue == nil
}
