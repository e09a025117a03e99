package domain

// Text is a line of dialogue text.
// Static text resolves to itself; template text needs the live conversation.
type Text interface {
	Resolve(s Subject) string
}

// StaticText is text without placeholders.
type StaticText string

func (t StaticText) Resolve(Subject) string { return string(t) }

// ResolveAll resolves every text against the same subject.
func ResolveAll(texts []Text, s Subject) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t == nil {
			out = append(out, "")
			continue
		}
		out = append(out, t.Resolve(s))
	}
	return out
}
