package document

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/aretw0/palaver/internal/logging"
	"github.com/aretw0/palaver/pkg/action"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/google/uuid"
)

const (
	// DefaultChoiceText labels choices that have no text.
	DefaultChoiceText = "Option"
	// ContinueText labels the single choice of a legacy response page.
	ContinueText = "Continue"
	// LegacyMainPageID is the id of the only authored page of a legacy document.
	LegacyMainPageID = "main"
)

// ResponsePageID is the id of the response page generated for legacy option i.
func ResponsePageID(i int) string {
	return "response_" + strconv.Itoa(i)
}

// Normalizer turns decoded documents into canonical form.
type Normalizer struct {
	actions *action.Registry
	logger  *slog.Logger
	newID   func() string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for recoverable document problems.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// WithIDGenerator replaces the UUID generator used for pages without a usable id.
func WithIDGenerator(fn func() string) Option {
	return func(n *Normalizer) {
		n.newID = fn
	}
}

// NewNormalizer creates a Normalizer resolving actions through actions.
// A nil registry gets the default one.
func NewNormalizer(actions *action.Registry, opts ...Option) *Normalizer {
	if actions == nil {
		actions = action.NewRegistry()
	}
	n := &Normalizer{
		actions: actions,
		logger:  logging.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize is a shortcut for NewNormalizer(actions).Normalize(doc).
func Normalize(doc *Document, actions *action.Registry) *Canonical {
	return NewNormalizer(actions).Normalize(doc)
}

// Normalize converts doc into canonical form. It never fails: parts that cannot
// be understood are dropped or degrade to disabled choices.
func (n *Normalizer) Normalize(doc *Document) *Canonical {
	c := &Canonical{
		Speakers:     make(map[string]SpeakerDef),
		Background:   doc.Background,
		EscapeAction: n.actions.ResolveAction(doc.EscapeAction),
		InitAction:   n.actions.ResolveAction(doc.InitAction),
	}
	// The init action runs before the first page; it must not close the conversation.
	if c.InitAction != nil {
		c.InitAction.CloseAfter = false
	}

	if doc.Paged() {
		n.normalizePaged(doc.Pages, doc.Speakers, c)
	} else if doc.Dialogue != nil {
		n.normalizeLegacy(doc.Dialogue, c)
	}

	for id, fields := range doc.Speakers {
		c.Speakers[id] = speakerDef(fields)
	}
	return c
}

func (n *Normalizer) normalizePaged(pages []PageDoc, speakers map[string]map[string]any, c *Canonical) {
	mainName := ""
	if len(pages) > 0 {
		mainName = pages[0].Speaker
	}
	c.Speakers[MainSpeakerID] = mainSpeaker(mainName)

	seen := make(map[string]bool, len(pages))
	for i, pd := range pages {
		id := pd.ID
		switch {
		case id == "":
			id = n.newID()
		case seen[id]:
			fresh := n.newID()
			n.logger.Warn("duplicate page id re-keyed", "page_id", id, "position", i, "new_id", fresh)
			id = fresh
		}
		seen[id] = true

		speaker := pd.Speaker
		if _, declared := speakers[speaker]; speaker == "" || (speaker == mainName && !declared) {
			speaker = MainSpeakerID
		}

		c.Pages = append(c.Pages, Page{
			ID:        id,
			SpeakerID: speaker,
			Lines:     n.lines(pd),
			Choices:   n.choices(id, pd.Inputs),
			OnExit:    n.actions.ResolveAction(pd.Action),
		})
	}
}

func (n *Normalizer) lines(pd PageDoc) []string {
	if pd.Lines != nil {
		out := make([]string, 0, len(pd.Lines))
		for _, raw := range pd.Lines {
			if line, ok := decodeLine(raw); ok {
				out = append(out, line)
			}
		}
		return out
	}
	if pd.Text != nil {
		return []string{*pd.Text}
	}
	return []string{}
}

func decodeLine(raw json.RawMessage) (string, bool) {
	if s, ok := scalar(raw); ok {
		return s, true
	}
	if obj, ok := asObject(raw); ok {
		return scalar(obj["text"])
	}
	return "", false
}

func (n *Normalizer) choices(pageID string, inputs []json.RawMessage) []Choice {
	out := make([]Choice, 0, len(inputs))
	for _, raw := range inputs {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '"' {
			in, ok := n.actions.ResolveInput(raw)
			if !ok {
				n.logger.Debug("unknown named input skipped", "page_id", pageID, "input", string(raw))
				continue
			}
			for _, ic := range in {
				out = append(out, Choice{
					Text:    textOr(ic.Text, DefaultChoiceText),
					Value:   valueOr(ic.Value, len(out)),
					Binding: Bind(ic.Action, ic.Next),
				})
			}
			continue
		}

		in, ok := decodeInput(raw)
		if !ok {
			n.logger.Debug("malformed input skipped", "page_id", pageID, "input", string(raw))
			continue
		}
		if in.Type != "" && in.Type != "option" {
			n.logger.Debug("unsupported input type skipped", "page_id", pageID, "type", in.Type)
			continue
		}
		out = append(out, Choice{
			Text:    textOr(in.Text, DefaultChoiceText),
			Value:   valueOr(rawValue(in.Value), len(out)),
			Binding: Bind(n.actions.ResolveAction(in.Action), in.Next),
		})
	}
	return out
}

func (n *Normalizer) normalizeLegacy(d *LegacyDialogue, c *Canonical) {
	c.Speakers[MainSpeakerID] = mainSpeaker(d.Speaker)

	main := Page{
		ID:        LegacyMainPageID,
		SpeakerID: MainSpeakerID,
		Lines:     []string{},
		Choices:   make([]Choice, 0, len(d.Options)),
	}
	if d.Text != nil {
		main.Lines = append(main.Lines, *d.Text)
	}

	var responses []Page
	for i, opt := range d.Options {
		choice := Choice{
			Text:  textOr(opt.Text, DefaultChoiceText),
			Value: strconv.Itoa(len(main.Choices)),
		}
		if opt.Response != nil {
			id := ResponsePageID(i)
			responses = append(responses, Page{
				ID:        id,
				SpeakerID: MainSpeakerID,
				Lines:     []string{*opt.Response},
				Choices: []Choice{{
					Text:    ContinueText,
					Value:   "0",
					Binding: Bind(domain.Close(), ""),
				}},
			})
			choice.Binding = Bind(nil, id)
		} else {
			choice.Binding = Bind(n.legacyAction(opt.Action), "")
		}
		main.Choices = append(main.Choices, choice)
	}

	c.Pages = append([]Page{main}, responses...)
}

// legacyAction keeps only the "close" name and inline command objects.
func (n *Normalizer) legacyAction(raw json.RawMessage) *domain.Action {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil || name != string(domain.ActionClose) {
			return nil
		}
		return domain.Close()
	}
	if raw[0] == '{' {
		return n.actions.ResolveAction(raw)
	}
	return nil
}

func mainSpeaker(name string) SpeakerDef {
	return SpeakerDef{Type: MainSpeakerType, Fields: map[string]any{"name": name}}
}

func speakerDef(fields map[string]any) SpeakerDef {
	def := SpeakerDef{Fields: fields}
	if t, ok := fields["type"].(string); ok {
		def.Type = t
	}
	return def
}

func textOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func valueOr(v string, ordinal int) string {
	if v == "" {
		return strconv.Itoa(ordinal)
	}
	return v
}

func rawValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if s, ok := scalar(raw); ok {
		return s
	}
	return string(raw)
}
