// Package compiler builds executable dialogue graphs from canonical documents.
package compiler

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/palaver/internal/logging"
	"github.com/aretw0/palaver/pkg/action"
	"github.com/aretw0/palaver/pkg/document"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/aretw0/palaver/pkg/registry"
	"github.com/aretw0/palaver/pkg/template"
	"github.com/mitchellh/mapstructure"
)

// SpeakerFactory builds a speaker of one type from its declared fields.
type SpeakerFactory func(id string, fields map[string]any, wrap func(string) domain.Text) (domain.Speaker, error)

// Builder compiles documents into graphs.
type Builder struct {
	actions   *action.Registry
	resolver  *template.Resolver
	factories *registry.Registry[SpeakerFactory]
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithActions sets the action registry used while normalizing.
func WithActions(reg *action.Registry) Option {
	return func(b *Builder) {
		b.actions = reg
	}
}

// WithResolver sets the template resolver used to wrap texts.
func WithResolver(r *template.Resolver) Option {
	return func(b *Builder) {
		b.resolver = r
	}
}

// WithSpeakerFactory registers a factory for a speaker type.
func WithSpeakerFactory(speakerType string, f SpeakerFactory) Option {
	return func(b *Builder) {
		b.factories.Register(speakerType, f)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New creates a Builder with the npc speaker factory registered.
func New(opts ...Option) *Builder {
	b := &Builder{
		actions:   action.NewRegistry(),
		resolver:  template.NewResolver(nil),
		factories: registry.New[SpeakerFactory](),
		logger:    logging.NewNop(),
	}
	b.factories.Register(document.MainSpeakerType, NPCSpeaker)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Compile decodes, normalizes and builds a document.
// Decode failures are returned as *domain.LoadError with Kind LoadParseError.
func (b *Builder) Compile(name string, data []byte) (*domain.Graph, error) {
	norm := document.NewNormalizer(b.actions, document.WithLogger(b.logger.With("document", name)))
	doc, err := norm.Decode(data)
	if err != nil {
		return nil, domain.ParseFailure(name, err)
	}
	canon := norm.Normalize(doc)
	return b.Build(name, canon), nil
}

// Build turns a canonical document into a graph.
//
// The first pass registers every page id so that forward references in the
// second pass resolve regardless of page order.
func (b *Builder) Build(name string, c *document.Canonical) *domain.Graph {
	g := &domain.Graph{
		Name:         name,
		Pages:        make([]domain.Page, len(c.Pages)),
		PageIndex:    make(map[string]int, len(c.Pages)),
		Speakers:     make(map[string]domain.Speaker, len(c.Speakers)),
		Background:   c.Background,
		EscapeAction: c.EscapeAction,
		InitAction:   c.InitAction,
	}
	if g.Background == "" {
		g.Background = domain.DefaultBackground
	}
	if g.EscapeAction == nil {
		g.EscapeAction = domain.Close()
	}
	if g.InitAction == nil {
		g.InitAction = domain.NoOp()
	}

	for i, p := range c.Pages {
		g.PageIndex[p.ID] = i
	}

	for i, p := range c.Pages {
		page := domain.Page{
			ID:        p.ID,
			SpeakerID: p.SpeakerID,
			Lines:     b.resolver.WrapAll(p.Lines),
			Choices:   make([]domain.Choice, 0, len(p.Choices)),
			OnExit:    p.OnExit,
		}
		for _, ch := range p.Choices {
			page.Choices = append(page.Choices, domain.Choice{
				Text:   b.resolver.Wrap(ch.Text),
				Value:  ch.Value,
				Action: bindingAction(ch.Binding),
			})
		}
		g.Pages[i] = page
	}

	for id, def := range c.Speakers {
		g.Speakers[id] = b.speaker(id, def)
	}
	return g
}

func bindingAction(bind document.Binding) *domain.Action {
	switch bind.Kind {
	case document.BindAction:
		return bind.Action
	case document.BindNext:
		return domain.NavigateTo(bind.Next)
	case document.BindActionThenNext:
		return bind.Action.ThenNavigate(bind.Next)
	default:
		return nil
	}
}

func (b *Builder) speaker(id string, def document.SpeakerDef) domain.Speaker {
	if f, ok := b.factories.Lookup(def.Type); ok {
		s, err := f(id, def.Fields, b.resolver.Wrap)
		if err == nil {
			return s
		}
		b.logger.Warn("speaker factory failed, using default speaker", "speaker", id, "type", def.Type, "err", err)
	}
	return defaultSpeaker(id, def.Fields, b.resolver.Wrap)
}

type speakerFields struct {
	Name     string `mapstructure:"name"`
	Portrait string `mapstructure:"portrait"`
}

func decodeSpeaker(fields map[string]any) (speakerFields, error) {
	var out speakerFields
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(fields); err != nil {
		return out, fmt.Errorf("decode speaker fields: %w", err)
	}
	return out, nil
}

// NPCSpeaker is the factory for the "npc" speaker type.
func NPCSpeaker(id string, fields map[string]any, wrap func(string) domain.Text) (domain.Speaker, error) {
	f, err := decodeSpeaker(fields)
	if err != nil {
		return domain.Speaker{}, err
	}
	return domain.Speaker{ID: id, Name: wrap(f.Name), Portrait: f.Portrait}, nil
}

func defaultSpeaker(id string, fields map[string]any, wrap func(string) domain.Text) domain.Speaker {
	name := id
	if n, ok := fields["name"].(string); ok && n != "" {
		name = n
	}
	portrait, _ := fields["portrait"].(string)
	return domain.Speaker{ID: id, Name: wrap(name), Portrait: portrait}
}
