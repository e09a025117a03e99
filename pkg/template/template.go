// Package template resolves player placeholders such as <player> inside dialogue text.
//
// Text without markers is wrapped once into a constant; text with markers is
// wrapped into a Deferred value that is resolved against the live conversation
// every time it is shown.
package template

import (
	"regexp"

	"github.com/aretw0/palaver/pkg/domain"
	"github.com/aretw0/palaver/pkg/registry"
)

var markerPattern = regexp.MustCompile(`<([a-zA-Z0-9_:-]+)>`)

// Provider produces the replacement for one placeholder.
type Provider func(s domain.Subject) string

// Registry holds the named placeholder providers.
type Registry struct {
	providers *registry.Registry[Provider]
}

// NewRegistry creates a registry seeded with the player placeholders:
// player, player_name, player_display and player_uuid.
func NewRegistry() *Registry {
	r := &Registry{providers: registry.New[Provider]()}
	r.Register("player", playerName)
	r.Register("player_name", playerName)
	r.Register("player_display", playerDisplay)
	r.Register("player_uuid", withPlayer(domain.Player.UniqueID))
	return r
}

// Register adds or replaces the provider for name.
func (r *Registry) Register(name string, p Provider) {
	r.providers.Register(name, p)
}

// Lookup returns the provider for name.
func (r *Registry) Lookup(name string) (Provider, bool) {
	return r.providers.Lookup(name)
}

// Names lists the registered placeholder names.
func (r *Registry) Names() []string {
	return r.providers.Names()
}

var playerName = withPlayer(domain.Player.Name)

func playerDisplay(s domain.Subject) string {
	return withPlayer(func(p domain.Player) string {
		if d := p.DisplayName(); d != "" {
			return d
		}
		return p.ScoreboardName()
	})(s)
}

func withPlayer(fn func(domain.Player) string) Provider {
	return func(s domain.Subject) string {
		if s == nil || s.Player() == nil {
			return ""
		}
		return fn(s.Player())
	}
}

// Resolver wraps literals into domain.Text values and resolves them.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a resolver over reg. A nil reg gets the default registry.
func NewResolver(reg *Registry) *Resolver {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Resolver{registry: reg}
}

// Registry returns the providers used by the resolver.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// HasMarkers reports whether literal contains at least one placeholder marker.
func HasMarkers(literal string) bool {
	return markerPattern.MatchString(literal)
}

// Wrap turns a literal into a Text.
func (r *Resolver) Wrap(literal string) domain.Text {
	if !HasMarkers(literal) {
		return domain.StaticText(literal)
	}
	return Deferred{literal: literal, resolver: r}
}

// WrapAll wraps every literal.
func (r *Resolver) WrapAll(literals []string) []domain.Text {
	out := make([]domain.Text, 0, len(literals))
	for _, l := range literals {
		out = append(out, r.Wrap(l))
	}
	return out
}

// Resolve substitutes every known marker in literal, left to right.
// Unknown markers are left untouched.
func (r *Resolver) Resolve(literal string, s domain.Subject) string {
	return markerPattern.ReplaceAllStringFunc(literal, func(marker string) string {
		name := marker[1 : len(marker)-1]
		p, ok := r.registry.Lookup(name)
		if !ok {
			return marker
		}
		return p(s)
	})
}

// Deferred is text that is resolved against the live conversation.
type Deferred struct {
	literal  string
	resolver *Resolver
}

func (d Deferred) Resolve(s domain.Subject) string {
	return d.resolver.Resolve(d.literal, s)
}

// Literal returns the unresolved text.
func (d Deferred) Literal() string {
	return d.literal
}
