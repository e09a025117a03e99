// Package action resolves the action syntax of conversation documents into domain actions.
//
// A choice action is either the name of a registered action ("close",
// "next_page", "noop", or anything registered later) or an inline command
// object such as {"type": "console", "commands": ["give {player} apple"]}.
package action

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/aretw0/palaver/pkg/domain"
	"github.com/aretw0/palaver/pkg/registry"
)

// InputChoice is one choice of a named input.
type InputChoice struct {
	Text   string
	Value  string
	Next   string
	Action *domain.Action
}

// Input is a reusable set of choices a page can reference by name.
type Input []InputChoice

// Registry holds named actions and named inputs.
type Registry struct {
	actions *registry.Registry[*domain.Action]
	inputs  *registry.Registry[Input]
}

// NewRegistry creates a registry seeded with close, next_page and noop.
func NewRegistry() *Registry {
	r := &Registry{
		actions: registry.New[*domain.Action](),
		inputs:  registry.New[Input](),
	}
	r.Register(string(domain.ActionClose), domain.Close())
	r.Register(string(domain.ActionAdvancePage), domain.AdvancePage())
	r.Register(string(domain.ActionNoOp), domain.NoOp())
	return r
}

// Register adds or replaces a named action.
func (r *Registry) Register(name string, act *domain.Action) {
	r.actions.Register(name, act)
}

// Lookup returns a copy of the named action.
func (r *Registry) Lookup(name string) (*domain.Action, bool) {
	act, ok := r.actions.Lookup(name)
	if !ok || act == nil {
		return nil, false
	}
	return clone(act), true
}

// Names lists the registered action names.
func (r *Registry) Names() []string {
	return r.actions.Names()
}

// RegisterInput adds or replaces a named input.
func (r *Registry) RegisterInput(name string, in Input) {
	r.inputs.Register(name, in)
}

// inlineCommand is the object form of an action.
type inlineCommand struct {
	Type     *string         `json:"type"`
	Commands json.RawMessage `json:"commands"`
}

// ResolveAction decodes a raw action value.
//
// A string is looked up by name; unknown names yield nil. An object with both
// "type" and "commands" becomes a command action that closes the conversation
// once dispatched, whatever the registry holds. Everything else yields nil.
func (r *Registry) ResolveAction(raw json.RawMessage) *domain.Action {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	switch raw[0] {
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil
		}
		act, _ := r.Lookup(name)
		return act
	case '{':
		var obj inlineCommand
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		if obj.Type == nil || isNull(obj.Commands) {
			return nil
		}
		cmds, ok := decodeCommands(obj.Commands)
		if !ok {
			return nil
		}
		act := domain.RunCommands(domain.ParseCommandMode(*obj.Type), cmds)
		act.CloseAfter = true
		return act
	default:
		return nil
	}
}

// ResolveInput decodes a raw input reference. Only a string naming a
// registered input resolves.
func (r *Registry) ResolveInput(raw json.RawMessage) (Input, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return nil, false
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return nil, false
	}
	in, ok := r.inputs.Lookup(name)
	if !ok {
		return nil, false
	}
	out := make(Input, len(in))
	for i, c := range in {
		c.Action = clone(c.Action)
		out[i] = c
	}
	return out, true
}

func decodeCommands(raw json.RawMessage) ([]string, bool) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, true
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func clone(a *domain.Action) *domain.Action {
	if a == nil {
		return nil
	}
	c := *a
	c.Commands = append([]string(nil), a.Commands...)
	return &c
}
