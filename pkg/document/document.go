// Package document decodes conversation documents and normalizes both of their
// shapes into one canonical page list.
//
// Two shapes exist. The legacy shape holds a single "dialogue" object whose
// options may carry a one-line response. The paged shape holds a "pages"
// array with explicit ids, inputs and next references. When both are present
// the paged shape wins.
//
// Decoding is lenient below the top level. Elements that are not objects are
// skipped and scalar fields accept numbers and booleans as their literal text.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMissingShape is returned when a document has neither "pages" nor "dialogue".
	ErrMissingShape = errors.New(`document has neither "pages" nor "dialogue"`)
	// ErrNoPages is returned when a paged document has no usable page.
	ErrNoPages = errors.New("document declares no pages")
)

// Document is the decoded source form. Fields whose JSON type varies are kept raw
// and resolved during normalization.
type Document struct {
	Pages        []PageDoc
	Dialogue     *LegacyDialogue
	Speakers     map[string]map[string]any
	Background   string
	EscapeAction json.RawMessage
	InitAction   json.RawMessage
}

// Paged reports whether the document uses the paged shape.
func (d *Document) Paged() bool {
	return d.Pages != nil
}

// PageDoc is one page of a paged document.
type PageDoc struct {
	ID      string
	Speaker string
	Text    *string
	Lines   []json.RawMessage
	Inputs  []json.RawMessage
	Action  json.RawMessage
}

// InputDoc is one object entry of a page's inputs.
type InputDoc struct {
	Type   string
	Text   string
	Value  json.RawMessage
	Next   string
	Action json.RawMessage
}

// LegacyDialogue is the single-page legacy shape.
type LegacyDialogue struct {
	Speaker string
	Text    *string
	Options []LegacyOption
}

// LegacyOption is one option of a legacy dialogue.
type LegacyOption struct {
	Text     string
	Response *string
	Action   json.RawMessage
}

// Decode parses a JSON document, dropping malformed elements silently.
func Decode(data []byte) (*Document, error) {
	return NewNormalizer(nil).Decode(data)
}

// Decode parses a JSON document. Only a document that is not a JSON object, or
// that carries no usable shape, is an error; malformed pages, options and
// speakers are skipped and logged at debug level.
func (n *Normalizer) Decode(data []byte) (*Document, error) {
	var root object
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("decode document: %w", ErrMissingShape)
	}

	doc := &Document{
		Background:   root.str("background"),
		EscapeAction: root["escape_action"],
		InitAction:   root["init_action"],
	}

	if raw, ok := root["pages"]; ok && !isNull(raw) {
		items, ok := asList(raw)
		if !ok {
			return nil, fmt.Errorf(`decode document: "pages" is not an array`)
		}
		doc.Pages = make([]PageDoc, 0, len(items))
		for i, item := range items {
			obj, ok := asObject(item)
			if !ok {
				n.logger.Debug("malformed page skipped", "position", i, "page", string(item))
				continue
			}
			doc.Pages = append(doc.Pages, decodePage(obj))
		}
		if len(doc.Pages) == 0 {
			return nil, ErrNoPages
		}
	}

	if obj, ok := asObject(root["dialogue"]); ok {
		doc.Dialogue = n.decodeDialogue(obj)
	} else if raw, ok := root["dialogue"]; ok && !isNull(raw) {
		n.logger.Debug("malformed dialogue skipped", "dialogue", string(raw))
	}

	if doc.Pages == nil && doc.Dialogue == nil {
		return nil, ErrMissingShape
	}

	if speakers, ok := asObject(root["speakers"]); ok {
		doc.Speakers = make(map[string]map[string]any, len(speakers))
		for id, raw := range speakers {
			var fields map[string]any
			if _, isObj := asObject(raw); !isObj || json.Unmarshal(raw, &fields) != nil {
				n.logger.Debug("malformed speaker skipped", "speaker", id)
				continue
			}
			doc.Speakers[id] = fields
		}
	}
	return doc, nil
}

func decodePage(obj object) PageDoc {
	lines, _ := asList(obj["lines"])
	inputs, _ := asList(obj["inputs"])
	return PageDoc{
		ID:      obj.str("id"),
		Speaker: obj.str("speaker"),
		Text:    obj.optStr("text"),
		Lines:   lines,
		Inputs:  inputs,
		Action:  obj["action"],
	}
}

func (n *Normalizer) decodeDialogue(obj object) *LegacyDialogue {
	d := &LegacyDialogue{
		Speaker: obj.str("speaker"),
		Text:    obj.optStr("text"),
	}
	items, _ := asList(obj["options"])
	for i, item := range items {
		opt, ok := asObject(item)
		if !ok {
			n.logger.Debug("malformed option skipped", "position", i, "option", string(item))
			continue
		}
		d.Options = append(d.Options, LegacyOption{
			Text:     opt.str("text"),
			Response: opt.optStr("response"),
			Action:   opt["action"],
		})
	}
	return d
}

// decodeInput reads one object entry of a page's inputs.
func decodeInput(raw json.RawMessage) (InputDoc, bool) {
	obj, ok := asObject(raw)
	if !ok {
		return InputDoc{}, false
	}
	return InputDoc{
		Type:   obj.str("type"),
		Text:   obj.str("text"),
		Value:  obj["value"],
		Next:   obj.str("next"),
		Action: obj["action"],
	}, true
}

type object map[string]json.RawMessage

func (o object) str(key string) string {
	s, _ := scalar(o[key])
	return s
}

func (o object) optStr(key string) *string {
	if s, ok := scalar(o[key]); ok {
		return &s
	}
	return nil
}

func asObject(raw json.RawMessage) (object, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	return o, true
}

func asList(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// scalar renders a JSON string, number or boolean as text. Objects, arrays and
// null report false.
func scalar(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return "", false
	}
	switch raw[0] {
	case '{', '[':
		return "", false
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	return string(raw), true
}
