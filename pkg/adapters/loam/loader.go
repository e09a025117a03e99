package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/palaver/pkg/domain"
)

// Pattern selects the files the loader considers documents.
const Pattern = "**/*.{md,json,yaml,yml}"

// Loader adapts a Loam repository to ports.DocumentLoader.
// Frontmatter carries the document; a markdown body without pages or
// dialogue becomes a single page of text.
type Loader struct {
	Repo *loam.TypedRepository[DocumentMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[DocumentMetadata]) *Loader {
	return &Loader{Repo: repo}
}

// index maps document names to Loam ids.
func (l *Loader) index(ctx context.Context) (map[string]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}
	idx := make(map[string]string, len(docs))
	for _, doc := range docs {
		name := trimExtension(doc.ID)
		if prev, ok := idx[name]; ok {
			return nil, fmt.Errorf("collision detected: document %q is defined in both %q and %q", name, prev, doc.ID)
		}
		idx[name] = doc.ID
	}
	return idx, nil
}

// List returns the names of all documents.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	idx, err := l.index(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether the document is listed.
func (l *Loader) Exists(ctx context.Context, name string) (bool, error) {
	idx, err := l.index(ctx)
	if err != nil {
		return false, err
	}
	_, ok := idx[name]
	return ok, nil
}

// Load returns the document as JSON.
func (l *Loader) Load(ctx context.Context, name string) ([]byte, error) {
	idx, err := l.index(ctx)
	if err != nil {
		return nil, domain.ParseFailure(name, err)
	}
	id, ok := idx[name]
	if !ok {
		return nil, domain.NotFound(name)
	}

	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return nil, domain.ParseFailure(name, fmt.Errorf("loam get failed: %w", err))
	}

	meta := normalize(doc.Data)
	if meta.empty() && strings.TrimSpace(doc.Content) != "" {
		meta.Pages = []any{map[string]any{"text": strings.TrimSpace(doc.Content)}}
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return nil, domain.ParseFailure(name, err)
	}
	return data, nil
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// normalize rewrites YAML maps with interface keys so they encode as JSON.
func normalize(m DocumentMetadata) DocumentMetadata {
	return DocumentMetadata{
		Pages:        jsonSafe(m.Pages),
		Dialogue:     jsonSafe(m.Dialogue),
		Speakers:     jsonSafe(m.Speakers),
		Background:   jsonSafe(m.Background),
		EscapeAction: jsonSafe(m.EscapeAction),
		InitAction:   jsonSafe(m.InitAction),
	}
}

func jsonSafe(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[fmt.Sprintf("%v", k)] = jsonSafe(sub)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[k] = jsonSafe(sub)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = jsonSafe(sub)
		}
		return out
	default:
		return v
	}
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}
