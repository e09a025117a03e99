package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/palaver/pkg/domain"
)

// Loader implements ports.DocumentLoader using an in-memory map.
type Loader struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewLoader creates a Loader from raw JSON documents keyed by name.
func NewLoader(docs map[string]string) *Loader {
	l := &Loader{docs: make(map[string][]byte, len(docs))}
	for name, src := range docs {
		l.docs[name] = []byte(src)
	}
	return l
}

// Put adds or replaces a document.
func (l *Loader) Put(name string, src []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[name] = append([]byte(nil), src...)
}

// List returns all document names, sorted.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.docs))
	for name := range l.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether the document is present.
func (l *Loader) Exists(ctx context.Context, name string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.docs[name]
	return ok, nil
}

// Load returns the raw document.
func (l *Loader) Load(ctx context.Context, name string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src, ok := l.docs[name]
	if !ok {
		return nil, domain.NotFound(name)
	}
	return append([]byte(nil), src...), nil
}
