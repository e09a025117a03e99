package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/palaver/internal/logging"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// Ext is the extension of conversation documents.
const Ext = ".json"

// Loader implements ports.DocumentLoader over a directory of *.json files.
// A document's name is its file name without the extension.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger used by Watch.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader reading from dir.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{dir: dir, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// List returns the names of the documents in the directory.
// A missing directory lists as empty.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		if name, ok := documentName(entry.Name()); ok && !entry.IsDir() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether the document is listed.
func (l *Loader) Exists(ctx context.Context, name string) (bool, error) {
	names, err := l.List(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(names, name)
	return i < len(names) && names[i] == name, nil
}

// Load reads the document and checks that it is well-formed JSON.
func (l *Loader) Load(ctx context.Context, name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, domain.NotFound(name)
	}
	data, err := os.ReadFile(filepath.Join(l.dir, name+Ext))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NotFound(name)
		}
		return nil, domain.ParseFailure(name, err)
	}
	if !json.Valid(data) {
		return nil, domain.ParseFailure(name, errors.New("malformed JSON"))
	}
	return data, nil
}

// Watch emits a document name whenever its file is written, created or removed.
// The channel closes when ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(l.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				name, ok := documentName(filepath.Base(ev.Name))
				if !ok || ev.Op == fsnotify.Chmod {
					continue
				}
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("document watcher error", "dir", l.dir, "err", err)
			}
		}
	}()
	return out, nil
}

func documentName(file string) (string, bool) {
	if filepath.Ext(file) != Ext || strings.HasPrefix(file, ".") {
		return "", false
	}
	return strings.TrimSuffix(file, Ext), true
}
