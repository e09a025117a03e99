package ports

import "context"

// DocumentLoader retrieves raw conversation documents by name.
// Names are file names without extension and are case-sensitive.
type DocumentLoader interface {
	// List returns every available document name. Order is not significant.
	List(ctx context.Context) ([]string, error)

	// Exists reports whether a document with the given name is listed.
	Exists(ctx context.Context, name string) (bool, error)

	// Load returns the raw bytes of a document.
	// Failures are *domain.LoadError values (LoadNotFound or LoadParseError).
	Load(ctx context.Context, name string) ([]byte, error)
}

// Watchable is implemented by loaders that can report document changes.
type Watchable interface {
	// Watch emits the name of every document that changed until ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
