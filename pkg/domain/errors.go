package domain

import (
	"errors"
	"fmt"
)

// ErrDocumentNotFound is returned when a named conversation document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// ErrDocumentInvalid is returned when a document exists but cannot be decoded.
var ErrDocumentInvalid = errors.New("document invalid")

// ErrConversationNotFound is returned when a player has no active conversation.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrConversationClosed is returned when input reaches a conversation that already closed.
var ErrConversationClosed = errors.New("conversation closed")

// ErrUnknownChoice is returned when a choice value does not match any choice on the current page.
var ErrUnknownChoice = errors.New("unknown choice")

// LoadErrorKind classifies document load failures.
type LoadErrorKind int

const (
	LoadNotFound LoadErrorKind = iota
	LoadParseError
)

func (k LoadErrorKind) String() string {
	switch k {
	case LoadNotFound:
		return "not_found"
	case LoadParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// LoadError is returned by document loaders.
// It matches ErrDocumentNotFound or ErrDocumentInvalid with errors.Is, depending on Kind.
type LoadError struct {
	Name string
	Kind LoadErrorKind
	Err  error
}

func (e *LoadError) Error() string {
	if e.Kind == LoadNotFound {
		return fmt.Sprintf("document %q not found", e.Name)
	}
	if e.Err == nil {
		return fmt.Sprintf("document %q could not be parsed", e.Name)
	}
	return fmt.Sprintf("document %q could not be parsed: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrDocumentNotFound:
		return e.Kind == LoadNotFound
	case ErrDocumentInvalid:
		return e.Kind == LoadParseError
	}
	return false
}

// NotFound builds a LoadError for a missing document.
func NotFound(name string) *LoadError {
	return &LoadError{Name: name, Kind: LoadNotFound}
}

// ParseFailure builds a LoadError for a document that could not be decoded.
func ParseFailure(name string, err error) *LoadError {
	return &LoadError{Name: name, Kind: LoadParseError, Err: err}
}
