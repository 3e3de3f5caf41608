package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports an invalid manager or query configuration,
	// detected before anything reaches the store.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotFound is returned by Find when no document matches.
	ErrNotFound = errors.New("document not found")

	// ErrAmbiguousResult is returned by Find when more than one document matches.
	ErrAmbiguousResult = errors.New("ambiguous result")

	// ErrInvalidDate is returned by ParseDate for unparseable input.
	ErrInvalidDate = errors.New("invalid date")
)

// StoreError wraps a failure from a store collaborator with the operation and
// document type it happened in. The cause is never translated.
type StoreError struct {
	Op       string
	Document string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Document, e.Err)
}

// Unwrap returns the store failure.
func (e *StoreError) Unwrap() error {
	return e.Err
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
