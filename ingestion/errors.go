package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionRequired is returned when a collection is not provided.
	ErrCollectionRequired = errors.New("collection required")

	// ErrSplitterRequired is returned when a nil splitter is configured.
	ErrSplitterRequired = errors.New("splitter required")

	// ErrUnsupportedFormat is returned for files no loader accepts.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInput is matched by every *InputError.
	ErrInput = errors.New("input error")
)

// InputError reports a source that could not be read or parsed.
type InputError struct {
	Source string
	Err    error
}

// Error implements error.
func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *InputError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}
