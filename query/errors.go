package query

import (
	"errors"
	"fmt"

	"github.com/poiesic/groundwork/ai"
)

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrCompleterRequired is returned when a chat completer is not provided.
	ErrCompleterRequired = errors.New("chat completer required")

	// ErrEmptyQuestion is returned for an empty or whitespace-only question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrPromptTooLarge is returned when a built prompt exceeds the size limit.
	ErrPromptTooLarge = errors.New("prompt too large")

	// ErrGeneration is matched by every *GenerationError.
	ErrGeneration = errors.New("generation failed")
)

// GenerationError reports a failed chat completion for a question.
type GenerationError struct {
	Question string
	Kind     ai.ErrorKind
	Err      error
}

// Error implements error.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate answer for %q (%s): %v", e.Question, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrGeneration.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}
