package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Role identifies the author of a chat message.
type Role string

const (
	// RoleSystem carries instructions and grounding context.
	RoleSystem Role = "system"
	// RoleUser carries the user's question.
	RoleUser Role = "user"
	// RoleAssistant carries a previous model reply.
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role
	Content string
}

// ChatCompleter requests a single chat completion from a language model.
// Implementations must be thread-safe for concurrent use.
type ChatCompleter interface {
	// Complete sends messages as one turn to the named model and returns the
	// text of the first choice unmodified. An empty model selects the
	// implementation's default.
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and ChatCompleter instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ChatCompleter returns the chat completion service.
	// The returned ChatCompleter is safe for concurrent use.
	ChatCompleter() ChatCompleter

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
