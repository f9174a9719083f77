package query

import (
	"context"
	"log/slog"

	"github.com/poiesic/groundwork/ai"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o"

// AnswerGenerator sends a prompt to a chat model as a single turn.
type AnswerGenerator struct {
	completer ai.ChatCompleter
	model     string
	logger    *slog.Logger
}

// NewAnswerGenerator creates a generator. An empty model uses DefaultModel.
func NewAnswerGenerator(completer ai.ChatCompleter, model string) (*AnswerGenerator, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	if model == "" {
		model = DefaultModel
	}
	return &AnswerGenerator{
		completer: completer,
		model:     model,
		logger:    slog.Default().With("component", "generator"),
	}, nil
}

// Model returns the chat model id.
func (g *AnswerGenerator) Model() string {
	return g.model
}

// Generate returns the model's answer unmodified. Failures are returned as
// *GenerationError and are not retried.
func (g *AnswerGenerator) Generate(ctx context.Context, prompt *Prompt) (string, error) {
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: prompt.System},
		{Role: ai.RoleUser, Content: prompt.User},
	}

	text, err := g.completer.Complete(ctx, g.model, messages)
	if err != nil {
		kind := ai.Classify(err)
		g.logger.Error("chat completion failed", "model", g.model, "kind", kind, "err", err)
		return "", &GenerationError{Question: prompt.User, Kind: kind, Err: err}
	}
	return text, nil
}
