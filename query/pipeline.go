package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/retrieval"
)

// Retriever returns the chunks most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]core.QueryResult, error)
}

// Generator produces an answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt *Prompt) (string, error)
}

var (
	_ Retriever = (*retrieval.Retriever)(nil)
	_ Generator = (*AnswerGenerator)(nil)
)

// Answer is the outcome of one question.
type Answer struct {
	Question string
	Results  []core.QueryResult
	Prompt   *Prompt
	Text     string
}

// Pipeline answers questions from the chunks of a collection.
type Pipeline struct {
	retriever Retriever
	generator Generator
	builder   *PromptBuilder
	k         int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithK sets how many chunks are retrieved per question. Values <= 0 leave
// the choice to the retriever. Default is retrieval.DefaultK.
func WithK(k int) Option {
	return func(p *Pipeline) error {
		p.k = k
		return nil
	}
}

// WithPromptBuilder sets the prompt builder.
// Default is NewPromptBuilder().
func WithPromptBuilder(builder *PromptBuilder) Option {
	return func(p *Pipeline) error {
		if builder != nil {
			p.builder = builder
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a question answering pipeline.
func NewPipeline(retriever Retriever, generator Generator, opts ...Option) (*Pipeline, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrCompleterRequired
	}

	builder, err := NewPromptBuilder()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		retriever: retriever,
		generator: generator,
		builder:   builder,
		k:         retrieval.DefaultK,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "query")
	return p, nil
}

// Ask answers question.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	return p.AskWithMonitor(ctx, question, nil)
}

// AskWithMonitor answers question, reporting each stage to monitor.
// The generator is called even when retrieval finds nothing.
func (p *Pipeline) AskWithMonitor(ctx context.Context, question string, monitor Monitor) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(question)

	results, err := p.retriever.Retrieve(ctx, question, p.k)
	if err != nil {
		return nil, err
	}
	monitor.AfterRetrieval(results)

	prompt, err := p.builder.Build(retrieval.Texts(results), question)
	if err != nil {
		return nil, err
	}
	monitor.AfterPrompt(prompt)
	p.logger.Debug("prompt built", "chunks", len(results), "chars", prompt.Size())

	text, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	answer := &Answer{
		Question: question,
		Results:  results,
		Prompt:   prompt,
		Text:     text,
	}
	monitor.Finish(answer)
	return answer, nil
}
