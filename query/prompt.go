package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/prompts"
)

const (
	// DefaultMaxPromptChars is the default prompt size limit in characters.
	DefaultMaxPromptChars = 8000

	// FallbackAnswer is the literal answer the model is told to give when
	// the context does not contain the answer.
	FallbackAnswer = "I don't know"

	// DataMarker introduces the retrieved context in the system prompt.
	DataMarker = "The data:"
)

// DefaultSystemTemplate is the system prompt. The retrieved chunks are
// rendered in place of {{.data}}.
const DefaultSystemTemplate = `You are a helpful assistant.
You answer questions only based on the context provided from the knowledge I'm providing you.
You don't use your internal knowledge and you don't make up answers.
If you don't know the answer, just say: ` + FallbackAnswer + `.
-------------------
` + DataMarker + `
{{.data}}`

// Prompt is a system instruction with the retrieved context and the user question.
type Prompt struct {
	System string
	User   string
}

// Size returns the prompt length in characters.
func (p *Prompt) Size() int {
	return utf8.RuneCountInString(p.System) + utf8.RuneCountInString(p.User)
}

// PromptBuilder renders retrieved chunks and a question into a Prompt.
type PromptBuilder struct {
	template prompts.PromptTemplate
	maxChars int
}

// PromptOption configures a PromptBuilder.
type PromptOption func(*PromptBuilder) error

// WithMaxPromptChars sets the prompt size limit. Zero disables the limit.
// Default is DefaultMaxPromptChars.
func WithMaxPromptChars(n int) PromptOption {
	return func(b *PromptBuilder) error {
		if n < 0 {
			return fmt.Errorf("max prompt chars must not be negative, got %d", n)
		}
		b.maxChars = n
		return nil
	}
}

// WithSystemTemplate replaces the system prompt template. It must reference
// {{.data}}.
func WithSystemTemplate(tmpl string) PromptOption {
	return func(b *PromptBuilder) error {
		if !strings.Contains(tmpl, "{{.data}}") {
			return fmt.Errorf("system template must reference {{.data}}")
		}
		b.template = prompts.NewPromptTemplate(tmpl, []string{"data"})
		return nil
	}
}

// NewPromptBuilder creates a PromptBuilder.
func NewPromptBuilder(opts ...PromptOption) (*PromptBuilder, error) {
	b := &PromptBuilder{
		template: prompts.NewPromptTemplate(DefaultSystemTemplate, []string{"data"}),
		maxChars: DefaultMaxPromptChars,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// MaxPromptChars returns the configured limit.
func (b *PromptBuilder) MaxPromptChars() int {
	return b.maxChars
}

// Build places chunks verbatim after the data marker, separated by blank
// lines, and uses question verbatim as the user message. A prompt over the
// size limit is an error; it is never truncated.
func (b *PromptBuilder) Build(chunks []string, question string) (*Prompt, error) {
	system, err := b.template.Format(map[string]any{
		"data": strings.Join(chunks, "\n\n"),
	})
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	prompt := &Prompt{System: system, User: question}
	if b.maxChars > 0 {
		if size := prompt.Size(); size > b.maxChars {
			return nil, fmt.Errorf("%w: %d characters, limit %d", ErrPromptTooLarge, size, b.maxChars)
		}
	}
	return prompt, nil
}
