package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/groundwork/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatCompleter implements ai.ChatCompleter on top of any langchaingo llms.Model.
type ChatCompleter struct {
	model  llms.Model
	logger *slog.Logger
}

var _ ai.ChatCompleter = (*ChatCompleter)(nil)

func newChatCompleter(config *ai.Config) (*ChatCompleter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := append(clientOptions(config.ChatHost, config.APIKey), openai.WithModel(config.ChatModel))
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return newChatCompleterWithModel(client), nil
}

func newChatCompleterWithModel(model llms.Model) *ChatCompleter {
	return &ChatCompleter{
		model:  model,
		logger: slog.Default().With("component", "openai-completer"),
	}
}

// NewChatCompleter creates a chat completer using the provided configuration.
func NewChatCompleter(config *ai.Config) (ai.ChatCompleter, error) {
	return newChatCompleter(config)
}

// NewChatCompleterFromModel wraps an existing langchaingo model, such as
// llms/fake in tests or another provider's client.
func NewChatCompleterFromModel(model llms.Model) ai.ChatCompleter {
	return newChatCompleterWithModel(model)
}

// Complete sends messages as a single request and returns the first choice's
// content unmodified. Errors are mapped to langchaingo's standardized codes.
func (c *ChatCompleter) Complete(ctx context.Context, model string, messages []ai.Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role, err := chatMessageType(msg.Role)
		if err != nil {
			return "", err
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}

	var opts []llms.CallOption
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}

	c.logger.Debug("requesting completion", "model", model, "messages", len(messages))
	resp, err := c.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		c.logger.Error("completion failed", "model", model, "err", err)
		return "", openai.MapError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ai.ErrEmptyCompletion
	}
	return resp.Choices[0].Content, nil
}

func chatMessageType(role ai.Role) (llms.ChatMessageType, error) {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem, nil
	case ai.RoleUser:
		return llms.ChatMessageTypeHuman, nil
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI, nil
	default:
		return "", fmt.Errorf("unsupported message role %q", role)
	}
}
