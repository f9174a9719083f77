// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"log/slog"
	"os"

	"github.com/poiesic/groundwork/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

// placeholderToken lets the client be built without a key. The remote
// service rejects it on first use, and local OpenAI-compatible servers ignore it.
const placeholderToken = "none"

// Provider implements ai.AIProvider using OpenAI-compatible services.
// It manages embedder and chat completer instances.
type Provider struct {
	config    *ai.Config
	embedder  *Embedder
	completer *ChatCompleter
	logger    *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use. A missing API key is
// not an error here.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	completer, err := newChatCompleter(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		embedder:  embedder,
		completer: completer,
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ChatCompleter returns the chat completion service.
func (p *Provider) ChatCompleter() ai.ChatCompleter {
	return p.completer
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}

// clientOptions returns the options shared by every client. An explicit key
// wins; otherwise langchaingo reads OPENAI_API_KEY, and when that is unset
// too the placeholder keeps construction from failing.
func clientOptions(host, apiKey string) []openai.Option {
	opts := []openai.Option{openai.WithBaseURL(host)}
	switch {
	case apiKey != "":
		opts = append(opts, openai.WithToken(apiKey))
	case os.Getenv("OPENAI_API_KEY") == "":
		opts = append(opts, openai.WithToken(placeholderToken))
	}
	return opts
}
