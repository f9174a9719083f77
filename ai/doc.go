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

// Package ai provides abstractions for the AI services used by Groundwork.
//
// Two capabilities are needed: turning text into vectors (Embedder) and
// answering a single-turn chat request (ChatCompleter). AIProvider bundles
// both so they share configuration.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible services via langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors (openai.NewProvider, openai.NewChatCompleter) return
// interface types. Mock constructors return concrete types so tests can
// inject behavior and inspect calls.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
//	answer, err := provider.ChatCompleter().Complete(ctx, cfg.ChatModel, []ai.Message{
//	    {Role: ai.RoleSystem, Content: "Answer briefly."},
//	    {Role: ai.RoleUser, Content: "When do I plant garlic?"},
//	})
//
// Remote failures can be classified with Classify, which recognizes
// langchaingo's standardized error codes.
package ai
