// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let tests run without external AI services and give controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	completer := mock.NewMockChatCompleter()
//	completer.CompleteFunc = func(ctx context.Context, model string, msgs []ai.Message) (string, error) {
//	    return "", errors.New("rate limit exceeded")
//	}
//	last, _ := completer.LastCall()
//
// # Default Behavior
//
//   - MockEmbedder: hashed bag-of-words unit vectors, so texts sharing words
//     are close under cosine similarity
//   - MockChatCompleter: records each request and answers "I don't know"
//   - MockProvider: aggregates the two
package mock
