package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/groundwork/ai"
)

// DefaultAnswer is returned by MockChatCompleter when no function is set.
const DefaultAnswer = "I don't know"

// Completion is one recorded call to MockChatCompleter.
type Completion struct {
	Model    string
	Messages []ai.Message
}

// MockChatCompleter is a test double for ai.ChatCompleter.
// It records every request and answers with CompleteFunc or DefaultAnswer.
type MockChatCompleter struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, model string, messages []ai.Message) (string, error)

	mu    sync.Mutex
	calls []Completion
}

// NewMockChatCompleter creates a mock completer that answers DefaultAnswer.
func NewMockChatCompleter() *MockChatCompleter {
	return &MockChatCompleter{}
}

// Complete records the request and returns the scripted answer.
func (m *MockChatCompleter) Complete(ctx context.Context, model string, messages []ai.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Completion{Model: model, Messages: slices.Clone(messages)})
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, model, messages)
	}
	return DefaultAnswer, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockChatCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent request, or false if there was none.
func (m *MockChatCompleter) LastCall() (Completion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return Completion{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// Reset clears recorded calls and the custom function.
func (m *MockChatCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.CompleteFunc = nil
}
