package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/ai/mock"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/retrieval"
	"github.com/poiesic/groundwork/storage"
	"github.com/poiesic/groundwork/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMonitor records the hooks it receives.
type recordingMonitor struct {
	events  []string
	results []core.QueryResult
	prompt  *Prompt
	answer  *Answer
}

func (m *recordingMonitor) Start(_ string) { m.events = append(m.events, "start") }
func (m *recordingMonitor) AfterRetrieval(results []core.QueryResult) {
	m.events = append(m.events, "retrieval")
	m.results = results
}
func (m *recordingMonitor) AfterPrompt(prompt *Prompt) {
	m.events = append(m.events, "prompt")
	m.prompt = prompt
}
func (m *recordingMonitor) Finish(answer *Answer) {
	m.events = append(m.events, "finish")
	m.answer = answer
}

type testEnv struct {
	collection storage.Collection
	embedder   *mock.MockEmbedder
	completer  *mock.MockChatCompleter
	pipeline   *Pipeline
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	store, backend, err := badger.NewMemoryStore(embedder)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})

	collection, err := store.GetOrCreateCollection(t.Context(), "growing_vegetables")
	require.NoError(t, err)

	retriever, err := retrieval.NewRetriever(collection)
	require.NoError(t, err)
	completer := mock.NewMockChatCompleter()
	generator, err := NewAnswerGenerator(completer, "")
	require.NoError(t, err)

	p, err := NewPipeline(retriever, generator, opts...)
	require.NoError(t, err)
	return &testEnv{collection: collection, embedder: embedder, completer: completer, pipeline: p}
}

func TestNewPipeline(t *testing.T) {
	_, err := NewPipeline(nil, &AnswerGenerator{})
	assert.ErrorIs(t, err, ErrRetrieverRequired)
	_, err = NewPipeline(&retrieval.Retriever{}, nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)
}

func TestPipeline_Ask(t *testing.T) {
	env := newTestEnv(t)
	err := env.collection.Upsert(t.Context(),
		[]string{"c1", "c2", "c3", "c4", "c5"},
		[]string{
			"Tomatoes need at least six hours of direct sun.",
			"Water tomatoes deeply and less often.",
			"Carrots prefer light, stone-free soil.",
			"Lettuce bolts in hot weather.",
			"Mulch keeps the soil cool.",
		}, nil)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	answer, err := env.pipeline.AskWithMonitor(t.Context(), "How much sun do tomatoes need?", monitor)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "retrieval", "prompt", "finish"}, monitor.events)
	assert.Equal(t, "How much sun do tomatoes need?", answer.Question)
	assert.Len(t, answer.Results, retrieval.DefaultK)
	assert.Equal(t, "c1", answer.Results[0].ID)
	assert.Equal(t, mock.DefaultAnswer, answer.Text)
	assert.Same(t, answer, monitor.answer)

	// Every retrieved chunk is in the system prompt, in rank order.
	_, data, found := strings.Cut(answer.Prompt.System, DataMarker+"\n")
	require.True(t, found)
	assert.Equal(t, strings.Join(retrieval.Texts(answer.Results), "\n\n"), data)

	call, ok := env.completer.LastCall()
	require.True(t, ok)
	require.Len(t, call.Messages, 2)
	assert.Equal(t, answer.Prompt.System, call.Messages[0].Content)
	assert.Equal(t, "How much sun do tomatoes need?", call.Messages[1].Content)
}

func TestPipeline_EmptyCollectionStillGenerates(t *testing.T) {
	env := newTestEnv(t)

	answer, err := env.pipeline.Ask(t.Context(), "When do I plant garlic?")
	require.NoError(t, err)
	assert.Empty(t, answer.Results)
	assert.True(t, strings.HasSuffix(answer.Prompt.System, DataMarker+"\n"))
	assert.Equal(t, 1, env.completer.CallCount())
}

func TestPipeline_EmptyQuestion(t *testing.T) {
	env := newTestEnv(t)

	for _, question := range []string{"", "   ", "\n\t"} {
		_, err := env.pipeline.Ask(t.Context(), question)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	}
	assert.Zero(t, env.embedder.CallCount())
	assert.Zero(t, env.completer.CallCount())
}

func TestPipeline_WithK(t *testing.T) {
	env := newTestEnv(t, WithK(2))
	err := env.collection.Upsert(t.Context(),
		[]string{"a", "b", "c"},
		[]string{"Peas climb.", "Beans climb.", "Squash sprawls."}, nil)
	require.NoError(t, err)

	answer, err := env.pipeline.Ask(t.Context(), "what climbs?")
	require.NoError(t, err)
	assert.Len(t, answer.Results, 2)
}

func TestPipeline_PromptTooLarge(t *testing.T) {
	builder, err := NewPromptBuilder(WithMaxPromptChars(100))
	require.NoError(t, err)
	env := newTestEnv(t, WithPromptBuilder(builder))

	_, err = env.pipeline.Ask(t.Context(), "Why?")
	assert.ErrorIs(t, err, ErrPromptTooLarge)
	assert.Zero(t, env.completer.CallCount())
}

func TestPipeline_GenerationError(t *testing.T) {
	env := newTestEnv(t)
	env.completer.CompleteFunc = func(context.Context, string, []ai.Message) (string, error) {
		return "", errors.New("model unavailable")
	}

	_, err := env.pipeline.Ask(t.Context(), "Why are my leaves yellow?")
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "Why are my leaves yellow?", genErr.Question)
}

func TestPipeline_RetrievalError(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.collection.Upsert(t.Context(), []string{"a"}, []string{"Peas climb."}, nil))
	env.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	_, err := env.pipeline.Ask(t.Context(), "what climbs?")
	assert.ErrorIs(t, err, storage.ErrStore)
	assert.Zero(t, env.completer.CallCount())
}
