package retrieval

import (
	"context"
	"testing"

	"github.com/poiesic/groundwork/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

func TestNewVectorStore(t *testing.T) {
	_, err := NewVectorStore(nil)
	assert.ErrorIs(t, err, ErrCollectionRequired)
}

func TestVectorStore_AddDocuments(t *testing.T) {
	collection, _ := newTestCollection(t)
	store, err := NewVectorStore(collection)
	require.NoError(t, err)

	docs := []schema.Document{
		{
			PageContent: "Thin beetroot seedlings early.",
			Metadata:    map[string]any{"source": "beets.pdf", "page": 3, "chunk_offset": "200"},
		},
		{PageContent: "Swiss chard is a cut and come again crop."},
	}

	ids, err := store.AddDocuments(t.Context(), docs)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, core.ChunkID("beets.pdf", 3, 200), ids[0])
	assert.Equal(t, core.IDFromContent("Swiss chard is a cut and come again crop.").String(), ids[1])

	records, err := collection.Get(t.Context(), ids[0])
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "3", records[0].Metadata[core.MetaPage])

	// Adding the same documents again replaces them.
	_, err = store.AddDocuments(t.Context(), docs)
	require.NoError(t, err)
	count, err := collection.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestVectorStore_Deduplicater(t *testing.T) {
	collection, _ := newTestCollection(t)
	store, err := NewVectorStore(collection)
	require.NoError(t, err)

	skip := func(_ context.Context, doc schema.Document) bool {
		return doc.PageContent == "skip me"
	}
	ids, err := store.AddDocuments(t.Context(),
		[]schema.Document{{PageContent: "keep me"}, {PageContent: "skip me"}},
		vectorstores.WithDeduplicater(skip))
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestVectorStore_SimilaritySearch(t *testing.T) {
	collection, embedder := newTestCollection(t)
	fixedVectors(embedder, map[string][]float32{
		"close":     {1, 0},
		"related":   {0.6, 0.8},
		"unrelated": {0, 1},
		"query":     {1, 0},
	})
	err := collection.Upsert(t.Context(),
		[]string{"a", "b", "c"},
		[]string{"close", "related", "unrelated"},
		[]map[string]string{{"bed": "north"}, {"bed": "south"}, {"bed": "south"}})
	require.NoError(t, err)

	store, err := NewVectorStore(collection)
	require.NoError(t, err)

	t.Run("ranked", func(t *testing.T) {
		docs, err := store.SimilaritySearch(t.Context(), "query", 2)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "close", docs[0].PageContent)
		assert.Equal(t, "related", docs[1].PageContent)
		assert.Equal(t, "a", docs[0].Metadata[MetaID])
	})

	t.Run("score threshold", func(t *testing.T) {
		docs, err := store.SimilaritySearch(t.Context(), "query", 3, vectorstores.WithScoreThreshold(0.5))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		for _, doc := range docs {
			assert.GreaterOrEqual(t, doc.Score, float32(0.5))
		}
	})

	t.Run("filters", func(t *testing.T) {
		docs, err := store.SimilaritySearch(t.Context(), "query", 1,
			vectorstores.WithFilters(map[string]string{"bed": "south"}))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "related", docs[0].PageContent)
	})

	t.Run("unsupported options", func(t *testing.T) {
		_, err := store.SimilaritySearch(t.Context(), "query", 1, vectorstores.WithNameSpace("other"))
		assert.ErrorIs(t, err, ErrUnsupportedOption)

		_, err = store.SimilaritySearch(t.Context(), "query", 1, vectorstores.WithFilters("bed = 'south'"))
		assert.ErrorIs(t, err, ErrUnsupportedOption)
	})

	t.Run("to retriever", func(t *testing.T) {
		docs, err := vectorstores.ToRetriever(store, 3).GetRelevantDocuments(t.Context(), "query")
		require.NoError(t, err)
		assert.Len(t, docs, 3)
	})
}
