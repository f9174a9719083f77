package retrieval

import (
	"context"
	"fmt"
	"strconv"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// MetaID is the document metadata key holding the chunk id in search results.
const MetaID = "id"

// VectorStore exposes a collection as a langchaingo vector store, so it can
// be used with vectorstores.ToRetriever and the langchaingo chains.
//
// The collection embeds text itself, so the WithEmbedder and WithNameSpace
// options are rejected. Filters must be a map[string]string and match
// metadata values exactly.
type VectorStore struct {
	collection storage.Collection
}

var _ vectorstores.VectorStore = (*VectorStore)(nil)

// NewVectorStore wraps collection.
func NewVectorStore(collection storage.Collection) (*VectorStore, error) {
	if collection == nil {
		return nil, ErrCollectionRequired
	}
	return &VectorStore{collection: collection}, nil
}

// AddDocuments upserts docs and returns their ids. A document whose metadata
// carries source and chunk_offset gets the same id ingestion would give it;
// any other document is keyed by its content.
func (s *VectorStore) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts, err := parseOptions(options)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	texts := make([]string, 0, len(docs))
	metadatas := make([]map[string]string, 0, len(docs))
	for _, doc := range docs {
		if opts.Deduplicater != nil && opts.Deduplicater(ctx, doc) {
			continue
		}
		metadata := stringMetadata(doc.Metadata)
		ids = append(ids, documentID(doc.PageContent, metadata))
		texts = append(texts, doc.PageContent)
		metadatas = append(metadatas, metadata)
	}

	if err := s.collection.Upsert(ctx, ids, texts, metadatas); err != nil {
		return nil, err
	}
	return ids, nil
}

// SimilaritySearch returns up to numDocuments documents most similar to query.
// Documents scoring below the score threshold option are dropped.
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts, err := parseOptions(options)
	if err != nil {
		return nil, err
	}
	filters, err := parseFilters(opts.Filters)
	if err != nil {
		return nil, err
	}

	n := numDocuments
	if len(filters) > 0 {
		if n, err = s.collection.Count(ctx); err != nil {
			return nil, err
		}
		if n == 0 {
			return []schema.Document{}, nil
		}
	}

	results, err := s.collection.Query(ctx, query, n)
	if err != nil {
		return nil, err
	}

	kept := results[:0]
	for _, result := range results {
		if result.Score < opts.ScoreThreshold || !matches(result.Metadata, filters) {
			continue
		}
		kept = append(kept, result)
		if len(kept) == numDocuments {
			break
		}
	}
	return toDocuments(kept), nil
}

func parseOptions(options []vectorstores.Option) (vectorstores.Options, error) {
	var opts vectorstores.Options
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Embedder != nil {
		return opts, fmt.Errorf("%w: embedder", ErrUnsupportedOption)
	}
	if opts.NameSpace != "" {
		return opts, fmt.Errorf("%w: namespace", ErrUnsupportedOption)
	}
	return opts, nil
}

func parseFilters(filters any) (map[string]string, error) {
	switch f := filters.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return f, nil
	default:
		return nil, fmt.Errorf("%w: filters of type %T", ErrUnsupportedOption, filters)
	}
}

func matches(metadata, filters map[string]string) bool {
	for k, v := range filters {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func documentID(text string, metadata map[string]string) string {
	source, hasSource := metadata[core.MetaSource]
	offset, hasOffset := metadata[core.MetaChunkOffset]
	if !hasSource || !hasOffset {
		return core.IDFromContent(text).String()
	}
	page, _ := strconv.Atoi(metadata[core.MetaPage])
	off, _ := strconv.Atoi(offset)
	return core.ChunkID(source, page, off)
}

func stringMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func toDocuments(results []core.QueryResult) []schema.Document {
	docs := make([]schema.Document, len(results))
	for i, result := range results {
		metadata := make(map[string]any, len(result.Metadata)+1)
		for k, v := range result.Metadata {
			metadata[k] = v
		}
		metadata[MetaID] = result.ID
		docs[i] = schema.Document{
			PageContent: result.Text,
			Metadata:    metadata,
			Score:       result.Score,
		}
	}
	return docs
}
