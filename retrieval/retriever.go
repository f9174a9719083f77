package retrieval

import (
	"context"
	"log/slog"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
	"github.com/tmc/langchaingo/schema"
)

// DefaultK is the number of chunks retrieved when no count is given.
const DefaultK = 4

// Retriever finds the chunks of a collection closest to a query.
type Retriever struct {
	collection storage.Collection
	k          int
	logger     *slog.Logger
}

var _ schema.Retriever = (*Retriever)(nil)

// Option configures a Retriever.
type Option func(*Retriever) error

// WithDefaultK sets the result count used when Retrieve is called with k <= 0.
// Default is DefaultK.
func WithDefaultK(k int) Option {
	return func(r *Retriever) error {
		if k < 1 {
			return ErrInvalidK
		}
		r.k = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a retriever over collection.
func NewRetriever(collection storage.Collection, opts ...Option) (*Retriever, error) {
	if collection == nil {
		return nil, ErrCollectionRequired
	}

	r := &Retriever{
		collection: collection,
		k:          DefaultK,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever", "collection", collection.Name())
	return r, nil
}

// K returns the default result count.
func (r *Retriever) K() int {
	return r.k
}

// Retrieve returns up to k chunks ordered from most to least similar to
// query. Results are not deduplicated. An empty collection yields an empty
// slice. k <= 0 uses the retriever default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]core.QueryResult, error) {
	if k <= 0 {
		k = r.k
	}

	results, err := r.collection.Query(ctx, query, k)
	if err != nil {
		r.logger.Error("error querying collection", "k", k, "err", err)
		return nil, err
	}
	r.logger.Debug("retrieved chunks", "k", k, "hits", len(results))
	return results, nil
}

// GetRelevantDocuments implements schema.Retriever with the default k.
func (r *Retriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	results, err := r.Retrieve(ctx, query, r.k)
	if err != nil {
		return nil, err
	}
	return toDocuments(results), nil
}

// Texts returns the chunk texts of results in order.
func Texts(results []core.QueryResult) []string {
	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Text
	}
	return texts
}
