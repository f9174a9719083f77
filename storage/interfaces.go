package storage

import (
	"context"

	"github.com/poiesic/groundwork/core"
)

// CollectionStore manages named vector collections.
// Implementations must be thread-safe and support concurrent access.
type CollectionStore interface {
	// GetOrCreateCollection returns the named collection, creating it when it
	// does not exist yet.
	GetOrCreateCollection(ctx context.Context, name string) (Collection, error)

	// GetCollection returns an existing collection.
	// Returns ErrCollectionNotFound if it does not exist.
	GetCollection(ctx context.Context, name string) (Collection, error)

	// ListCollections returns the metadata of every collection, ordered by name.
	ListCollections(ctx context.Context) ([]*core.CollectionInfo, error)

	// DeleteCollection removes a collection with all of its chunks and manifests.
	// Returns ErrCollectionNotFound if it does not exist.
	DeleteCollection(ctx context.Context, name string) error

	// Manifests returns the repository tracking which chunks each source wrote.
	Manifests() ManifestRepository

	// Close releases resources held by the store. The underlying backend is
	// owned by the caller and is not closed.
	Close() error
}

// Collection is a persistent set of text chunks with their embeddings.
// The collection embeds text itself; callers never supply vectors on the
// ingest and query paths.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Info returns the current collection metadata.
	Info(ctx context.Context) (*core.CollectionInfo, error)

	// Upsert embeds texts and stores them under ids. An existing id is
	// replaced; a new id is inserted; ids not in the batch are left alone.
	// The three slices must have the same length. metadatas may be nil.
	Upsert(ctx context.Context, ids []string, texts []string, metadatas []map[string]string) error

	// Query embeds text and returns up to n chunks ordered from most to least
	// similar, ties broken by id. An empty collection yields an empty slice.
	Query(ctx context.Context, text string, n int) ([]core.QueryResult, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Get retrieves chunks by id. Missing ids are skipped.
	Get(ctx context.Context, ids ...string) ([]*core.ChunkRecord, error)

	// Delete removes chunks by id. Missing ids are ignored.
	Delete(ctx context.Context, ids ...string) error

	// ForEach calls fn for every chunk in id order. Iteration stops at the
	// first error, which is returned.
	ForEach(ctx context.Context, fn func(*core.ChunkRecord) error) error

	// UpdateVectors replaces the stored vectors of existing chunks without
	// touching their text or metadata. Missing ids return ErrNotFound.
	UpdateVectors(ctx context.Context, vectors map[string][]float32) error

	// SetEmbeddingModel records the model and dimensions that produced the
	// stored vectors.
	SetEmbeddingModel(ctx context.Context, model string, dimensions int) error
}

// ManifestRepository records which chunk ids each source has written.
type ManifestRepository interface {
	// GetManifest returns the manifest for a source.
	// Returns ErrNotFound if none exists.
	GetManifest(ctx context.Context, collection, source string) (*core.SourceManifest, error)

	// ListManifests returns every manifest of a collection, ordered by source.
	ListManifests(ctx context.Context, collection string) ([]*core.SourceManifest, error)

	// SaveManifests persists manifests in one transaction and stamps UpdatedAt.
	SaveManifests(ctx context.Context, manifests ...*core.SourceManifest) error

	// DeleteManifest removes the manifest for a source. Missing manifests are ignored.
	DeleteManifest(ctx context.Context, collection, source string) error
}
