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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
	"golang.org/x/time/rate"
)

const (
	defaultEmbedBatchSize = 64
	defaultEmbedWorkers   = 4
)

// CollectionStore implements storage.CollectionStore for BadgerDB.
// Collections embed text with the store's embedder. Large upserts are
// embedded in batches on a worker pool, optionally rate limited.
type CollectionStore struct {
	backend   *Backend
	embedder  ai.Embedder
	model     string
	batchSize int
	pool      *ants.Pool
	limiter   *rate.Limiter
	manifests *ManifestRepository
	logger    *slog.Logger
}

var _ storage.CollectionStore = (*CollectionStore)(nil)

// Option configures a CollectionStore.
type Option func(*CollectionStore) error

// WithEmbeddingModel records the embedding model name on new collections.
func WithEmbeddingModel(model string) Option {
	return func(s *CollectionStore) error {
		s.model = model
		return nil
	}
}

// WithEmbedBatchSize sets how many texts go into one embedding request.
// Default is 64.
func WithEmbedBatchSize(size int) Option {
	return func(s *CollectionStore) error {
		if size < 1 {
			return fmt.Errorf("embed batch size must be positive, got %d", size)
		}
		s.batchSize = size
		return nil
	}
}

// WithEmbedWorkers sets the number of concurrent embedding requests.
// Default is 4.
func WithEmbedWorkers(workers int) Option {
	return func(s *CollectionStore) error {
		if workers < 1 {
			workers = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(workers)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithRateLimit caps embedding requests at perSecond with the given burst.
// A non-positive perSecond removes the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *CollectionStore) error {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		return nil
	}
}

// NewCollectionStore creates a collection store on backend.
//
// Returns storage.CollectionStore interface to enforce abstraction.
func NewCollectionStore(backend *Backend, embedder ai.Embedder, opts ...Option) (storage.CollectionStore, error) {
	return newCollectionStore(backend, embedder, opts...)
}

func newCollectionStore(backend *Backend, embedder ai.Embedder, opts ...Option) (*CollectionStore, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	s := &CollectionStore{
		backend:   backend,
		embedder:  embedder,
		batchSize: defaultEmbedBatchSize,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		manifests: NewManifestRepository(backend),
		logger:    slog.Default().With("component", "collection-store"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Close()
			return nil, err
		}
	}

	if s.pool == nil {
		pool, err := ants.NewPool(defaultEmbedWorkers)
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}
	return s, nil
}

// Close releases the embedding worker pool.
func (s *CollectionStore) Close() error {
	if s.pool != nil {
		s.pool.Release()
	}
	return nil
}

// Manifests returns the source manifest repository.
func (s *CollectionStore) Manifests() storage.ManifestRepository {
	return s.manifests
}

// GetOrCreateCollection returns the named collection, creating it if needed.
func (s *CollectionStore) GetOrCreateCollection(ctx context.Context, name string) (storage.Collection, error) {
	const op = "get_or_create_collection"
	if err := core.ValidateCollectionName(name); err != nil {
		return nil, storage.NewStoreError(op, name, err)
	}

	created := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readCollectionInfo(tx, name)
		if err != nil {
			return err
		}
		if info != nil {
			return nil
		}

		now := time.Now().UTC()
		info = &core.CollectionInfo{
			Name:           name,
			EmbeddingModel: s.model,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Set(makeCollectionKey(name), storage.MarshalCollectionInfo(info)); err != nil {
			return err
		}
		created = true
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, storage.NewStoreError(op, name, err)
	}

	if created {
		s.logger.Info("created collection", "collection", name, "model", s.model)
	}
	return s.collection(name), nil
}

// GetCollection returns an existing collection.
func (s *CollectionStore) GetCollection(ctx context.Context, name string) (storage.Collection, error) {
	const op = "get_collection"
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readCollectionInfo(tx, name)
		if err != nil {
			return err
		}
		if info == nil {
			return storage.ErrCollectionNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, storage.NewStoreError(op, name, err)
	}
	return s.collection(name), nil
}

// ListCollections returns every collection ordered by name.
func (s *CollectionStore) ListCollections(ctx context.Context) ([]*core.CollectionInfo, error) {
	var infos []*core.CollectionInfo
	err := s.backend.ScanPrefix(makeCollectionScanPrefix(), func(_, value []byte) error {
		info, err := storage.UnmarshalCollectionInfo(value)
		if err != nil {
			return err
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, storage.NewStoreError("list_collections", "", err)
	}
	return infos, nil
}

// DeleteCollection removes a collection with its chunks and manifests.
func (s *CollectionStore) DeleteCollection(ctx context.Context, name string) error {
	const op = "delete_collection"
	if _, err := s.GetCollection(ctx, name); err != nil {
		return storage.NewStoreError(op, name, errors.Unwrap(err))
	}

	if err := s.backend.DeletePrefix(makeChunkPrefix(name), makeManifestPrefix(name)); err != nil {
		return storage.NewStoreError(op, name, err)
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCollectionKey(name)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.NewStoreError(op, name, err)
	}

	s.logger.Info("deleted collection", "collection", name)
	return nil
}

func (s *CollectionStore) collection(name string) *Collection {
	return &Collection{
		store:  s,
		name:   name,
		logger: s.logger.With("collection", name),
	}
}

// embed turns texts into unit vectors, in input order. Texts are split into
// batches that run on the worker pool; the first failure cancels the rest.
func (s *CollectionStore) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if err := s.limiter.Wait(ctx); err != nil {
				fail(err)
				return
			}
			batch, err := s.embedder.EmbedTexts(ctx, texts[start:end])
			if err != nil {
				fail(err)
				return
			}
			if len(batch) != end-start {
				fail(fmt.Errorf("%w: got %d vectors for %d texts", ai.ErrEmbeddingCount, len(batch), end-start))
				return
			}
			for i, v := range batch {
				vectors[start+i] = core.NormalizeVector(v)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

// readCollectionInfo returns nil, nil when the collection does not exist.
func readCollectionInfo(tx *badger.Txn, name string) (*core.CollectionInfo, error) {
	item, err := tx.Get(makeCollectionKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var info *core.CollectionInfo
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		info, unmarshalErr = storage.UnmarshalCollectionInfo(val)
		return unmarshalErr
	})
	return info, err
}
