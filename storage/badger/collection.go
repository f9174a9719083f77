package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// Collection implements storage.Collection for BadgerDB.
// Chunks live under chk:<collection>:<id>; similarity search is a full scan
// scoring every stored vector against the query.
type Collection struct {
	store  *CollectionStore
	name   string
	logger *slog.Logger
}

var _ storage.Collection = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Info returns the collection metadata.
func (c *Collection) Info(ctx context.Context) (*core.CollectionInfo, error) {
	info, err := c.info()
	if err != nil {
		return nil, storage.NewStoreError("info", c.name, err)
	}
	return info, nil
}

func (c *Collection) info() (*core.CollectionInfo, error) {
	var info *core.CollectionInfo
	err := c.store.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = readCollectionInfo(tx, c.name)
		if err != nil {
			return err
		}
		if info == nil {
			return storage.ErrCollectionNotFound
		}
		return nil
	}, false)
	return info, err
}

// Upsert embeds texts and writes them under ids, replacing existing chunks
// with the same id. When an id repeats within the batch the last entry wins.
func (c *Collection) Upsert(ctx context.Context, ids []string, texts []string, metadatas []map[string]string) error {
	const op = "upsert"
	if len(ids) != len(texts) || (metadatas != nil && len(metadatas) != len(ids)) {
		return storage.NewStoreError(op, c.name, fmt.Errorf("%w: %d ids, %d texts, %d metadatas",
			storage.ErrBatchMismatch, len(ids), len(texts), len(metadatas)))
	}
	if len(ids) == 0 {
		return nil
	}

	now := time.Now().UTC()
	records := make([]*core.ChunkRecord, len(ids))
	for i := range ids {
		record := &core.ChunkRecord{ID: ids[i], Text: texts[i], UpdatedAt: now}
		if metadatas != nil {
			record.Metadata = core.CopyMetadata(metadatas[i])
		}
		if err := core.ValidateChunkRecord(record); err != nil {
			return storage.NewStoreError(op, c.name, fmt.Errorf("record %d: %w", i, err))
		}
		records[i] = record
	}

	info, err := c.info()
	if err != nil {
		return storage.NewStoreError(op, c.name, err)
	}

	vectors, err := c.store.embed(ctx, texts)
	if err != nil {
		return storage.NewStoreError(op, c.name, fmt.Errorf("embedding: %w", err))
	}
	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims || (info.Dimensions != 0 && len(v) != info.Dimensions) {
			return storage.NewStoreError(op, c.name, fmt.Errorf("%w: record %d has %d dimensions, collection has %d",
				storage.ErrDimensionMismatch, i, len(v), max(info.Dimensions, dims)))
		}
		records[i].Vector = v
	}

	err = c.store.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, record := range records {
			if err := wb.Set(makeChunkKey(c.name, record.ID), storage.MarshalChunkRecord(record)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storage.NewStoreError(op, c.name, err)
	}

	if info.Dimensions == 0 {
		info.Dimensions = dims
	}
	if err := c.saveInfo(info); err != nil {
		return storage.NewStoreError(op, c.name, err)
	}

	c.logger.Debug("upserted chunks", "count", len(records), "dimensions", dims)
	return nil
}

// Query returns the n chunks most similar to text, best first, ties broken by id.
func (c *Collection) Query(ctx context.Context, text string, n int) ([]core.QueryResult, error) {
	const op = "query"
	if n <= 0 {
		return nil, storage.NewStoreError(op, c.name, fmt.Errorf("%w: n must be positive, got %d", storage.ErrInvalidQuery, n))
	}

	info, err := c.info()
	if err != nil {
		return nil, storage.NewStoreError(op, c.name, err)
	}
	if info.Dimensions == 0 {
		c.logger.Debug("query against empty collection")
		return []core.QueryResult{}, nil
	}

	vectors, err := c.store.embed(ctx, []string{text})
	if err != nil {
		return nil, storage.NewStoreError(op, c.name, fmt.Errorf("embedding: %w", err))
	}
	query := vectors[0]
	if len(query) != info.Dimensions {
		return nil, storage.NewStoreError(op, c.name, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			storage.ErrDimensionMismatch, len(query), info.Dimensions))
	}

	results := []core.QueryResult{}
	err = c.scan(ctx, func(record *core.ChunkRecord) error {
		if len(record.Vector) == 0 {
			return nil
		}
		results = append(results, core.QueryResult{
			ID:       record.ID,
			Text:     record.Text,
			Metadata: record.Metadata,
			Score:    core.Dot(query, record.Vector),
		})
		return nil
	})
	if err != nil {
		return nil, storage.NewStoreError(op, c.name, err)
	}

	slices.SortFunc(results, func(a, b core.QueryResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})

	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (c *Collection) Count(ctx context.Context) (int, error) {
	count, err := c.store.backend.CountPrefix(makeChunkPrefix(c.name))
	if err != nil {
		return 0, storage.NewStoreError("count", c.name, err)
	}
	return count, nil
}

// Get retrieves chunks by id, skipping ids that do not exist.
func (c *Collection) Get(ctx context.Context, ids ...string) ([]*core.ChunkRecord, error) {
	records := make([]*core.ChunkRecord, 0, len(ids))
	err := c.store.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			record, err := readChunkRecord(tx, makeChunkKey(c.name, id))
			if err != nil {
				return err
			}
			if record != nil {
				records = append(records, record)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, storage.NewStoreError("get", c.name, err)
	}
	return records, nil
}

// Delete removes chunks by id. Missing ids are ignored.
func (c *Collection) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	err := c.store.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, id := range ids {
			if err := wb.Delete(makeChunkKey(c.name, id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storage.NewStoreError("delete", c.name, err)
	}
	c.logger.Debug("deleted chunks", "count", len(ids))
	return nil
}

// ForEach calls fn for every chunk in id order.
func (c *Collection) ForEach(ctx context.Context, fn func(*core.ChunkRecord) error) error {
	if err := c.scan(ctx, fn); err != nil {
		return storage.NewStoreError("for_each", c.name, err)
	}
	return nil
}

// UpdateVectors replaces the vectors of existing chunks. Vectors are
// normalized before they are stored.
func (c *Collection) UpdateVectors(ctx context.Context, vectors map[string][]float32) error {
	const op = "update_vectors"
	if len(vectors) == 0 {
		return nil
	}

	ids := make([]string, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	now := time.Now().UTC()
	err := c.store.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeChunkKey(c.name, id)
			record, err := readChunkRecord(tx, key)
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("%w: chunk %s", storage.ErrNotFound, id)
			}
			record.Vector = core.NormalizeVector(vectors[id])
			record.UpdatedAt = now
			if err := tx.Set(key, storage.MarshalChunkRecord(record)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.NewStoreError(op, c.name, err)
	}
	return nil
}

// SetEmbeddingModel records the model and dimensions of the stored vectors.
func (c *Collection) SetEmbeddingModel(ctx context.Context, model string, dimensions int) error {
	const op = "set_embedding_model"
	info, err := c.info()
	if err != nil {
		return storage.NewStoreError(op, c.name, err)
	}
	info.EmbeddingModel = model
	info.Dimensions = dimensions
	if err := c.saveInfo(info); err != nil {
		return storage.NewStoreError(op, c.name, err)
	}
	c.logger.Info("updated embedding model", "model", model, "dimensions", dimensions)
	return nil
}

func (c *Collection) saveInfo(info *core.CollectionInfo) error {
	info.UpdatedAt = time.Now().UTC()
	return c.store.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCollectionKey(c.name), storage.MarshalCollectionInfo(info)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (c *Collection) scan(ctx context.Context, fn func(*core.ChunkRecord) error) error {
	return c.store.backend.ScanPrefix(makeChunkPrefix(c.name), func(_, value []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := storage.UnmarshalChunkRecord(value)
		if err != nil {
			return err
		}
		return fn(record)
	})
}

// readChunkRecord returns nil, nil when the key does not exist.
func readChunkRecord(tx *badger.Txn, key []byte) (*core.ChunkRecord, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record *core.ChunkRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalChunkRecord(val)
		return unmarshalErr
	})
	return record, err
}
