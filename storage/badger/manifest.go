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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// ManifestRepository implements storage.ManifestRepository for BadgerDB.
type ManifestRepository struct {
	backend *Backend
}

var _ storage.ManifestRepository = (*ManifestRepository)(nil)

// NewManifestRepository creates a new ManifestRepository.
func NewManifestRepository(backend *Backend) *ManifestRepository {
	return &ManifestRepository{
		backend: backend,
	}
}

// SaveManifests persists manifests in a single transaction.
func (r *ManifestRepository) SaveManifests(ctx context.Context, manifests ...*core.SourceManifest) error {
	if len(manifests) == 0 {
		return nil
	}
	now := time.Now().UTC()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, manifest := range manifests {
			manifest.UpdatedAt = now
			key := makeManifestKey(manifest.Collection, manifest.Source)
			if err := tx.Set(key, storage.MarshalSourceManifest(manifest)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.NewStoreError("save_manifests", manifests[0].Collection, err)
	}
	return nil
}

// GetManifest retrieves the manifest for a source.
func (r *ManifestRepository) GetManifest(ctx context.Context, collection, source string) (*core.SourceManifest, error) {
	var manifest *core.SourceManifest
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeManifestKey(collection, source))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: manifest for %s", storage.ErrNotFound, source)
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			manifest, unmarshalErr = storage.UnmarshalSourceManifest(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, storage.NewStoreError("get_manifest", collection, err)
	}
	return manifest, nil
}

// ListManifests returns all manifests of a collection ordered by source.
func (r *ManifestRepository) ListManifests(ctx context.Context, collection string) ([]*core.SourceManifest, error) {
	var manifests []*core.SourceManifest
	err := r.backend.ScanPrefix(makeManifestPrefix(collection), func(_, value []byte) error {
		manifest, err := storage.UnmarshalSourceManifest(value)
		if err != nil {
			return err
		}
		manifests = append(manifests, manifest)
		return nil
	})
	if err != nil {
		return nil, storage.NewStoreError("list_manifests", collection, err)
	}
	return manifests, nil
}

// DeleteManifest removes the manifest for a source.
func (r *ManifestRepository) DeleteManifest(ctx context.Context, collection, source string) error {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeManifestKey(collection, source)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.NewStoreError("delete_manifest", collection, err)
	}
	return nil
}
