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

package storage

import (
	"fmt"

	"github.com/poiesic/groundwork/core"
)

// MarshalChunkRecord serializes a ChunkRecord to bytes.
func MarshalChunkRecord(record *core.ChunkRecord) []byte {
	buf := make([]byte, core.ChunkRecordMUS.Size(*record))
	core.ChunkRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalChunkRecord deserializes a ChunkRecord from bytes.
func UnmarshalChunkRecord(data []byte) (*core.ChunkRecord, error) {
	record, _, err := core.ChunkRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk record: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalCollectionInfo serializes a CollectionInfo to bytes.
func MarshalCollectionInfo(info *core.CollectionInfo) []byte {
	buf := make([]byte, core.CollectionInfoMUS.Size(*info))
	core.CollectionInfoMUS.Marshal(*info, buf)
	return buf
}

// UnmarshalCollectionInfo deserializes a CollectionInfo from bytes.
func UnmarshalCollectionInfo(data []byte) (*core.CollectionInfo, error) {
	info, _, err := core.CollectionInfoMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: collection info: %w", ErrSerializationFailed, err)
	}
	return &info, nil
}

// MarshalSourceManifest serializes a SourceManifest to bytes.
func MarshalSourceManifest(manifest *core.SourceManifest) []byte {
	buf := make([]byte, core.SourceManifestMUS.Size(*manifest))
	core.SourceManifestMUS.Marshal(*manifest, buf)
	return buf
}

// UnmarshalSourceManifest deserializes a SourceManifest from bytes.
func UnmarshalSourceManifest(data []byte) (*core.SourceManifest, error) {
	manifest, _, err := core.SourceManifestMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: source manifest: %w", ErrSerializationFailed, err)
	}
	return &manifest, nil
}
