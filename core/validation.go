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


package core

import (
	"fmt"
)

const (
	minCollectionName = 3
	maxCollectionName = 63
)

// ValidateSplitParams validates a chunk size and overlap pair.
//
// Validation rules:
//   - size must be positive
//   - overlap must be non-negative and strictly smaller than size
func ValidateSplitParams(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidSplitParams, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidSplitParams, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidSplitParams, overlap, size)
	}
	return nil
}

// ValidateChunkRecord validates a ChunkRecord according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Text must not be empty
//
// NOT validated (computed by the store):
//   - Vector
//   - UpdatedAt
func ValidateChunkRecord(record *ChunkRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidChunkRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrEmptyID)
	}

	if record.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrEmptyContent)
	}

	return nil
}

// ValidateCollectionName checks that name is 3-63 characters drawn from
// [A-Za-z0-9_-] and starts and ends with an alphanumeric character.
// Names end up embedded in storage keys, so ':' and other separators are rejected.
func ValidateCollectionName(name string) error {
	if len(name) < minCollectionName || len(name) > maxCollectionName {
		return fmt.Errorf("%w: %q must be %d-%d characters", ErrInvalidCollectionName, name,
			minCollectionName, maxCollectionName)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case isAlnum(c):
		case c == '_' || c == '-':
			if i == 0 || i == len(name)-1 {
				return fmt.Errorf("%w: %q must start and end with a letter or digit", ErrInvalidCollectionName, name)
			}
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidCollectionName, name, c)
		}
	}
	return nil
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
