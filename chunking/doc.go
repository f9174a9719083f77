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

// Package chunking splits document text into bounded, overlapping chunks.
//
// The default OverlapSplitter guarantees that consecutive chunks share exactly
// the configured number of characters (runes), that no chunk exceeds the
// configured size, and that dropping the overlap from every chunk after the
// first reconstructs the input exactly. Cuts are placed on the best natural
// boundary available inside the size budget, in order of preference:
// paragraph, line, sentence, word. When none is available the text is cut
// at the size limit.
//
// The RecursiveSplitter wraps langchaingo's recursive character splitter for
// corpora that were indexed with it. It trims whitespace around chunks and
// therefore does not give the exact-overlap guarantee.
//
// Both splitters satisfy langchaingo's textsplitter.TextSplitter and can be
// passed to textsplitter.SplitDocuments.
//
// # Usage
//
//	splitter, err := chunking.New(chunking.StrategyOverlap, 300, 100)
//	if err != nil {
//	    return err
//	}
//	chunks, err := chunking.SplitDocument(splitter, doc)
package chunking
