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


// Package search ranks word list candidates against a live query.
//
// The Engine type recomputes the full ranking on every query change in one
// of two modes:
//
//   - Lexical: case-insensitive subsequence matching with a score that
//     rewards contiguous runs, early matches and short candidates.
//     Non-matching candidates are excluded from the ranking entirely.
//   - Semantic: cosine similarity between a freshly embedded query and the
//     precomputed per-candidate embedding cache. The full candidate set is
//     ranked every time.
//
// Results are sorted by score descending with ties broken by original
// candidate order, so the ordering is deterministic regardless of how the
// scan was parallelized.
//
// Asynchronous updates are tagged with a monotonically increasing sequence
// number; a result is delivered only while its sequence number is still
// the latest, which keeps slow embedding calls from surfacing stale
// rankings out of order.
package search
