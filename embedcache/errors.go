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


package embedcache

import "errors"

var (
	// ErrCacheUnavailable is returned when no cache file exists at the
	// requested path.
	ErrCacheUnavailable = errors.New("embedding cache unavailable")

	// ErrCacheCorrupt is returned when a cache file fails structural
	// validation (bad magic, unknown version, truncated body).
	ErrCacheCorrupt = errors.New("embedding cache corrupt")

	// ErrCacheStale is returned when the cache fingerprint no longer
	// matches the live word list.
	ErrCacheStale = errors.New("embedding cache stale")

	// ErrDimensionMismatch is returned when the embedder produces vectors
	// of inconsistent dimension during a cache build.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidMaxAttempts is returned when a retry budget of zero or
	// fewer attempts is configured.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when a cache build is attempted
	// without an embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStoreRequired is returned when a cache build is attempted without
	// a word list store.
	ErrStoreRequired = errors.New("word list store required")
)
