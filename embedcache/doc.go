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


// Package embedcache builds, persists and loads the per-candidate
// embedding cache used by semantic ranking.
//
// Building the cache is the expensive offline phase: it invokes the
// embedding model once per candidate. The result is persisted so later
// sessions can load it instead of regenerating every vector.
//
// A cache is bound to the exact word list it was built from via a
// fingerprint of the ordered candidate texts. Any change to the list
// (edit, reorder, addition, removal) makes the cache stale; stale or
// structurally corrupt caches are rejected outright rather than silently
// degrading semantic ranking.
//
// Once loaded, a Cache is read-only and safe for concurrent reads.
package embedcache
