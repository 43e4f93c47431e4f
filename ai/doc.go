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


// Package ai provides the text embedding abstraction used by wordfind.
//
// The package defines the Embedder interface so that the ranking core and
// cache builder depend on an abstraction rather than a concrete model
// client. Two implementations are provided:
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//     (Ollama, LocalAI, vLLM, ...)
//   - ai/mock: deterministic test double for unit testing without an
//     external embedding service
//
// Public constructors (openai.NewEmbedder) return the ai.Embedder interface
// to enforce abstraction; test constructors (mock.NewMockEmbedder) return
// concrete types to enable behavior injection and call-count assertions.
package ai
