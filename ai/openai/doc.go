// Package openai implements the ai.Embedder interface using
// OpenAI-compatible embedding APIs via langchaingo. It works with any
// service exposing the /v1/embeddings endpoint, including Ollama, LocalAI
// and vLLM.
package openai
