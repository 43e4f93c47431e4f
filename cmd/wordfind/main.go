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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/wordfind/ai"
	"github.com/poiesic/wordfind/ai/openai"
	"github.com/poiesic/wordfind/embedcache"
	"github.com/poiesic/wordfind/search"
	"github.com/poiesic/wordfind/tui"
	"github.com/poiesic/wordfind/wordlist"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "wordfind",
		Usage: "Interactively rank a word list by fuzzy or semantic matching",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Generate the embedding cache for a word list",
				Action: generateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "words",
						Aliases: []string{"w"},
						Usage:   "Path to the word list file (one candidate per line)",
						Value:   "words.txt",
					},
					&cli.StringFlag{
						Name:    "cache",
						Aliases: []string{"c"},
						Usage:   "Path to write the embedding cache",
						Value:   "words.wfec",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of candidates to embed in each batch",
						Value: 64,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Start an interactive search session",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "words",
						Aliases: []string{"w"},
						Usage:   "Path to the word list file (one candidate per line)",
						Value:   "words.txt",
					},
					&cli.BoolFlag{
						Name:    "semantic",
						Aliases: []string{"s"},
						Usage:   "Rank by embedding similarity instead of fuzzy matching",
					},
					&cli.StringFlag{
						Name:    "cache",
						Aliases: []string{"c"},
						Usage:   "Path to the embedding cache (semantic mode)",
						Value:   "words.wfec",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL (semantic mode)",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name (semantic mode)",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of suggestions to display",
						Value:   20,
					},
				},
			},
		},
	}
}

func generateCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := wordlist.Load(c.String("words"))
	if err != nil {
		return err
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid embedding configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	fmt.Fprintf(os.Stderr, "Word list: %s (%d candidates)\n", c.String("words"), store.Len())
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	cache, err := embedcache.Build(ctx, store, embedder,
		embedcache.WithBatchSize(batchSize),
		embedcache.WithProgress(func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rEmbedding candidates: %d/%d", done, total)
		}),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("cache build failed: %w", err)
	}
	fmt.Fprintln(os.Stderr)

	if err := embedcache.Save(cache, c.String("cache")); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Embedding cache saved to %s (dimension %d)\n", c.String("cache"), cache.Dim())
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := wordlist.Load(c.String("words"))
	if err != nil {
		return err
	}

	var opts []search.Option
	if c.Bool("semantic") {
		// Any cache problem is fatal before the interactive loop starts;
		// semantic mode never silently falls back to fuzzy matching.
		cachePath := c.String("cache")
		cache, err := embedcache.Load(cachePath)
		if err != nil {
			return fmt.Errorf("semantic mode requires a valid embedding cache, run \"wordfind generate\" first: %w", err)
		}

		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
		)
		if err := aiConfig.Validate(); err != nil {
			return fmt.Errorf("invalid embedding configuration: %w", err)
		}

		embedder, err := openai.NewEmbedder(aiConfig)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}

		opts = append(opts, search.WithSemantic(cache, embedder))
	}

	engine, err := search.NewEngine(store, opts...)
	if err != nil {
		if c.Bool("semantic") {
			return fmt.Errorf("cache %s is unusable, regenerate it with \"wordfind generate\": %w", c.String("cache"), err)
		}
		return err
	}
	defer engine.Release()

	session, err := tui.NewSession(engine, tui.WithMaxRows(c.Int("limit")))
	if err != nil {
		return err
	}

	text, accepted, err := session.Run(ctx)
	if err != nil {
		return err
	}
	if accepted {
		fmt.Println(text)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
