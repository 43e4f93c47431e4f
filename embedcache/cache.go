package embedcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wordfind/ai"
	"github.com/poiesic/wordfind/core"
	"github.com/poiesic/wordfind/wordlist"
)

// defaultBatchSize is the number of candidates embedded per EmbedTexts call.
const defaultBatchSize = 64

// Retry defaults for transient embedding service failures.
const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 1 * time.Second
)

// Cache maps candidate ids to fixed-dimension embedding vectors.
// The set of ids in the cache always equals the id range of the word list
// it was built from; the fingerprint ties the cache to that exact list.
type Cache struct {
	dim         int
	fingerprint core.Fingerprint
	vectors     [][]float32
}

// Dim returns the vector dimension shared by every entry.
func (c *Cache) Dim() int {
	return c.dim
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	return len(c.vectors)
}

// Vector returns the embedding for the given candidate id, or nil if the
// id is out of range. The returned slice must not be modified.
func (c *Cache) Vector(id core.ID) []float32 {
	if id < 0 || int(id) >= len(c.vectors) {
		return nil
	}
	return c.vectors[id]
}

// Fingerprint returns the digest of the word list the cache was built from.
func (c *Cache) Fingerprint() core.Fingerprint {
	return c.fingerprint
}

// IsStale reports whether the cache no longer corresponds to the given
// word list. Any change to the list, including reordering, makes the
// cache stale.
func (c *Cache) IsStale(store *wordlist.Store) bool {
	return c.fingerprint != store.Fingerprint()
}

// BuildOption configures a cache build.
type BuildOption func(*builder)

// WithBatchSize sets the number of candidates embedded per batch.
// Default is 64.
func WithBatchSize(size int) BuildOption {
	return func(b *builder) {
		if size > 0 {
			b.batchSize = size
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) BuildOption {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithProgress sets a callback invoked after each embedded batch with the
// number of candidates embedded so far and the total.
func WithProgress(fn func(done, total int)) BuildOption {
	return func(b *builder) {
		b.progress = fn
	}
}

// WithRetry sets how often a failed embedding batch is reattempted and the
// base delay for the exponential backoff between attempts.
// Default is 3 attempts with a 1s base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) BuildOption {
	return func(b *builder) {
		if maxAttempts > 0 {
			b.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			b.retryDelay = baseDelay
		}
	}
}

type builder struct {
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
	progress    func(done, total int)
}

// Build embeds every candidate in id order and assembles a cache bound to
// the store's fingerprint. Vectors are normalized to unit length so cosine
// similarity reduces to a dot product at query time.
//
// All vectors must share one dimension; a mismatch across batches fails
// the build with ErrDimensionMismatch.
func Build(ctx context.Context, store *wordlist.Store, embedder ai.Embedder, opts ...BuildOption) (*Cache, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	b := &builder{
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	logger := b.logger.With("component", "embedcache")

	texts := store.Texts()
	total := len(texts)
	vectors := make([][]float32, 0, total)
	dim := 0

	for start := 0; start < total; start += b.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + b.batchSize
		if end > total {
			end = total
		}
		batch := texts[start:end]

		logger.Debug("embedding candidate batch", "from", start, "to", end, "total", total)
		var embedded [][]float32
		err := retryWithBackoff(ctx, logger, b.maxAttempts, b.retryDelay, func() error {
			var embedErr error
			embedded, embedErr = embedder.EmbedTexts(ctx, batch)
			return embedErr
		})
		if err != nil {
			return nil, fmt.Errorf("embed candidates %d-%d: %w", start, end-1, err)
		}
		if len(embedded) != len(batch) {
			return nil, fmt.Errorf("embedding result mismatch: expected %d, received %d", len(batch), len(embedded))
		}

		for i, vec := range embedded {
			if dim == 0 {
				dim = len(vec)
			}
			if len(vec) != dim {
				return nil, fmt.Errorf("candidate %d produced %d-dimensional vector, expected %d: %w",
					start+i, len(vec), dim, ErrDimensionMismatch)
			}
			vectors = append(vectors, core.NormalizeVector(vec))
		}

		if b.progress != nil {
			b.progress(end, total)
		}
	}

	logger.Info("embedding cache built", "candidates", total, "dimension", dim)

	return &Cache{
		dim:         dim,
		fingerprint: store.Fingerprint(),
		vectors:     vectors,
	}, nil
}
