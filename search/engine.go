package search

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/wordfind/ai"
	"github.com/poiesic/wordfind/core"
	"github.com/poiesic/wordfind/embedcache"
	"github.com/poiesic/wordfind/wordlist"
)

// Mode selects the ranking algorithm.
type Mode int

const (
	// ModeLexical ranks candidates by fuzzy subsequence matching.
	ModeLexical Mode = iota
	// ModeSemantic ranks candidates by embedding cosine similarity.
	ModeSemantic
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSemantic:
		return "semantic"
	default:
		return "lexical"
	}
}

// Engine recomputes the candidate ranking from scratch on every query
// change. The word list, cache and mode are fixed at construction so
// multiple sessions can run independently; no ambient globals are used.
type Engine struct {
	store    *wordlist.Store
	cache    *embedcache.Cache
	embedder ai.Embedder
	mode     Mode
	scanPool *ants.Pool
	rankPool *ants.Pool
	seq      atomic.Uint64
	monitor  Monitor
	logger   *slog.Logger

	// deliverMu serializes the freshness check with the delivery itself,
	// so two rank workers cannot deliver results out of sequence order.
	deliverMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine) error

// WithSemantic switches the engine to semantic mode using the given cache
// and embedder. Construction fails if the cache is missing or stale.
func WithSemantic(cache *embedcache.Cache, embedder ai.Embedder) Option {
	return func(e *Engine) error {
		e.mode = ModeSemantic
		e.cache = cache
		e.embedder = embedder
		return nil
	}
}

// WithPoolSize sets the worker pool size for the lexical candidate scan.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			size = 1
		}

		if e.scanPool != nil {
			e.scanPool.Release()
		}

		scanPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.scanPool = scanPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithMonitor sets a monitor receiving per-update callbacks.
// Default is a no-op monitor.
func WithMonitor(monitor Monitor) Option {
	return func(e *Engine) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		e.monitor = monitor
		return nil
	}
}

// NewEngine creates a ranking engine over the given word list.
//
// Semantic mode fails fast here, before any interactive session starts:
// a nil cache yields embedcache.ErrCacheUnavailable and a cache built from
// a different word list yields embedcache.ErrCacheStale. The engine never
// silently falls back to lexical ranking.
func NewEngine(store *wordlist.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}

	scanPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	rankPool, err := ants.NewPool(2)
	if err != nil {
		scanPool.Release()
		return nil, err
	}

	e := &Engine{
		store:    store,
		mode:     ModeLexical,
		scanPool: scanPool,
		rankPool: rankPool,
		monitor:  &noopMonitor{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Release()
			return nil, optErr
		}
	}

	if e.mode == ModeSemantic {
		if e.cache == nil {
			e.Release()
			return nil, embedcache.ErrCacheUnavailable
		}
		if e.embedder == nil {
			e.Release()
			return nil, ErrEmbedderRequired
		}
		if e.cache.IsStale(store) {
			e.Release()
			return nil, fmt.Errorf("cache was built from a different word list: %w", embedcache.ErrCacheStale)
		}
	}

	return e, nil
}

// Mode returns the active ranking mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Update recomputes the ranking for the given query and returns results
// sorted by score descending, ties broken by candidate order.
func (e *Engine) Update(ctx context.Context, query string) ([]core.MatchResult, error) {
	return e.rank(ctx, e.seq.Add(1), query)
}

// UpdateAsync recomputes the ranking on a worker goroutine and calls
// deliver with the result, unless a newer Update or UpdateAsync call was
// issued in the meantime; superseded results are dropped so the display
// layer never observes rankings out of order. Per-query failures (for
// example an embedding service timeout) are logged and dropped, leaving
// the previously delivered ranking in place.
//
// deliver runs on a worker goroutine while an internal lock is held, so
// deliveries are serialized and arrive in increasing sequence order;
// deliver should hand the results off rather than block.
func (e *Engine) UpdateAsync(ctx context.Context, query string, deliver func(seq uint64, results []core.MatchResult)) error {
	seq := e.seq.Add(1)
	return e.rankPool.Submit(func() {
		results, err := e.rank(ctx, seq, query)
		if err != nil {
			e.logger.Warn("ranking update failed, keeping previous results", "seq", seq, "err", err)
			return
		}

		e.deliverMu.Lock()
		defer e.deliverMu.Unlock()
		if seq != e.seq.Load() {
			e.monitor.Superseded(seq)
			e.logger.Debug("dropping superseded ranking", "seq", seq)
			return
		}
		deliver(seq, results)
	})
}

// Release releases the engine's worker pools.
// The engine should not be used after calling Release.
func (e *Engine) Release() {
	if e.scanPool != nil {
		e.scanPool.Release()
	}
	if e.rankPool != nil {
		e.rankPool.Release()
	}
}

func (e *Engine) rank(ctx context.Context, seq uint64, query string) ([]core.MatchResult, error) {
	start := time.Now()
	e.monitor.Start(seq, query)

	var results []core.MatchResult
	var err error
	switch e.mode {
	case ModeSemantic:
		results, err = e.rankSemantic(ctx, query)
	default:
		results, err = e.rankLexical(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	e.monitor.Finish(seq, results, time.Since(start))
	return results, nil
}

// rankLexical fans the pure per-candidate scorer out over the scan pool.
// Each worker writes into its own slot indexed by candidate id, so the
// final collect-and-sort is deterministic under any degree of parallelism.
func (e *Engine) rankLexical(ctx context.Context, query string) ([]core.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := e.store.Candidates()
	slots := make([]*core.MatchResult, len(candidates))

	var wg sync.WaitGroup
	for i := range candidates {
		cand := candidates[i]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if score, positions, ok := Match(query, cand.Text); ok {
				slots[cand.Id] = &core.MatchResult{
					CandidateId: cand.Id,
					Text:        cand.Text,
					Score:       score,
					Positions:   positions,
				}
			}
		}
		if err := e.scanPool.Submit(task); err != nil {
			// Pool unavailable, score on the calling goroutine
			task()
		}
	}
	wg.Wait()

	results := make([]core.MatchResult, 0, len(candidates))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	sortByScore(results)
	return results, nil
}

// rankSemantic embeds the query once and ranks the full candidate set by
// cosine similarity. No lexical prefilter is applied in this mode.
func (e *Engine) rankSemantic(ctx context.Context, query string) ([]core.MatchResult, error) {
	qvec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	e.monitor.AfterQueryEmbedding(len(qvec))

	if len(qvec) != e.cache.Dim() {
		return nil, fmt.Errorf("query embedding dimension %d does not match cache dimension %d: %w",
			len(qvec), e.cache.Dim(), embedcache.ErrDimensionMismatch)
	}

	results := make([]core.MatchResult, 0, e.store.Len())
	for _, cand := range e.store.Candidates() {
		sim, ok := core.CosineSimilarity(qvec, e.cache.Vector(cand.Id))
		if !ok {
			// Degenerate zero-norm embedding, cannot be compared
			continue
		}
		results = append(results, core.MatchResult{
			CandidateId: cand.Id,
			Text:        cand.Text,
			Score:       float64(sim),
		})
	}
	sortByScore(results)
	return results, nil
}

// sortByScore sorts by score descending; the sort is stable so equal
// scores keep original candidate order.
func sortByScore(results []core.MatchResult) {
	slices.SortStableFunc(results, func(a, b core.MatchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
}
