package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/wordfind/ai/mock"
	"github.com/poiesic/wordfind/core"
	"github.com/poiesic/wordfind/embedcache"
	"github.com/poiesic/wordfind/wordlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLexicalEngine(t *testing.T, texts []string) *Engine {
	t.Helper()
	engine, err := NewEngine(wordlist.New(texts))
	require.NoError(t, err)
	t.Cleanup(engine.Release)
	return engine
}

func newSemanticEngine(t *testing.T, texts []string, opts ...Option) (*Engine, *mock.MockEmbedder) {
	t.Helper()
	store := wordlist.New(texts)
	embedder := mock.NewMockEmbedder()
	embedder.Dim = 16

	cache, err := embedcache.Build(context.Background(), store, embedder)
	require.NoError(t, err)

	opts = append([]Option{WithSemantic(cache, embedder)}, opts...)
	engine, err := NewEngine(store, opts...)
	require.NoError(t, err)
	t.Cleanup(engine.Release)
	return engine, embedder
}

func resultTexts(results []core.MatchResult) []string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts
}

func TestNewEngine(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		_, err := NewEngine(nil)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("defaults to lexical mode", func(t *testing.T) {
		engine := newLexicalEngine(t, []string{"apple"})
		assert.Equal(t, ModeLexical, engine.Mode())
	})

	t.Run("semantic without cache", func(t *testing.T) {
		_, err := NewEngine(wordlist.New([]string{"apple"}), WithSemantic(nil, mock.NewMockEmbedder()))
		assert.ErrorIs(t, err, embedcache.ErrCacheUnavailable)
	})

	t.Run("semantic without embedder", func(t *testing.T) {
		store := wordlist.New([]string{"apple"})
		cache, err := embedcache.Build(context.Background(), store, mock.NewMockEmbedder())
		require.NoError(t, err)

		_, err = NewEngine(store, WithSemantic(cache, nil))
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("semantic with stale cache", func(t *testing.T) {
		// Cache built over three candidates, then one removed from the list
		built := wordlist.New([]string{"apple", "application", "banana"})
		cache, err := embedcache.Build(context.Background(), built, mock.NewMockEmbedder())
		require.NoError(t, err)

		live := wordlist.New([]string{"apple", "application"})
		_, err = NewEngine(live, WithSemantic(cache, mock.NewMockEmbedder()))
		assert.ErrorIs(t, err, embedcache.ErrCacheStale)
	})
}

func TestUpdate_Lexical(t *testing.T) {
	engine := newLexicalEngine(t, []string{"apple", "application", "banana"})
	ctx := context.Background()

	t.Run("subsequence filter", func(t *testing.T) {
		results, err := engine.Update(ctx, "app")
		require.NoError(t, err)

		texts := resultTexts(results)
		assert.Contains(t, texts, "apple")
		assert.Contains(t, texts, "application")
		assert.NotContains(t, texts, "banana")
		for _, r := range results {
			assert.Greater(t, r.Score, 0.0)
		}
	})

	t.Run("empty query returns list order", func(t *testing.T) {
		results, err := engine.Update(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"apple", "application", "banana"}, resultTexts(results))
	})

	t.Run("no matches is an empty ranking, not an error", func(t *testing.T) {
		results, err := engine.Update(ctx, "zzz")
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("results carry positions", func(t *testing.T) {
		results, err := engine.Update(ctx, "app")
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, []int{0, 1, 2}, results[0].Positions)
	})

	t.Run("deterministic across repeated scans", func(t *testing.T) {
		first, err := engine.Update(ctx, "an")
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			again, err := engine.Update(ctx, "an")
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func TestUpdate_Lexical_TieOrder(t *testing.T) {
	// Identical candidates score identically; stable sort keeps list order
	engine := newLexicalEngine(t, []string{"same", "same", "same"})

	results, err := engine.Update(context.Background(), "sm")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, core.ID(0), results[0].CandidateId)
	assert.Equal(t, core.ID(1), results[1].CandidateId)
	assert.Equal(t, core.ID(2), results[2].CandidateId)
}

func TestUpdate_Semantic(t *testing.T) {
	engine, _ := newSemanticEngine(t, []string{"apple", "application", "banana"})
	ctx := context.Background()

	t.Run("ranks the full set", func(t *testing.T) {
		results, err := engine.Update(ctx, "fruit")
		require.NoError(t, err)
		assert.Len(t, results, 3, "semantic mode applies no subsequence prefilter")
	})

	t.Run("identical text ranks itself first with similarity 1", func(t *testing.T) {
		// The mock embedder is deterministic, so the query "banana"
		// reproduces the cached vector exactly.
		results, err := engine.Update(ctx, "banana")
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "banana", results[0].Text)
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	})

	t.Run("scores sorted descending", func(t *testing.T) {
		results, err := engine.Update(ctx, "apple")
		require.NoError(t, err)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})
}

func TestUpdate_Semantic_ZeroNormExcluded(t *testing.T) {
	store := wordlist.New([]string{"apple", "banana"})
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		// "banana" gets a degenerate zero embedding
		return [][]float32{{1, 0, 0}, {0, 0, 0}}, nil
	}

	cache, err := embedcache.Build(context.Background(), store, embedder)
	require.NoError(t, err)

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0, 1, 0}, nil
	}

	engine, err := NewEngine(store, WithSemantic(cache, embedder))
	require.NoError(t, err)
	defer engine.Release()

	results, err := engine.Update(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []string{"apple"}, resultTexts(results), "zero-norm vectors are excluded, not divided by")
}

func TestUpdate_Semantic_DimensionMismatch(t *testing.T) {
	engine, embedder := newSemanticEngine(t, []string{"apple"})

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 2}, nil
	}

	_, err := engine.Update(context.Background(), "apple")
	assert.ErrorIs(t, err, embedcache.ErrDimensionMismatch)
}

func TestUpdateAsync_DeliversLatest(t *testing.T) {
	engine, _ := newSemanticEngine(t, []string{"apple", "banana"})

	var mu sync.Mutex
	var delivered []uint64
	done := make(chan struct{}, 1)

	err := engine.UpdateAsync(context.Background(), "apple", func(seq uint64, results []core.MatchResult) {
		mu.Lock()
		delivered = append(delivered, seq)
		mu.Unlock()
		done <- struct{}{}
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("async update never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
}

func TestUpdateAsync_SupersededResultDropped(t *testing.T) {
	monitor := &recordingMonitor{}
	store := wordlist.New([]string{"apple", "banana"})
	embedder := mock.NewMockEmbedder()

	cache, err := embedcache.Build(context.Background(), store, embedder)
	require.NoError(t, err)

	// The first query blocks inside the embedder until released, simulating
	// a slow model call that a newer keystroke overtakes.
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "slow" {
			once.Do(func() { close(firstStarted) })
			<-release
		}
		m := mock.NewMockEmbedder()
		return m.EmbedText(ctx, text)
	}

	engine, err := NewEngine(store, WithSemantic(cache, embedder), WithMonitor(monitor))
	require.NoError(t, err)
	defer engine.Release()

	var mu sync.Mutex
	var delivered []string
	deliveredCh := make(chan struct{}, 2)
	deliver := func(query string) func(uint64, []core.MatchResult) {
		return func(seq uint64, results []core.MatchResult) {
			mu.Lock()
			delivered = append(delivered, query)
			mu.Unlock()
			deliveredCh <- struct{}{}
		}
	}

	require.NoError(t, engine.UpdateAsync(context.Background(), "slow", deliver("slow")))
	<-firstStarted

	// A newer query arrives while the first is still embedding
	require.NoError(t, engine.UpdateAsync(context.Background(), "banana", deliver("banana")))

	select {
	case <-deliveredCh:
	case <-time.After(5 * time.Second):
		t.Fatal("second update never delivered")
	}

	// Let the stale computation finish; its result must be dropped
	close(release)
	assert.Eventually(t, func() bool {
		return monitor.supersededCount() == 1
	}, 5*time.Second, 10*time.Millisecond, "stale in-flight update should be superseded")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"banana"}, delivered)
}

func TestUpdateAsync_DeliveredInSequenceOrder(t *testing.T) {
	engine := newLexicalEngine(t, []string{"apple", "application", "banana"})

	var mu sync.Mutex
	var delivered []uint64
	record := func(seq uint64, _ []core.MatchResult) {
		mu.Lock()
		delivered = append(delivered, seq)
		mu.Unlock()
	}

	// Rapid-fire updates race two rank workers against each other; every
	// delivery that gets through must carry a newer sequence number than
	// the one before it.
	const updates = 50
	for i := 0; i < updates; i++ {
		require.NoError(t, engine.UpdateAsync(context.Background(), "app", record))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) > 0 && delivered[len(delivered)-1] == updates
	}, 5*time.Second, 10*time.Millisecond, "newest update never delivered")

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(delivered); i++ {
		assert.Less(t, delivered[i-1], delivered[i], "delivery %d arrived out of order", i)
	}
}

func TestUpdateAsync_EmbedderFailureAbsorbed(t *testing.T) {
	engine, embedder := newSemanticEngine(t, []string{"apple"})

	failed := make(chan struct{})
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		defer close(failed)
		return nil, errors.New("model timeout")
	}

	called := false
	err := engine.UpdateAsync(context.Background(), "apple", func(uint64, []core.MatchResult) {
		called = true
	})
	require.NoError(t, err, "a per-query generator failure must not surface from UpdateAsync")

	select {
	case <-failed:
	case <-time.After(5 * time.Second):
		t.Fatal("embedder was never invoked")
	}

	// The failed update is discarded and the engine keeps working
	embedder.EmbedTextFunc = nil
	results, err := engine.Update(context.Background(), "apple")
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	assert.False(t, called)
}

func TestUpdate_SequenceNumbersIncrease(t *testing.T) {
	monitor := &recordingMonitor{}
	store := wordlist.New([]string{"apple"})
	engine, err := NewEngine(store, WithMonitor(monitor))
	require.NoError(t, err)
	defer engine.Release()

	ctx := context.Background()
	for _, q := range []string{"a", "ap", "app"} {
		_, err := engine.Update(ctx, q)
		require.NoError(t, err)
	}

	assert.Equal(t, []uint64{1, 2, 3}, monitor.startedSeqs())
}

// recordingMonitor captures monitor callbacks for assertions.
type recordingMonitor struct {
	mu         sync.Mutex
	started    []uint64
	superseded []uint64
}

var _ Monitor = (*recordingMonitor)(nil)

func (m *recordingMonitor) Start(seq uint64, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, seq)
}

func (m *recordingMonitor) AfterQueryEmbedding(_ int) {}

func (m *recordingMonitor) Superseded(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.superseded = append(m.superseded, seq)
}

func (m *recordingMonitor) Finish(_ uint64, _ []core.MatchResult, _ time.Duration) {}

func (m *recordingMonitor) startedSeqs() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.started...)
}

func (m *recordingMonitor) supersededCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.superseded)
}
