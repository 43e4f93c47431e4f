package search

import (
	"time"

	"github.com/poiesic/wordfind/core"
)

// Monitor provides hooks to observe ranking updates.
// Implement this interface to track the stages of an update, including
// updates that are dropped because a newer query superseded them.
type Monitor interface {
	Start(seq uint64, query string)
	AfterQueryEmbedding(dim int)
	Superseded(seq uint64)
	Finish(seq uint64, results []core.MatchResult, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ uint64, _ string)  {}
func (n *noopMonitor) AfterQueryEmbedding(_ int) {}
func (n *noopMonitor) Superseded(_ uint64)       {}

func (n *noopMonitor) Finish(_ uint64, _ []core.MatchResult, _ time.Duration) {}
