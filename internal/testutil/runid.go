package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs names runs "<prefix>-1", "<prefix>-2", ... Unlike
// engine.FixedGenerator it never runs out, which suits scenarios whose run
// count is not known up front.
//
// Safe for concurrent use.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator. An empty prefix becomes "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
