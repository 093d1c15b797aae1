// Package testutil provides deterministic helpers shared by tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates run ids "<prefix>-1", "<prefix>-2", ...
//
// Golden files that contain run ids stay byte-identical across test runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequenceIDs creates a generator. An empty prefix means "run".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Count returns how many ids have been generated.
func (g *SequenceIDs) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. The next id ends in 1.
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedID returns the same id every time.
type FixedID string

// Generate returns the fixed id.
func (id FixedID) Generate() string {
	return string(id)
}
