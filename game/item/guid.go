package item

import (
	"errors"
	"sync/atomic"
)

// ErrGUIDExhausted is returned once the generator has handed out every id.
var ErrGUIDExhausted = errors.New("item: guid space exhausted")

// GUIDGenerator hands out item guids in increasing order up to a ceiling.
type GUIDGenerator struct {
	next atomic.Int64
	max  int64
}

// NewGUIDGenerator creates a generator whose first id is start.
// A max <= 0 means no ceiling.
func NewGUIDGenerator(start, max int64) *GUIDGenerator {
	g := &GUIDGenerator{max: max}
	g.next.Store(start - 1)
	return g
}

// Next returns a fresh guid.
func (g *GUIDGenerator) Next() (int64, error) {
	id := g.next.Add(1)
	if g.max > 0 && id > g.max {
		g.next.Add(-1)
		return 0, ErrGUIDExhausted
	}
	return id, nil
}

// Observe makes sure ids at or below seen are never handed out again.
// It is called with the highest guid found in storage at startup.
func (g *GUIDGenerator) Observe(seen int64) {
	for {
		cur := g.next.Load()
		if seen <= cur || g.next.CompareAndSwap(cur, seen) {
			return
		}
	}
}
