// Package sequence issues the ids shared by orders and trades.
package sequence

import (
	"fmt"
	"sync/atomic"
)

// Sequencer counts upward from a floor. Zero is never issued.
// The zero value is ready and starts at 1.
type Sequencer struct {
	last atomic.Uint64
}

// New returns a Sequencer whose first id is floor+1. After a restart the
// floor is the highest id already persisted.
func New(floor uint64) *Sequencer {
	var s Sequencer
	s.last.Store(floor)
	return &s
}

func (s *Sequencer) Next() uint64 {
	return s.Reserve(1)
}

// Reserve claims n consecutive ids in one step and returns the first.
// A trade batch takes its seqs this way so they stay contiguous even
// while other markets draw ids concurrently.
func (s *Sequencer) Reserve(n int) uint64 {
	if n <= 0 {
		panic(fmt.Sprintf("sequence: reserve %d ids", n))
	}
	return s.last.Add(uint64(n)) - uint64(n) + 1
}

// Last is the highest id handed out so far.
func (s *Sequencer) Last() uint64 {
	return s.last.Load()
}

// AdvanceTo raises the floor to v. A v at or below Last is ignored.
func (s *Sequencer) AdvanceTo(v uint64) {
	for cur := s.last.Load(); v > cur; cur = s.last.Load() {
		if s.last.CompareAndSwap(cur, v) {
			return
		}
	}
}
