package memory

import (
	"sync"
	"sync/atomic"
)

// Pool is a typed sync.Pool. Values are scrubbed by reset on the way back
// in, so a recycled value never carries state from its previous use.
type Pool[T any] struct {
	p     sync.Pool
	reset func(*T)

	allocs atomic.Uint64
}

// NewPool builds a pool. reset may be nil.
func NewPool[T any](ctor func() *T, reset func(*T)) *Pool[T] {
	pool := &Pool[T]{reset: reset}
	pool.p.New = func() any {
		pool.allocs.Add(1)
		return ctor()
	}
	return pool
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

// Put hands v back. Callers must not touch v afterwards.
func (p *Pool[T]) Put(v *T) {
	if v == nil {
		return
	}
	if p.reset != nil {
		p.reset(v)
	}
	p.p.Put(v)
}

// Allocs counts values the constructor had to build.
func (p *Pool[T]) Allocs() uint64 {
	return p.allocs.Load()
}
