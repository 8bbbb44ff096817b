package sequence

import (
	"sync"
	"testing"
)

func TestSequencerStartsAboveFloor(t *testing.T) {
	s := New(0)
	for i := uint64(1); i <= 100; i++ {
		if got := s.Next(); got != i {
			t.Fatalf("Next() = %d, want %d", got, i)
		}
	}
	if s.Last() != 100 {
		t.Fatalf("Last() = %d, want 100", s.Last())
	}

	var zero Sequencer
	if got := zero.Next(); got != 1 {
		t.Fatalf("zero value Next() = %d, want 1", got)
	}
}

func TestSequencerReserveIsContiguous(t *testing.T) {
	s := New(7)
	if first := s.Reserve(3); first != 8 {
		t.Fatalf("Reserve(3) = %d, want 8", first)
	}
	if got := s.Next(); got != 11 {
		t.Fatalf("Next() after block = %d, want 11", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Reserve(0) did not panic")
		}
	}()
	s.Reserve(0)
}

func TestSequencerConcurrentBlocksDoNotOverlap(t *testing.T) {
	s := New(10)
	const workers, per, block = 8, 500, 3

	var mu sync.Mutex
	seen := make(map[uint64]struct{}, workers*per*block)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, per*block)
			for i := 0; i < per; i++ {
				first := s.Reserve(block)
				for k := uint64(0); k < block; k++ {
					local = append(local, first+k)
				}
			}
			mu.Lock()
			for _, v := range local {
				seen[v] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers*per*block {
		t.Fatalf("got %d unique ids, want %d", len(seen), workers*per*block)
	}
	if s.Last() != 10+workers*per*block {
		t.Fatalf("Last() = %d", s.Last())
	}
}

func TestSequencerAdvanceToNeverGoesBack(t *testing.T) {
	s := New(5)
	s.AdvanceTo(3)
	if s.Last() != 5 {
		t.Fatalf("AdvanceTo moved backwards to %d", s.Last())
	}
	s.AdvanceTo(42)
	if got := s.Next(); got != 43 {
		t.Fatalf("Next() after AdvanceTo = %d, want 43", got)
	}
}

func BenchmarkSequencerNext(b *testing.B) {
	s := New(0)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Next()
		}
	})
}
