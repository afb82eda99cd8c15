package sequence

import (
	"sync"
	"testing"
)

func TestNextStartsAfterSeed(t *testing.T) {
	s := New(0)
	if got := s.Next(); got != 1 {
		t.Fatalf("first id = %d, want 1", got)
	}
	if got := s.Next(); got != 2 {
		t.Fatalf("second id = %d, want 2", got)
	}
	if got := s.Current(); got != 2 {
		t.Fatalf("current = %d, want 2", got)
	}
}

func TestSeededStart(t *testing.T) {
	s := New(100)
	if got := s.Next(); got != 101 {
		t.Fatalf("id = %d, want 101", got)
	}
}

func TestConcurrentNextUnique(t *testing.T) {
	const workers = 16
	const perWorker = 1000

	s := New(0)
	ids := make([][]uint64, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			out := make([]uint64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				out = append(out, s.Next())
			}
			ids[w] = out
		}(w)
	}
	wg.Wait()

	seen := make(map[uint64]bool, workers*perWorker)
	for _, out := range ids {
		for _, id := range out {
			if seen[id] {
				t.Fatalf("id %d issued twice", id)
			}
			seen[id] = true
		}
	}
	if got := s.Current(); got != workers*perWorker {
		t.Fatalf("current = %d, want %d", got, workers*perWorker)
	}
}
