package usage

import (
	"sync"
	"testing"
)

func TestTrackerAddSubtract(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(100)
	tracker.Add(50)
	tracker.Subtract(30)

	if got := tracker.Current(); got != 120 {
		t.Fatalf("unexpected total: %d", got)
	}
}

func TestTrackerConcurrentMutations(t *testing.T) {
	tracker := NewTracker()

	const workers = 16
	const rounds = 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				tracker.Add(7)
				tracker.Subtract(3)
			}
		}()
	}
	wg.Wait()

	want := int64(workers * rounds * 4)
	if got := tracker.Current(); got != want {
		t.Fatalf("expected %d after concurrent mutations, got %d", want, got)
	}
}

func TestTrackerZeroValueUsable(t *testing.T) {
	var tracker Tracker
	tracker.Add(5)
	tracker.Subtract(5)
	if got := tracker.Current(); got != 0 {
		t.Fatalf("expected zero, got %d", got)
	}
}
