package shutdown

import (
	"sync"
	"testing"
)

func TestCounter_Increment(t *testing.T) {
	c := NewCounter(3, nil)
	for want := 1; want <= 3; want++ {
		if got := c.Increment(); got != want {
			t.Errorf("Increment() = %d, want %d", got, want)
		}
	}
}

func TestCounter_ForceCallbackAtThreshold(t *testing.T) {
	forced := 0
	c := NewCounter(2, func() { forced++ })

	c.Increment()
	if forced != 0 {
		t.Fatal("force callback ran before the threshold")
	}
	c.Increment()
	if forced != 1 {
		t.Fatalf("expected one force callback, got %d", forced)
	}
	// Every increment at or past the threshold forces again; the real
	// callback exits the process so this only matters for tests.
	c.Increment()
	if forced != 2 {
		t.Errorf("expected a second force callback, got %d", forced)
	}
}

func TestCounter_NilCallback(t *testing.T) {
	c := NewCounter(1, nil)
	// Must not panic.
	c.Increment()
	c.Increment()
}

func TestCounter_Concurrent(t *testing.T) {
	c := NewCounter(1000, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	if got := c.Increment(); got != 101 {
		t.Errorf("expected 101 after 100 concurrent increments, got %d", got)
	}
}

func TestOnInterrupt_StopIsIdempotent(t *testing.T) {
	stop := OnInterrupt(func() {})
	stop()
	stop()
}
