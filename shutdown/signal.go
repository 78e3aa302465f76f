// Package shutdown binds process interrupts to cancellation callbacks.
//
// "User asked to cancel" and "process must exit" are deliberately
// decoupled: the package only invokes the callback, and the callback
// decides whether to exit. A second interrupt force-exits for callers
// whose cancel path hangs.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ForceExitCode is the exit status used when a second interrupt arrives
// before the cancel callback finishes.
const ForceExitCode = 1

// Counter tracks repeated interrupts and triggers a forced exit once
// the threshold is reached.
type Counter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewCounter creates a Counter that calls onForce when the count
// reaches forceAfter.
func NewCounter(forceAfter int, onForce func()) *Counter {
	return &Counter{forceAfter: forceAfter, onForce: onForce}
}

// Increment increases the count and returns it. The onForce callback
// runs while holding the lock; it is expected to exit the process.
func (c *Counter) Increment() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.count++
	if c.count >= c.forceAfter && c.onForce != nil {
		c.onForce()
	}
	return c.count
}

// OnInterrupt invokes fn on the first SIGINT/SIGTERM and force-exits on
// the second. It returns a stop function that unregisters the handler;
// each submission registers its own handler, so callers should stop the
// previous one before starting another.
func OnInterrupt(fn func()) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	counter := NewCounter(2, func() {
		os.Exit(ForceExitCode)
	})

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ch:
				if counter.Increment() == 1 {
					go fn()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
