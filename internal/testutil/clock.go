// Package testutil provides deterministic stand-ins for wall-clock time
// used across package tests.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant returned by a new DeterministicClock.
var Epoch = time.Date(2018, time.November, 15, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock that advances by a fixed step on
// every call to Now, starting at Epoch.
//
// It stands in for time.Now wherever recorded timestamps would otherwise
// make test output non-reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewDeterministicClock creates a clock starting at Epoch that advances
// one second per call.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockStep(time.Second)
}

// NewDeterministicClockStep creates a clock starting at Epoch that
// advances by step per call.
func NewDeterministicClockStep(step time.Duration) *DeterministicClock {
	return &DeterministicClock{next: Epoch, step: step}
}

// Now returns the current instant and advances the clock.
// Its signature matches time.Now so it can be injected directly.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Epoch
}
