package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe logical clock for tests. Every call
// to Now advances it by one second from a fixed epoch, so timestamps that
// end up in golden files or database rows are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	epoch time.Time
	seq   int64
}

// DefaultEpoch is the instant a new clock counts from.
var DefaultEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewDeterministicClock creates a clock at DefaultEpoch.
//
// The first call to Now() returns DefaultEpoch plus one second.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{epoch: DefaultEpoch}
}

// Now advances the clock and returns the new instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.epoch.Add(time.Duration(c.seq) * time.Second)
}

// Ticks returns how many times Now has been called since the last reset.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to its epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
