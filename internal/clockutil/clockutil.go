// Package clockutil provides a small monotonic counter for a
// strictly-increasing sequence number rather than a true wall/logical
// clock: package alarm numbers registrations with it. That number is a
// "tick count," not a causality timestamp, so a
// plain uint64 counter replaces the teacher's big.Int-backed logical
// clock (adapted from logicalClock.go, which sized its counter for
// unbounded vector-clock arithmetic this module has no use for).
package clockutil

import "sync"

// Counter is a monotonically increasing counter. The zero value starts
// at 0 and is ready to use.
type Counter struct {
	mu    sync.Mutex
	value uint64
}

// Tick increments the counter by 1 and returns the new value.
func (c *Counter) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
	return c.value
}
