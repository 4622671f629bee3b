package audio

import (
	"sync"
	"time"
)

// Clock reports the audio hardware time. Any number of readers may call Now concurrently.
type Clock interface {
	Now() time.Duration
}

// ClockSource hands out a Clock on demand and is told when it is no longer needed
type ClockSource interface {
	AcquireClock() (Clock, error)
	ReleaseClock()
}

// ManualClock is a Clock whose time only moves when told to.
// Hosts that drive scheduling from a file or a test use it.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManualClock creates a manual clock at the given time
func NewManualClock(start time.Duration) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t
func (c *ManualClock) Set(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new time
func (c *ManualClock) Advance(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

// AcquireClock returns the clock itself
func (c *ManualClock) AcquireClock() (Clock, error) { return c, nil }

// ReleaseClock is a no-op
func (c *ManualClock) ReleaseClock() {}
