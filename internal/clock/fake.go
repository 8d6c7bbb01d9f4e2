package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock for tests. It only moves when told to.
type FakeClock struct {
	mu  sync.RWMutex
	now time.Time
}

var _ Clock = (*FakeClock)(nil)

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set jumps to t, e.g. across a month boundary.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}
