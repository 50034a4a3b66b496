package services

import (
	"sync"
	"time"
)

// Clock hands out millisecond timestamps that strictly increase, even when
// the wall clock stalls or steps back.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (c *Clock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UnixMilli()
	if t <= c.last {
		t = c.last + 1
	}
	c.last = t
	return t
}
