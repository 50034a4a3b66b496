package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	c := &Clock{now: func() time.Time { return fixed }}

	a := c.NowMillis()
	b := c.NowMillis()
	assert.Equal(t, fixed.UnixMilli(), a)
	assert.Equal(t, a+1, b)

	c.now = func() time.Time { return fixed.Add(-time.Hour) }
	assert.Equal(t, b+1, c.NowMillis(), "wall clock stepping back must not go back")

	c.now = func() time.Time { return fixed.Add(time.Hour) }
	assert.Equal(t, fixed.Add(time.Hour).UnixMilli(), c.NowMillis())
}
