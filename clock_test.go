package rainfx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockTick(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewClock(start)

	dt := c.Tick(start.Add(16 * time.Millisecond))
	assert.InDelta(t, 0.016, dt, 1e-6)
	assert.Equal(t, 16*time.Millisecond, c.Dt)

	// a stall is clamped
	dt = c.Tick(c.Time.Add(5 * time.Second))
	assert.InDelta(t, DefaultMaxDelta.Seconds(), dt, 1e-6)

	// time going backwards never yields a negative step
	dt = c.Tick(c.Time.Add(-time.Second))
	assert.Equal(t, float32(0), dt)
}

func TestClockWithoutClamp(t *testing.T) {
	start := time.Unix(0, 0)
	c := NewClock(start)
	c.MaxDelta = 0
	assert.InDelta(t, 2.0, c.Tick(start.Add(2*time.Second)), 1e-6)
}
