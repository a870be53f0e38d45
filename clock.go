package rainfx

import "time"

const DefaultMaxDelta = 100 * time.Millisecond

// Clock turns wall time into per-frame deltas.
type Clock struct {
	Time     time.Time
	Dt       time.Duration
	MaxDelta time.Duration
}

func NewClock(now time.Time) *Clock {
	return &Clock{Time: now, MaxDelta: DefaultMaxDelta}
}

// Tick advances to now and returns the frame delta in seconds. Time going backwards
// yields 0; long stalls are clamped to MaxDelta.
func (c *Clock) Tick(now time.Time) float32 {
	dt := now.Sub(c.Time)
	c.Time = now
	if dt < 0 {
		dt = 0
	}
	if c.MaxDelta > 0 && dt > c.MaxDelta {
		dt = c.MaxDelta
	}
	c.Dt = dt
	return float32(dt.Seconds())
}
