// Package timer provides the countdown that drives the hourglass.
package timer

import "math"

// Countdown counts Duration seconds down to zero. It only moves when
// Advance is called, so the caller owns the clock.
type Countdown struct {
	duration  float64
	remaining float64
	running   bool
}

func NewCountdown(duration float64) *Countdown {
	if math.IsNaN(duration) || duration < 0 {
		duration = 0
	}
	return &Countdown{duration: duration, remaining: duration}
}

func (c *Countdown) Start() {
	if c.remaining > 0 {
		c.running = true
	}
}

func (c *Countdown) Stop() { c.running = false }

// Toggle starts a stopped countdown or stops a running one.
func (c *Countdown) Toggle() {
	if c.running {
		c.Stop()
	} else {
		c.Start()
	}
}

// Reset refills the countdown and stops it.
func (c *Countdown) Reset() {
	c.remaining = c.duration
	c.running = false
}

// SetDuration changes the length and resets.
func (c *Countdown) SetDuration(d float64) {
	if math.IsNaN(d) || d < 0 {
		d = 0
	}
	c.duration = d
	c.Reset()
}

// Advance moves the countdown dt seconds forward. Reaching zero stops it.
func (c *Countdown) Advance(dt float64) {
	if !c.running || dt <= 0 || math.IsNaN(dt) {
		return
	}
	c.remaining -= dt
	if c.remaining <= 0 {
		c.remaining = 0
		c.running = false
	}
}

// Progress is the remaining fraction: 1 when full, 0 when empty.
func (c *Countdown) Progress() float64 {
	if c.duration <= 0 {
		return 0
	}
	return c.remaining / c.duration
}

func (c *Countdown) Running() bool      { return c.running }
func (c *Countdown) Remaining() float64 { return c.remaining }
func (c *Countdown) Duration() float64  { return c.duration }
func (c *Countdown) Elapsed() float64   { return c.duration - c.remaining }
func (c *Countdown) Done() bool         { return c.remaining <= 0 }
