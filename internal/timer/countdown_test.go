package timer

import (
	"math"
	"testing"
)

func TestCountdownLifecycle(t *testing.T) {
	c := NewCountdown(10)
	if c.Running() {
		t.Error("expected a new countdown to be stopped")
	}
	if c.Progress() != 1 {
		t.Errorf("expected progress 1, got %.3f", c.Progress())
	}

	c.Advance(1)
	if c.Progress() != 1 {
		t.Errorf("expected a stopped countdown not to move, got %.3f", c.Progress())
	}

	c.Start()
	c.Advance(2.5)
	if math.Abs(c.Progress()-0.75) > 1e-12 {
		t.Errorf("expected progress 0.75, got %.3f", c.Progress())
	}
	if math.Abs(c.Elapsed()-2.5) > 1e-12 {
		t.Errorf("expected 2.5s elapsed, got %.3f", c.Elapsed())
	}

	c.Advance(100)
	if c.Running() {
		t.Error("expected countdown to stop at zero")
	}
	if c.Progress() != 0 || !c.Done() {
		t.Errorf("expected empty countdown, progress %.3f", c.Progress())
	}

	c.Start()
	if c.Running() {
		t.Error("an empty countdown should not start")
	}

	c.Reset()
	if c.Progress() != 1 || c.Running() {
		t.Errorf("expected a full stopped countdown after reset, progress %.3f", c.Progress())
	}
}

func TestCountdownToggle(t *testing.T) {
	c := NewCountdown(5)
	c.Toggle()
	if !c.Running() {
		t.Error("expected toggle to start")
	}
	c.Toggle()
	if c.Running() {
		t.Error("expected toggle to stop")
	}
}

func TestCountdownDegenerate(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
	}{
		{"zero", 0},
		{"negative", -3},
		{"nan", math.NaN()},
	}
	for _, tt := range tests {
		c := NewCountdown(tt.duration)
		if c.Progress() != 0 {
			t.Errorf("%s: expected progress 0, got %v", tt.name, c.Progress())
		}
		c.Start()
		if c.Running() {
			t.Errorf("%s: expected countdown not to start", tt.name)
		}
	}
}

func TestCountdownIgnoresBadDt(t *testing.T) {
	c := NewCountdown(4)
	c.Start()
	c.Advance(-1)
	c.Advance(math.NaN())
	if c.Remaining() != 4 {
		t.Errorf("expected 4s remaining, got %v", c.Remaining())
	}
}

func TestSetDuration(t *testing.T) {
	c := NewCountdown(4)
	c.Start()
	c.Advance(1)
	c.SetDuration(8)
	if c.Duration() != 8 || c.Remaining() != 8 || c.Running() {
		t.Errorf("expected a stopped 8s countdown, got %v/%v running=%v", c.Remaining(), c.Duration(), c.Running())
	}
}
