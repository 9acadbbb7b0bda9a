package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/timer"
)

// Runner drives a countdown and a grain simulation in lock step.
type Runner struct {
	engine    *sand.Simulation
	countdown *timer.Countdown
	metrics   []Metric
	observers []Observer
}

func New(engine *sand.Simulation, countdown *timer.Countdown) *Runner {
	return &Runner{
		engine:    engine,
		countdown: countdown,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (r *Runner) Engine() *sand.Simulation    { return r.engine }
func (r *Runner) Countdown() *timer.Countdown { return r.countdown }

// Validate rejects configs a run cannot make progress with.
func Validate(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidRun, cfg.Dt)
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidRun, cfg.Duration)
	}
	if !(cfg.Width > 0) || !(cfg.Height > 0) {
		return fmt.Errorf("%w: container must be positive, got %.1fx%.1f", ErrInvalidRun, cfg.Width, cfg.Height)
	}
	return nil
}

// Run starts the countdown and steps until cfg.Duration has elapsed. The
// countdown is advanced before each engine step so the step that sees it
// stop at zero is the one that drains the top chamber.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		Samples: make([]Sample, 0, steps),
		Metrics: make(map[string]float64),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	var tick <-chan time.Time
	if cfg.Realtime {
		ticker := time.NewTicker(time.Duration(cfg.Dt * float64(time.Second)))
		defer ticker.Stop()
		tick = ticker.C
	}

	logger := r.engine.Logger()
	total := r.engine.Config().ParticleCount
	r.countdown.Start()

	var frame Frame
	t := 0.0
	for i := 0; i < steps; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return result, &RunError{Step: i, Time: t, Wrapped: ctx.Err()}
			case <-tick:
			}
		} else {
			select {
			case <-ctx.Done():
				return result, &RunError{Step: i, Time: t, Wrapped: ctx.Err()}
			default:
			}
		}

		r.countdown.Advance(cfg.Dt)
		in := sand.Input{
			Width:    cfg.Width,
			Height:   cfg.Height,
			Progress: r.countdown.Progress(),
			Running:  r.countdown.Running(),
		}
		r.engine.Step(in, cfg.Dt)
		t += cfg.Dt

		st := r.engine.Stats()
		if st.Active+st.Inactive != total {
			return result, &RunError{Step: i, Time: t, Wrapped: ErrLostGrains}
		}

		frame = Frame{
			Step:      i,
			Time:      t,
			Input:     in,
			Stats:     st,
			Geometry:  r.engine.Geometry(),
			Grains:    r.engine.Grains(),
			Occupancy: r.engine.EntranceOccupancy(),
			Target:    (1 - in.Progress) * float64(total),
		}

		for _, m := range r.metrics {
			m.Observe(&frame)
		}
		for _, obs := range r.observers {
			obs.OnStep(&frame)
		}

		result.Samples = append(result.Samples, frame.Sample())
		result.StepsTaken++
	}

	result.Final = r.engine.Stats()
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	logger.Info("run finished", "steps", result.StepsTaken, "stats", result.Final)

	return result, nil
}

// RunWithCallback steps like Run but hands each frame to callback instead of
// recording samples. Returning false from callback ends the run early.
func (r *Runner) RunWithCallback(ctx context.Context, cfg Config, callback func(*Frame) bool) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	total := r.engine.Config().ParticleCount
	r.countdown.Start()

	var frame Frame
	t := 0.0
	for i := 0; t < cfg.Duration; i++ {
		select {
		case <-ctx.Done():
			return &RunError{Step: i, Time: t, Wrapped: ctx.Err()}
		default:
		}

		r.countdown.Advance(cfg.Dt)
		in := sand.Input{
			Width:    cfg.Width,
			Height:   cfg.Height,
			Progress: r.countdown.Progress(),
			Running:  r.countdown.Running(),
		}
		r.engine.Step(in, cfg.Dt)
		t += cfg.Dt

		frame = Frame{
			Step:      i,
			Time:      t,
			Input:     in,
			Stats:     r.engine.Stats(),
			Geometry:  r.engine.Geometry(),
			Grains:    r.engine.Grains(),
			Occupancy: r.engine.EntranceOccupancy(),
			Target:    (1 - in.Progress) * float64(total),
		}
		if !callback(&frame) {
			return nil
		}
	}
	return nil
}
