package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/sandglass/internal/sand"
)

var (
	ErrInvalidRun = errors.New("sim: invalid run config")
	ErrLostGrains = errors.New("sim: grain count changed during run")
)

// RunError carries the step a run failed at.
type RunError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("step %d (t=%.3fs): %v", e.Step, e.Time, e.Wrapped)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}

// Frame is what observers and metrics see after each step. Grains aliases
// the engine's slice and is only valid during the callback.
type Frame struct {
	Step      int
	Time      float64
	Input     sand.Input
	Stats     sand.Stats
	Geometry  sand.Geometry
	Grains    []sand.Grain
	Occupancy int
	Target    float64
}

// Sample is the per-step record kept in a Result and written to samples.csv.
type Sample struct {
	Time      float64 `csv:"time" json:"time"`
	Progress  float64 `csv:"progress" json:"progress"`
	Running   bool    `csv:"running" json:"running"`
	Target    float64 `csv:"target" json:"target"`
	Passed    int     `csv:"passed" json:"passed"`
	Inactive  int     `csv:"inactive" json:"inactive"`
	Released  int     `csv:"released" json:"released"`
	Drained   int     `csv:"drained" json:"drained"`
	Sleeping  int     `csv:"sleeping" json:"sleeping"`
	Reseeds   int     `csv:"reseeds" json:"reseeds"`
	Occupancy int     `csv:"occupancy" json:"occupancy"`
}

func (f *Frame) Sample() Sample {
	return Sample{
		Time:      f.Time,
		Progress:  f.Input.Progress,
		Running:   f.Input.Running,
		Target:    f.Target,
		Passed:    f.Stats.Passed(),
		Inactive:  f.Stats.Inactive,
		Released:  f.Stats.Released,
		Drained:   f.Stats.Drained,
		Sleeping:  f.Stats.Sleeping,
		Reseeds:   f.Stats.Reseeds,
		Occupancy: f.Occupancy,
	}
}

type Metric interface {
	Name() string
	Observe(f *Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f *Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f *Frame)

func (fn ObserverFunc) OnStep(f *Frame) { fn(f) }

type Config struct {
	Dt       float64
	Duration float64
	Width    float64
	Height   float64
	// Realtime paces steps to the wall clock.
	Realtime bool
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int
	Final      sand.Stats
}
