// Package automation runs scripted hourglass sessions: a setup plus timed
// events that start, stop, flip or retune the glass mid-run.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/metrics"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/sim"
	"github.com/san-kum/sandglass/internal/timer"
)

// Event actions.
const (
	ActionStart    = "start"
	ActionStop     = "stop"
	ActionToggle   = "toggle"
	ActionReset    = "reset"
	ActionDuration = "duration"
	ActionSet      = "set"
)

var ErrInvalidScenario = errors.New("automation: invalid scenario")

// Scenario defines a scripted session.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Preset      string             `yaml:"preset"`
	Time        float64            `yaml:"time"`
	RunFor      float64            `yaml:"run_for"`
	Params      map[string]float64 `yaml:"params"`
	Events      []Event            `yaml:"events"`
}

// Event fires once, after the first step whose time reaches At. Reset and
// duration leave the countdown stopped and full, like flipping the glass;
// a later start event sets it going again.
type Event struct {
	At     float64 `yaml:"at"`
	Action string  `yaml:"action"`
	Param  string  `yaml:"param,omitempty"`
	Value  float64 `yaml:"value,omitempty"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(sc.Events, func(i, j int) bool { return sc.Events[i].At < sc.Events[j].At })
	return &sc, nil
}

// Validate checks actions and parameter names. The grain count is fixed
// for the length of a run, so events may not change particle_count.
func (sc *Scenario) Validate() error {
	def := config.DefaultPhysics()
	known := def.GetParams()
	if sc.Preset != "" && config.GetPreset(sc.Preset) == nil {
		return fmt.Errorf("%w: unknown preset %q", ErrInvalidScenario, sc.Preset)
	}
	for name := range sc.Params {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidScenario, name)
		}
	}
	for i, ev := range sc.Events {
		if ev.At < 0 {
			return fmt.Errorf("%w: event %d at negative time %v", ErrInvalidScenario, i+1, ev.At)
		}
		switch ev.Action {
		case ActionStart, ActionStop, ActionToggle, ActionReset:
		case ActionDuration:
			if ev.Value <= 0 {
				return fmt.Errorf("%w: event %d needs a positive duration", ErrInvalidScenario, i+1)
			}
		case ActionSet:
			if _, ok := known[ev.Param]; !ok {
				return fmt.Errorf("%w: event %d sets unknown parameter %q", ErrInvalidScenario, i+1, ev.Param)
			}
			if ev.Param == "particle_count" {
				return fmt.Errorf("%w: event %d cannot change particle_count mid-run", ErrInvalidScenario, i+1)
			}
		default:
			return fmt.Errorf("%w: event %d has unknown action %q", ErrInvalidScenario, i+1, ev.Action)
		}
	}
	return nil
}

// Config builds the starting configuration: defaults, then the preset,
// then the scenario's own time and params.
func (sc *Scenario) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if sc.Preset != "" {
		cfg = config.GetPreset(sc.Preset)
	}
	if sc.Time > 0 {
		cfg.Timer.Duration = sc.Time
	}
	for name, v := range sc.Params {
		if err := cfg.Physics.SetParam(name, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
	}
	cfg.Physics = cfg.Physics.Sanitize()
	return cfg, nil
}

// Script applies a scenario's events to a running countdown and engine. It
// is a sim.Observer; events land after the step that reaches their time.
type Script struct {
	events    []Event
	next      int
	countdown *timer.Countdown
	engine    *sand.Simulation
	logger    *slog.Logger
}

func NewScript(events []Event, countdown *timer.Countdown, engine *sand.Simulation, logger *slog.Logger) *Script {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Script{events: events, countdown: countdown, engine: engine, logger: logger}
}

// Fired is the number of events applied so far.
func (s *Script) Fired() int { return s.next }

func (s *Script) OnStep(f *sim.Frame) {
	for s.next < len(s.events) && s.events[s.next].At <= f.Time+1e-9 {
		s.apply(s.events[s.next])
		s.next++
	}
}

func (s *Script) apply(ev Event) {
	switch ev.Action {
	case ActionStart:
		s.countdown.Start()
	case ActionStop:
		s.countdown.Stop()
	case ActionToggle:
		s.countdown.Toggle()
	case ActionReset:
		s.countdown.Reset()
	case ActionDuration:
		s.countdown.SetDuration(ev.Value)
	case ActionSet:
		p := s.engine.Config()
		if err := p.SetParam(ev.Param, ev.Value); err != nil {
			s.logger.Warn("scenario event", "param", ev.Param, "error", err)
			return
		}
		s.engine.SetConfig(p)
	}
	s.logger.Info("scenario event", "at", ev.At, "action", ev.Action, "param", ev.Param, "value", ev.Value)
}

// RunScenario executes sc headless at fps steps per second.
func RunScenario(ctx context.Context, sc *Scenario, fps int, logger *slog.Logger) (*sim.Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg, err := sc.Config()
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = cfg.Run.FPS
	}

	runFor := sc.RunFor
	if runFor <= 0 {
		runFor = cfg.Timer.Duration
		if n := len(sc.Events); n > 0 {
			runFor = max(runFor, sc.Events[n-1].At+cfg.Timer.Duration)
		}
	}

	engine := sand.New(cfg.Physics, sand.WithLogger(logger))
	countdown := timer.NewCountdown(cfg.Timer.Duration)
	runner := sim.New(engine, countdown)
	for _, m := range metrics.Default() {
		runner.AddMetric(m)
	}
	runner.AddObserver(NewScript(sc.Events, countdown, engine, logger))

	logger.Info("scenario", "name", sc.Name, "events", len(sc.Events), "run_for", runFor)
	return runner.Run(ctx, sim.Config{
		Dt:       1 / float64(fps),
		Duration: runFor,
		Width:    cfg.Container.Width,
		Height:   cfg.Container.Height,
	})
}
