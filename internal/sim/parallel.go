package sim

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/timer"
)

// Ensemble runs the same setup over consecutive seeds. Each run owns its
// own engine and countdown; only whole runs execute concurrently.
type Ensemble struct {
	physics   config.Physics
	countdown float64
	numRuns   int
	seedStart int64
	metrics   func() []Metric
	logger    *slog.Logger
}

func NewEnsemble(physics config.Physics, countdown float64, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{
		physics:   physics,
		countdown: countdown,
		numRuns:   numRuns,
		seedStart: seedStart,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// WithMetrics sets a factory for per-run metrics. Metrics keep state, so
// each run needs its own set.
func (e *Ensemble) WithMetrics(factory func() []Metric) *Ensemble {
	e.metrics = factory
	return e
}

func (e *Ensemble) WithLogger(l *slog.Logger) *Ensemble {
	if l != nil {
		e.logger = l
	}
	return e
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	results := make([]*Result, e.numRuns)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			p := e.physics
			p.Seed = e.seedStart + int64(i)

			engine := sand.New(p, sand.WithLogger(e.logger.With("seed", p.Seed)))
			runner := New(engine, timer.NewCountdown(e.countdown))
			if e.metrics != nil {
				for _, m := range e.metrics() {
					runner.AddMetric(m)
				}
			}

			res, err := runner.Run(ctx, cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
