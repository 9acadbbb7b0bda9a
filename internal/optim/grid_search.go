// Package optim searches physics parameters for the setup whose flow
// tracks the countdown best.
package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/metrics"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/sim"
	"github.com/san-kum/sandglass/internal/timer"
)

// Trial is one evaluated point of the grid.
type Trial struct {
	Params map[string]float64
	Score  float64
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	metric     string
	logger     *slog.Logger
}

// NewGridSearch searches the cartesian product of ranges, one range per
// parameter name, minimising metric. Parameter names are those accepted
// by config.Physics.SetParam.
func NewGridSearch(params []string, ranges [][]float64, metric string) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d params but %d ranges", len(params), len(ranges))
	}
	def := config.DefaultPhysics()
	known := def.GetParams()
	for i, name := range params {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("optim: unknown parameter %q", name)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: empty range for %q", name)
		}
	}
	return &GridSearch{
		paramNames: params,
		ranges:     ranges,
		metric:     metric,
		logger:     slog.New(slog.DiscardHandler),
	}, nil
}

func (g *GridSearch) WithLogger(l *slog.Logger) *GridSearch {
	if l != nil {
		g.logger = l
	}
	return g
}

// Size is the number of trials a full search runs.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs one countdown per grid point on top of base and returns the
// trials sorted best first.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, run sim.Config) ([]Trial, error) {
	if err := sim.Validate(run); err != nil {
		return nil, err
	}
	trials := make([]Trial, 0, g.Size())
	if err := g.searchRecursive(ctx, 0, map[string]float64{}, base, run, &trials); err != nil {
		return nil, err
	}
	sort.SliceStable(trials, func(i, j int) bool { return trials[i].Score < trials[j].Score })
	return trials, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	run sim.Config,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		score, err := g.evaluate(ctx, current, base, run)
		if err != nil {
			return err
		}
		params := make(map[string]float64, len(current))
		for k, v := range current {
			params[k] = v
		}
		*trials = append(*trials, Trial{Params: params, Score: score})
		g.logger.Debug("trial", "params", params, g.metric, score)
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		if err := g.searchRecursive(ctx, depth+1, current, base, run, trials); err != nil {
			return err
		}
	}
	delete(current, name)
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, params map[string]float64, base *config.Config, run sim.Config) (float64, error) {
	p := base.Physics
	for name, v := range params {
		if err := p.SetParam(name, v); err != nil {
			return 0, err
		}
	}

	runner := sim.New(sand.New(p, sand.WithLogger(g.logger)), timer.NewCountdown(base.Timer.Duration))
	for _, m := range metrics.Default() {
		runner.AddMetric(m)
	}
	res, err := runner.Run(ctx, run)
	if err != nil {
		return 0, err
	}
	score, ok := res.Metrics[g.metric]
	if !ok {
		return 0, fmt.Errorf("optim: unknown metric %q", g.metric)
	}
	if math.IsNaN(score) {
		score = math.Inf(1)
	}
	return score, nil
}
