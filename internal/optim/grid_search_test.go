package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/sim"
)

func smallSetup() (*config.Config, sim.Config) {
	cfg := config.DefaultConfig()
	cfg.Physics.ParticleCount = 40
	cfg.Timer.Duration = 1
	return cfg, sim.Config{Dt: 1.0 / 60, Duration: 1.5, Width: 200, Height: 400}
}

func TestGridSearchSortsTrials(t *testing.T) {
	gs, err := NewGridSearch(
		[]string{"max_release_per_frame", "gravity"},
		[][]float64{{2, 1}, {1500, 2500}},
		"peak_release",
	)
	if err != nil {
		t.Fatal(err)
	}
	if gs.Size() != 4 {
		t.Fatalf("expected 4 grid points, got %d", gs.Size())
	}

	cfg, run := smallSetup()
	trials, err := gs.Search(context.Background(), cfg, run)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(trials) != 4 {
		t.Fatalf("expected 4 trials, got %d", len(trials))
	}
	for i := 1; i < len(trials); i++ {
		if trials[i].Score < trials[i-1].Score {
			t.Errorf("trials not sorted: %v before %v", trials[i-1].Score, trials[i].Score)
		}
	}
	for _, tr := range trials {
		if len(tr.Params) != 2 {
			t.Errorf("expected 2 params per trial, got %v", tr.Params)
		}
		if tr.Score > tr.Params["max_release_per_frame"] {
			t.Errorf("peak release %v above cap %v", tr.Score, tr.Params["max_release_per_frame"])
		}
	}
}

func TestGridSearchLeavesBaseUntouched(t *testing.T) {
	gs, err := NewGridSearch([]string{"gravity"}, [][]float64{{900}}, "max_lag")
	if err != nil {
		t.Fatal(err)
	}
	cfg, run := smallSetup()
	before := cfg.Physics.Gravity
	if _, err := gs.Search(context.Background(), cfg, run); err != nil {
		t.Fatal(err)
	}
	if cfg.Physics.Gravity != before {
		t.Errorf("base gravity changed to %v", cfg.Physics.Gravity)
	}
}

func TestNewGridSearchRejectsBadInput(t *testing.T) {
	if _, err := NewGridSearch([]string{"gravity"}, nil, "max_lag"); err == nil {
		t.Error("expected error for mismatched ranges")
	}
	if _, err := NewGridSearch([]string{"viscosity"}, [][]float64{{1}}, "max_lag"); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, err := NewGridSearch([]string{"gravity"}, [][]float64{{}}, "max_lag"); err == nil {
		t.Error("expected error for empty range")
	}
}

func TestGridSearchUnknownMetric(t *testing.T) {
	gs, err := NewGridSearch([]string{"gravity"}, [][]float64{{1000}}, "smoothness")
	if err != nil {
		t.Fatal(err)
	}
	cfg, run := smallSetup()
	if _, err := gs.Search(context.Background(), cfg, run); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestGridSearchCancelled(t *testing.T) {
	gs, err := NewGridSearch([]string{"gravity"}, [][]float64{{1000, 2000}}, "max_lag")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg, run := smallSetup()
	if _, err := gs.Search(ctx, cfg, run); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
