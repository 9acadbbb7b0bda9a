package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/sandglass/internal/automation"
	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/export"
	"github.com/san-kum/sandglass/internal/metrics"
	"github.com/san-kum/sandglass/internal/optim"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/sim"
	"github.com/san-kum/sandglass/internal/storage"
	"github.com/san-kum/sandglass/internal/stream"
	"github.com/san-kum/sandglass/internal/timer"
	"github.com/spf13/cobra"
)

const (
	// drainTail keeps stepping after the countdown ends so the drained
	// grains settle in the recording.
	drainTail = 2.0
	// streamFPS is the frame rate sent to websocket viewers.
	streamFPS = 30
)

func runConfig(cfg *config.Config, realtime bool) sim.Config {
	return sim.Config{
		Dt:       1 / float64(cfg.Run.FPS),
		Duration: cfg.Timer.Duration + drainTail,
		Width:    cfg.Container.Width,
		Height:   cfg.Container.Height,
		Realtime: realtime,
	}
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	if cfg.Run.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %d", sim.ErrInvalidRun, cfg.Run.FPS)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine := sand.New(cfg.Physics, sand.WithLogger(logger))
	runner := sim.New(engine, timer.NewCountdown(cfg.Timer.Duration))
	for _, m := range metrics.Default() {
		runner.AddMetric(m)
	}

	if serveAddr != "" {
		hub := stream.NewHub(max(1, cfg.Run.FPS/streamFPS), logger)
		go hub.Run(ctx)
		runner.AddObserver(hub)

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: serveAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("stream server", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("streaming frames", "addr", serveAddr, "path", "/ws")
	}

	run := runConfig(cfg, serveAddr != "")
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "running %s: %d grains, %.0fs countdown...\n", name, cfg.Physics.ParticleCount, cfg.Timer.Duration)
	start := time.Now()

	result, err := runner.Run(ctx, run)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	elapsed := time.Since(start)

	st := storage.New(cfg.Run.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(name, cfg, run, result)
	if err != nil {
		return err
	}
	if err := catalogRun(ctx, st, runID); err != nil {
		logger.Warn("catalog update failed", "run", runID, "error", err)
	}

	if svgPath != "" {
		svg := export.GlassSVG(engine.Geometry(), engine.Grains(), export.DefaultPalette)
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
	}

	sum := metrics.Summarize(result.Samples)
	fmt.Fprintf(out, "completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "run id: %s\n", runID)
	fmt.Fprintf(out, "steps: %d\n", result.StepsTaken)
	fmt.Fprintf(out, "passed: %d / %d\n", result.Final.Passed(), result.Final.Total)
	if sum.EmptyAt >= 0 {
		fmt.Fprintf(out, "top empty at: %.2fs\n", sum.EmptyAt)
	}
	fmt.Fprintln(out, "\nmetrics:")
	for _, m := range sortedKeys(result.Metrics) {
		fmt.Fprintf(out, "  %-16s %.4f\n", m, result.Metrics[m])
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func catalogRun(ctx context.Context, st *storage.Store, runID string) error {
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	cat, err := storage.OpenCatalog(st.Dir())
	if err != nil {
		return err
	}
	defer cat.Close()
	return cat.Add(ctx, *meta)
}

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	cat, err := storage.OpenCatalog(st.Dir())
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.Query(ctx, preset, byLag, limit)
	if err != nil {
		return err
	}
	if rebuild || len(entries) == 0 {
		if _, err := cat.Rebuild(ctx, st); err != nil {
			return err
		}
		if entries, err = cat.Query(ctx, preset, byLag, limit); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tGRAINS\tSEED\tPASSED\tMAX LAG\tOVERLAP")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.0f\t%.2f\t%.3f\n",
			e.ID,
			e.Preset,
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Particles,
			e.Seed,
			e.FinalPassed,
			e.MaxLag,
			e.MaxOverlap,
		)
	}
	return w.Flush()
}

func resolveRun(st *storage.Store, id string) (string, error) {
	if id != "latest" {
		return id, nil
	}
	return st.Latest()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "preset: %s\n", meta.Preset)
	fmt.Fprintf(out, "samples: %d\n\n", len(samples))

	graph := asciigraph.PlotMany(
		[][]float64{metrics.Series(samples, "target"), metrics.Series(samples, "passed")},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Gray, asciigraph.Goldenrod),
		asciigraph.Caption("passed (gold) vs target (gray)"),
	)
	fmt.Fprintln(out, graph)
	fmt.Fprintln(out)

	released := asciigraph.Plot(metrics.Series(samples, "released"),
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("released per step"),
	)
	fmt.Fprintln(out, released)

	sum := metrics.Summarize(samples)
	fmt.Fprintf(out, "\nmean release %.2f ± %.2f per step, peak %d\n", sum.MeanRelease, sum.StdRelease, sum.PeakRelease)
	fmt.Fprintf(out, "lag mean %.2f, max %.2f grains\n", sum.MeanLag, sum.MaxLag)
	if sum.PulseHz > 0 {
		fmt.Fprintf(out, "flow pulses at %.2f Hz\n", sum.PulseHz)
	}

	if svgPath != "" {
		svg := export.SeriesSVG(
			[][]float64{metrics.Series(samples, "target"), metrics.Series(samples, "passed")},
			[]string{"#808080", export.DefaultPalette.Sand},
			800, 400,
		)
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
		fmt.Fprintf(out, "wrote %s\n", svgPath)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	if outPath != "" {
		if err := st.ExportFile(outPath, runID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", runID, outPath)
		return nil
	}
	return st.Export(cmd.OutOrStdout(), runID)
}

func benchRuns(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	if cfg.Run.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %d", sim.ErrInvalidRun, cfg.Run.FPS)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ens := sim.NewEnsemble(cfg.Physics, cfg.Timer.Duration, numRuns, cfg.Physics.Seed).
		WithMetrics(metrics.Default).
		WithLogger(logger)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "bench %s: %d seeds from %d, %d grains\n", name, numRuns, cfg.Physics.Seed, cfg.Physics.ParticleCount)
	start := time.Now()
	results, err := ens.Run(ctx, runConfig(cfg, false))
	if err != nil {
		return fmt.Errorf("bench failed: %w", err)
	}
	elapsed := time.Since(start)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tPASSED\tMAX LAG\tPEAK RELEASE\tGATE\tOVERLAP\tEMPTY AT\tPULSE")
	for i, r := range results {
		sum := metrics.Summarize(r.Samples)
		fmt.Fprintf(w, "%d\t%d\t%.2f\t%.0f\t%.0f\t%.3f\t%.2fs\t%.2fHz\n",
			cfg.Physics.Seed+int64(i),
			r.Final.Passed(),
			r.Metrics["max_lag"],
			r.Metrics["peak_release"],
			r.Metrics["gate_occupancy"],
			r.Metrics["max_overlap"],
			sum.EmptyAt,
			sum.PulseHz,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	steps := 0
	for _, r := range results {
		steps += r.StepsTaken
	}
	fmt.Fprintf(out, "\n%d steps in %v (%.0f steps/s)\n", steps, elapsed.Round(time.Millisecond), float64(steps)/elapsed.Seconds())
	return nil
}

// parseGrid turns "name=v1,v2" flags into parallel name and value lists.
func parseGrid(params []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(params))
	ranges := make([][]float64, 0, len(params))
	for _, param := range params {
		name, list, ok := strings.Cut(param, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad --param %q (want name=v1,v2,...)", param)
		}
		var vals []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad value in --param %q: %w", param, err)
			}
			vals = append(vals, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func tuneRuns(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	if cfg.Run.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %d", sim.ErrInvalidRun, cfg.Run.FPS)
	}

	names, ranges, err := parseGrid(tuneParams)
	if err != nil {
		return err
	}
	gs, err := optim.NewGridSearch(names, ranges, tuneMetric)
	if err != nil {
		return err
	}
	gs.WithLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tuning %s: %d trials minimising %s\n", name, gs.Size(), tuneMetric)
	start := time.Now()
	trials, err := gs.Search(ctx, cfg, runConfig(cfg, false))
	if err != nil {
		return fmt.Errorf("tune failed: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(tuneMetric))
	for i, tr := range trials {
		if tuneTop > 0 && i >= tuneTop {
			break
		}
		cols := make([]string, 0, len(names)+1)
		for _, n := range names {
			cols = append(cols, strconv.FormatFloat(tr.Params[n], 'g', -1, 64))
		}
		cols = append(cols, fmt.Sprintf("%.3f", tr.Score))
		fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d trials in %v\n", len(trials), time.Since(start).Round(time.Millisecond))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}
	cfg, err := sc.Config()
	if err != nil {
		return err
	}
	cfg.Run.FPS = frameRate
	cfg.Run.DataDir = dataDir
	logger, err := newLogger(false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	name := sc.Name
	if name == "" {
		name = "scenario"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scenario %s: %d events\n", name, len(sc.Events))
	result, err := automation.RunScenario(ctx, sc, frameRate, logger)
	if err != nil {
		return fmt.Errorf("scenario failed: %w", err)
	}

	st := storage.New(cfg.Run.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	run := runConfig(cfg, false)
	run.Duration = float64(result.StepsTaken) * run.Dt
	runID, err := st.Save(name, cfg, run, result)
	if err != nil {
		return err
	}
	if err := catalogRun(ctx, st, runID); err != nil {
		logger.Warn("catalog update failed", "run", runID, "error", err)
	}

	fmt.Fprintf(out, "run id: %s\n", runID)
	fmt.Fprintf(out, "passed: %d / %d\n", result.Final.Passed(), result.Final.Total)
	for _, m := range sortedKeys(result.Metrics) {
		fmt.Fprintf(out, "  %-16s %.4f\n", m, result.Metrics[m])
	}
	return nil
}
