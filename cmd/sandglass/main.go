package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/gui"
	"github.com/san-kum/sandglass/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logFormat  string
	logLevel   string
	logFile    string
	configFile string
	preset     string
	duration   float64
	frameRate  int
	count      int
	width      float64
	height     float64
	seed       int64
	serveAddr  string
	numRuns    int
	byLag      bool
	limit      int
	outPath    string
	rebuild    bool
	svgPath    string
	tuneParams []string
	tuneMetric string
	tuneTop    int
)

// logOut is closed on exit when logs go to a file.
var logOut io.WriteCloser

func main() {
	rootCmd := &cobra.Command{
		Use:   "sandglass",
		Short: "granular hourglass simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(true)
			if err != nil {
				return err
			}
			return viz.RunInteractive(logger)
		},
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if logOut != nil {
			logOut.Close()
		}
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a file (interactive views log nowhere otherwise)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless countdown and record it",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	addSetupFlags(runCmd)
	runCmd.Flags().StringVar(&serveAddr, "serve", "", "stream frames over websocket on this address (e.g. :8080)")
	runCmd.Flags().StringVar(&svgPath, "svg", "", "write the final hourglass as SVG")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the hourglass in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSetupFlags(liveCmd)

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "run the hourglass in a window",
		Args:  cobra.NoArgs,
		RunE:  runGUI,
	}
	addSetupFlags(guiCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&preset, "preset", "", "only runs of this preset")
	listCmd.Flags().BoolVar(&byLag, "by-lag", false, "sort by worst lag")
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum runs shown (0 for all)")
	listCmd.Flags().BoolVar(&rebuild, "rebuild", false, "rebuild the catalog from the run directories")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id|latest]",
		Short: "plot passed grains against the target",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the passed/target curves as SVG")

	exportCmd := &cobra.Command{
		Use:   "export [run_id|latest]",
		Short: "export run metadata and samples as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "run the same setup over several seeds in parallel",
		Args:  cobra.NoArgs,
		RunE:  benchRuns,
	}
	addSetupFlags(benchCmd)
	benchCmd.Flags().IntVar(&numRuns, "runs", 4, "number of seeds")

	tuneCmd := &cobra.Command{
		Use:     "tune",
		Short:   "grid search physics parameters for the smallest lag",
		Example: "  sandglass tune --param gravity=1500,2500,3500 --param max_release_per_frame=1,2,4",
		Args:    cobra.NoArgs,
		RunE:    tuneRuns,
	}
	addSetupFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "max_lag", "metric to minimise")
	tuneCmd.Flags().IntVar(&tuneTop, "top", 5, "trials to show")
	tuneCmd.MarkFlagRequired("param")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted session from a YAML file and record it",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().IntVar(&frameRate, "fps", config.DefaultFPS, "steps per second")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "print the default configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(config.DefaultConfig())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, guiCmd, listCmd, plotCmd, exportCmd, benchCmd, tuneCmd, scenarioCmd, presetsCmd, defaultsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addSetupFlags registers the flags that build a run configuration.
func addSetupFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "countdown length in seconds")
	cmd.Flags().IntVar(&frameRate, "fps", config.DefaultFPS, "steps per second")
	cmd.Flags().IntVar(&count, "count", config.DefaultParticleCount, "number of grains")
	cmd.Flags().Float64Var(&width, "width", config.DefaultWidth, "container width in pixels")
	cmd.Flags().Float64Var(&height, "height", config.DefaultHeight, "container height in pixels")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
}

// loadConfig layers defaults, then the preset, then the config file, then
// any flag set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	name := preset
	if preset != "" {
		p, err := config.MustPreset(preset)
		if err != nil {
			return nil, "", err
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if name == "" {
			name = "custom"
		}
	}

	flags := cmd.Flags()
	if flags.Changed("time") {
		cfg.Timer.Duration = duration
	}
	if flags.Changed("fps") {
		cfg.Run.FPS = frameRate
	}
	if flags.Changed("count") {
		cfg.Physics.ParticleCount = count
	}
	if flags.Changed("width") {
		cfg.Container.Width = width
	}
	if flags.Changed("height") {
		cfg.Container.Height = height
	}
	if flags.Changed("seed") {
		cfg.Physics.Seed = seed
	}
	if flags.Changed("data") || cfg.Run.DataDir == "" {
		cfg.Run.DataDir = dataDir
	}
	cfg.Physics = cfg.Physics.Sanitize()

	if name == "" {
		name = "classic"
	}
	return cfg, name, nil
}

// newLogger builds the slog logger from the persistent flags. Interactive
// views own the terminal, so without --log-file they get a discard logger.
func newLogger(interactive bool) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logOut = f
		w = f
	} else if interactive {
		return slog.New(slog.DiscardHandler), nil
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(logFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", logFormat)
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(true)
	if err != nil {
		return err
	}
	return viz.RunLive(name, cfg, logger)
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	gui.Run(name, cfg, logger)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "presets:")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(out, "  %-10s %5d grains  scale %.1f  %3.0fs\n",
			name, p.Physics.ParticleCount, p.Physics.RadiusScale, p.Timer.Duration)
	}
	return nil
}
