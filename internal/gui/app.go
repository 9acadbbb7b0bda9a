package gui

import (
	"fmt"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/timer"
)

// Theme Colors
var (
	ColBg      = rl.NewColor(12, 11, 10, 255)
	ColGlass   = rl.NewColor(120, 140, 160, 255)
	ColAccent  = rl.NewColor(232, 176, 74, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
)

const (
	windowW     = 960
	windowH     = 720
	panelWidth  = 300
	historySize = 300
	maxFrameDt  = 1.0 / 20
)

type App struct {
	Engine    *sand.Simulation
	Countdown *timer.Countdown
	Name      string
	Initial   config.Physics
	Telemetry []float64
	Paused    bool
	ShowPanel bool

	logger *slog.Logger
}

// initWindow opens a resizable window at 60 FPS and disables the default
// exit key.
func initWindow() {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(windowW, windowH, "sandglass")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

func NewApp(name string, cfg *config.Config, logger *slog.Logger) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &App{
		Engine:    sand.New(cfg.Physics, sand.WithLogger(logger)),
		Countdown: timer.NewCountdown(cfg.Timer.Duration),
		Name:      name,
		Initial:   cfg.Physics.Sanitize(),
		Telemetry: make([]float64, 0, historySize),
		ShowPanel: true,
		logger:    logger,
	}
}

// Run opens the window and blocks until it is closed.
func Run(name string, cfg *config.Config, logger *slog.Logger) {
	initWindow()
	defer rl.CloseWindow()
	app := NewApp(name, cfg, logger)
	app.Countdown.Start()
	app.RunLoop()
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if a.Update() {
			return
		}
		a.Draw()
	}
}

// glassRect is the area the hourglass is laid out in, left of the panel.
func (a *App) glassRect() rl.Rectangle {
	w, h := float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
	if a.ShowPanel {
		w -= panelWidth
	}
	return rl.Rectangle{X: 0, Y: 0, Width: max(w, 0), Height: h}
}

// Update handles keys and steps the engine. It reports whether the app
// should exit.
func (a *App) Update() bool {
	if rl.IsKeyPressed(rl.KeyQ) {
		return true
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.Countdown.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.Countdown.Reset()
		a.Telemetry = a.Telemetry[:0]
	}
	if rl.IsKeyPressed(rl.KeyP) {
		a.Paused = !a.Paused
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		a.ShowPanel = !a.ShowPanel
	}
	if rl.IsKeyPressed(rl.KeyBackspace) {
		a.Engine.SetConfig(a.Initial)
	}
	if a.Paused {
		return false
	}

	dt := min(float64(rl.GetFrameTime()), maxFrameDt)
	a.Countdown.Advance(dt)

	r := a.glassRect()
	a.Engine.Step(sand.Input{
		Width:    float64(r.Width),
		Height:   float64(r.Height),
		Progress: a.Countdown.Progress(),
		Running:  a.Countdown.Running(),
	}, dt)

	a.Telemetry = append(a.Telemetry, float64(a.Engine.Stats().Passed()))
	if len(a.Telemetry) > historySize {
		a.Telemetry = a.Telemetry[1:]
	}
	return false
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	a.drawGlass()
	a.drawGrains()
	a.DrawHUD()
	if a.ShowPanel {
		a.drawPanel()
	}

	rl.EndDrawing()
}

func (a *App) DrawHUD() {
	rl.DrawText("sandglass", 20, 16, 24, ColAccent)
	rl.DrawText(fmt.Sprintf(":: %s", a.Name), 150, 22, 16, ColText)

	status, col := "STOPPED", ColTextDim
	switch {
	case a.Paused:
		status, col = "PAUSED", ColText
	case a.Countdown.Running():
		status, col = "RUNNING", ColSelect
	case a.Countdown.Done():
		status, col = "DONE", ColAccent
	}
	rl.DrawText(status, 20, 46, 16, col)
	rl.DrawText(fmt.Sprintf("%.1fs", a.Countdown.Remaining()), 20, 66, 20, ColSelect)

	h := int32(rl.GetScreenHeight())
	rl.DrawText("[SPACE] START/STOP  [R] RESET  [P] PAUSE  [TAB] PANEL  [Q] QUIT", 20, h-28, 14, ColTextDim)
	rl.DrawText(fmt.Sprintf("%d FPS", rl.GetFPS()), 20, h-48, 14, ColTextDim)
}

func (a *App) drawPanel() {
	w, h := float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
	panelX := w - panelWidth + 16
	panelY := float32(20)
	rl.DrawRectangle(int32(w-panelWidth), 0, panelWidth, int32(h), rl.NewColor(20, 19, 18, 255))

	st := a.Engine.Stats()
	rl.DrawText("Hourglass", int32(panelX), int32(panelY), 20, ColAccent)
	panelY += 30
	rl.DrawText(fmt.Sprintf("passed %d / %d", st.Passed(), st.Total), int32(panelX), int32(panelY), 14, ColText)
	panelY += 18
	rl.DrawText(fmt.Sprintf("sleeping %d  reseeds %d", st.Sleeping, st.Reseeds), int32(panelX), int32(panelY), 14, ColText)
	panelY += 30

	p := a.Engine.Config()
	changed := false
	for _, s := range sliders {
		rl.DrawText(s.label, int32(panelX), int32(panelY), 14, ColText)
		panelY += 18
		cur := float32(s.get(&p))
		next := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 90, Height: 20},
			"", "",
			cur, s.min, s.max,
		)
		rl.DrawText(fmt.Sprintf(s.format, cur), int32(panelX+panelWidth-84), int32(panelY+2), 14, ColSelect)
		if next != cur {
			if err := p.SetParam(s.param, float64(next)); err != nil {
				a.logger.Warn("set param", "name", s.param, "error", err)
			} else {
				changed = true
			}
		}
		panelY += 34
	}
	if changed {
		a.Engine.SetConfig(p)
	}

	if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(a.Countdown.Running(), "Stop", "Start")) {
		a.Countdown.Toggle()
	}
	if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset") {
		a.Countdown.Reset()
		a.Telemetry = a.Telemetry[:0]
	}
	panelY += 50

	a.DrawTelemetry(rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 32, Height: 80})
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}

type slider struct {
	label    string
	param    string
	format   string
	min, max float32
	get      func(p *config.Physics) float64
}

var sliders = []slider{
	{"Gravity", "gravity", "%.0f", 0, 6000, func(p *config.Physics) float64 { return p.Gravity }},
	{"Grain size", "radius_scale", "%.2f", 0.5, 2.5, func(p *config.Physics) float64 { return p.RadiusScale }},
	{"Grains", "particle_count", "%.0f", 1, 3000, func(p *config.Physics) float64 { return float64(p.ParticleCount) }},
	{"Jitter", "jitter", "%.0f", 0, 400, func(p *config.Physics) float64 { return p.Jitter }},
	{"Friction", "friction", "%.2f", 0, 1, func(p *config.Physics) float64 { return p.Friction }},
}
