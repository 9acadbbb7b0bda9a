package viz

import (
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/timer"
)

const (
	canvasCols      = 32
	canvasRows      = 32
	minCanvasRows   = 8
	statsWidth      = 45
	historyCapacity = 600
	frameDt         = 1.0 / 60

	// pxPerDot is how many container pixels one braille dot covers.
	pxPerDot = 4.0

	durationStep = 10.0
	gifPath      = "sandglass.gif"
)

// tunable lists the physics parameters the live view can adjust.
var tunable = []string{
	"damping",
	"friction",
	"gravity",
	"jitter",
	"max_release_per_frame",
	"particle_count",
	"radius_scale",
}

var integerParams = map[string]bool{
	"particle_count":        true,
	"max_release_per_frame": true,
}

var (
	canvasStyle      = lipgloss.NewStyle().Padding(1, 2)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(statsWidth)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model drives one hourglass: every tick advances the countdown and then
// steps the engine with the container sized to the canvas.
type Model struct {
	engine    *sand.Simulation
	countdown *timer.Countdown
	canvas    *Canvas
	name      string
	initial   config.Physics
	selected  int
	passed    []float64
	released  []float64
	frame     int
	recording bool
	frames    []*image.Paletted
	showHelp  bool
	status    string
}

// NewModel builds a live view for cfg. The countdown starts stopped.
func NewModel(name string, cfg *config.Config, opts ...sand.Option) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return Model{
		engine:    sand.New(cfg.Physics, opts...),
		countdown: timer.NewCountdown(cfg.Timer.Duration),
		canvas:    NewCanvas(canvasCols, canvasRows),
		name:      name,
		initial:   cfg.Physics.Sanitize(),
		passed:    make([]float64, 0, historyCapacity),
		released:  make([]float64, 0, historyCapacity),
	}
}

func (m Model) Engine() *sand.Simulation    { return m.engine }
func (m Model) Countdown() *timer.Countdown { return m.countdown }
func (m Model) Canvas() *Canvas             { return m.canvas }

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.countdown.Toggle()
		case "r":
			m.reset()
		case "R":
			m.restoreParams()
		case "[":
			m.adjustDuration(-durationStep)
		case "]":
			m.adjustDuration(durationStep)
		case "tab":
			m.selected = (m.selected + 1) % len(tunable)
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "g":
			m.toggleRecording()
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		}
	case tea.WindowSizeMsg:
		m.fit(msg.Width, msg.Height)
	case TickMsg:
		m.step()
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

// fit resizes the canvas to the terminal. A braille dot is roughly square,
// so equal rows and columns give the 1:2 container the glass is drawn for.
func (m *Model) fit(w, h int) {
	rows := max(h-4, minCanvasRows)
	cols := rows
	if avail := w - statsWidth - 8; avail < cols {
		cols = max(avail, minCanvasRows/2)
	}
	if cols != m.canvas.Cols() || rows != m.canvas.Rows() {
		m.canvas.Resize(cols, rows)
	}
}

// input is the engine input for the current canvas and countdown.
func (m *Model) input() sand.Input {
	w, h := m.canvas.DotSize()
	return sand.Input{
		Width:    float64(w) * pxPerDot,
		Height:   float64(h) * pxPerDot,
		Progress: m.countdown.Progress(),
		Running:  m.countdown.Running(),
	}
}

func (m *Model) step() {
	m.countdown.Advance(frameDt)
	m.engine.Step(m.input(), frameDt)
	m.frame++

	st := m.engine.Stats()
	m.passed = appendCapped(m.passed, float64(st.Passed()))
	m.released = appendCapped(m.released, float64(st.Released))
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

// reset refills the countdown. The engine repacks on the next step because
// progress jumps back up while stopped.
func (m *Model) reset() {
	m.countdown.Reset()
	m.passed = m.passed[:0]
	m.released = m.released[:0]
	m.status = ""
}

func (m *Model) restoreParams() {
	m.engine.SetConfig(m.initial)
	m.status = "parameters restored"
}

func (m *Model) adjustDuration(delta float64) {
	d := math.Max(durationStep, m.countdown.Duration()+delta)
	m.countdown.SetDuration(d)
	m.passed = m.passed[:0]
	m.released = m.released[:0]
}

// adjustParam scales the selected parameter. Integer parameters always move
// by at least one.
func (m *Model) adjustParam(factor float64) {
	key := tunable[m.selected]
	p := m.engine.Config()
	val := p.GetParams()[key]
	next := val * factor
	if integerParams[key] && math.Round(next) == val {
		next = val + math.Copysign(1, factor-1)
	}
	if err := p.SetParam(key, next); err != nil {
		m.status = err.Error()
		return
	}
	m.engine.SetConfig(p)
}

func (m *Model) toggleRecording() {
	if !m.recording {
		m.recording = true
		m.frames = make([]*image.Paletted, 0)
		m.status = ""
		return
	}
	if err := saveGIF(gifPath, m.frames); err != nil {
		m.status = "gif: " + err.Error()
	} else if len(m.frames) > 0 {
		m.status = fmt.Sprintf("saved %d frames to %s", len(m.frames), gifPath)
	}
	m.recording = false
	m.frames = nil
}

// draw renders the glass outline and every grain onto the canvas.
func (m *Model) draw() {
	m.canvas.Clear()
	geo := m.engine.Geometry()
	if geo.Width <= 0 || geo.Height <= 0 {
		return
	}

	left, right := geo.Outline()
	for _, wall := range [][4][2]float64{left, right} {
		for i := 1; i < len(wall); i++ {
			m.line(wall[i-1], wall[i])
		}
	}
	m.line(left[0], right[0])
	m.line(left[3], right[3])

	for _, g := range m.engine.Grains() {
		m.canvas.Plot(toDot(g.X), toDot(g.Y))
	}
}

func (m *Model) line(a, b [2]float64) {
	m.canvas.Segment(toDot(a[0]), toDot(a[1]), toDot(b[0]), toDot(b[1]))
}

func toDot(px float64) int { return int(math.Floor(px / pxPerDot)) }

func (m Model) statusLine() string {
	switch {
	case m.recording:
		return StatusRecording.Render("● REC")
	case m.countdown.Running():
		return StatusRunning.Render(AnimatedSpinner(m.frame/4) + " RUNNING")
	case m.countdown.Done():
		return StatusPaused.Render("DONE")
	}
	return StatusPaused.Render("PAUSED")
}

// View renders the TUI interface.
func (m Model) View() string {
	theme := CurrentTheme
	sandStyle := lipgloss.NewStyle().Foreground(theme.Sand)
	canvasView := canvasStyle.Render(sandStyle.Render(strings.TrimRight(m.canvas.String(), "\n")))

	st := m.engine.Stats()
	var s strings.Builder
	s.WriteString(GradientText(strings.ToUpper(m.name), theme.Accent, theme.Sand) + "\n")
	s.WriteString(m.statusLine() + "\n\n")

	s.WriteString(labelStyle.Render("Remaining") + valueStyle.Render(fmt.Sprintf("%.1fs / %.0fs", m.countdown.Remaining(), m.countdown.Duration())) + "\n")
	s.WriteString(labelStyle.Render("") + ProgressBar(m.countdown.Progress(), 24) + "\n")
	s.WriteString(labelStyle.Render("Passed") + valueStyle.Render(fmt.Sprintf("%d / %d", st.Passed(), st.Total)) + "\n")
	s.WriteString(labelStyle.Render("Sleeping") + valueStyle.Render(fmt.Sprintf("%d", st.Sleeping)) + "\n")
	s.WriteString(labelStyle.Render("Reseeds") + valueStyle.Render(fmt.Sprintf("%d", st.Reseeds)) + "\n")
	s.WriteString(labelStyle.Render("Releases") + SparklineChart(m.released, 24) + "\n")

	if len(m.passed) > 1 {
		chart := asciigraph.Plot(m.passed, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Passed"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	phys := m.engine.Config()
	params := phys.GetParams()
	for i, k := range tunable {
		val := params[k]
		r := config.Ranges[k]
		ratio := 0.0
		if r.Max > r.Min {
			ratio = (val - r.Min) / (r.Max - r.Min)
		}
		filled := int(math.Max(0, math.Min(1, ratio)) * 10)
		bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", 10-filled) + "]"
		line := fmt.Sprintf("%-12s %s %.3g", shortName(k), bar, val)
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + Subtle.Render(line) + "\n")
		}
	}
	if m.status != "" {
		s.WriteString("\n" + KeyHint.Render(m.status) + "\n")
	}
	s.WriteString(helpStyle.Render(Separator(28) + "\nSP:Start/Stop R:Reset Q:Quit\nT:Theme G:Record ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Start/Stop the timer     ║
║  R        - Refill the top chamber   ║
║  Shift+R  - Restore parameters       ║
║  [ ]      - Duration -/+ 10s         ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

func shortName(k string) string {
	switch k {
	case "max_release_per_frame":
		return "max_release"
	case "particle_count":
		return "grains"
	}
	return k
}
