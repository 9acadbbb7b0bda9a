package viz

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/sandglass/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Physics.ParticleCount = 60
	cfg.Timer.Duration = 2
	return cfg
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelTickSizesContainerToCanvas(t *testing.T) {
	m := NewModel("classic", testConfig())
	m = update(t, m, TickMsg{})

	w, h := m.Canvas().DotSize()
	geo := m.Engine().Geometry()
	if geo.Width != float64(w)*pxPerDot || geo.Height != float64(h)*pxPerDot {
		t.Errorf("expected %vx%v container, got %vx%v", float64(w)*pxPerDot, float64(h)*pxPerDot, geo.Width, geo.Height)
	}
	if st := m.Engine().Stats(); st.Total != 60 || st.Inactive != 60 {
		t.Errorf("expected 60 grains in the top pile, got %+v", st)
	}
}

func TestModelDrawsGrains(t *testing.T) {
	m := NewModel("classic", testConfig())
	m = update(t, m, TickMsg{})

	g := m.Engine().Grains()[0]
	if !m.Canvas().Lit(toDot(g.X), toDot(g.Y)) {
		t.Error("expected a dot under the first grain")
	}
	geo := m.Engine().Geometry()
	if !m.Canvas().Lit(toDot(geo.CenterX-geo.NeckHalfWidth), toDot(geo.NeckTop)) {
		t.Error("expected the neck outline to be drawn")
	}
}

func TestModelSpaceStartsCountdown(t *testing.T) {
	m := NewModel("classic", testConfig())
	m = update(t, m, key(" "))
	if !m.Countdown().Running() {
		t.Fatal("expected countdown running after space")
	}
	for i := 0; i < 30; i++ {
		m = update(t, m, TickMsg{})
	}
	if got := m.Countdown().Remaining(); got > 1.6 {
		t.Errorf("expected about half a second elapsed, remaining %.3f", got)
	}
	if !m.Engine().Running() {
		t.Error("expected engine to see the running countdown")
	}
}

func TestModelResetRefillsTop(t *testing.T) {
	m := NewModel("classic", testConfig())
	m = update(t, m, key(" "))
	for i := 0; i < 150; i++ {
		m = update(t, m, TickMsg{})
	}
	if m.Engine().Stats().Passed() == 0 {
		t.Fatal("expected grains to pass during the countdown")
	}

	m = update(t, m, key("r"))
	m = update(t, m, TickMsg{})
	st := m.Engine().Stats()
	if st.Inactive != st.Total {
		t.Errorf("expected every grain back on top, got %d of %d", st.Inactive, st.Total)
	}
	if m.Countdown().Running() {
		t.Error("expected reset to stop the countdown")
	}
}

func TestModelAdjustParam(t *testing.T) {
	m := NewModel("classic", testConfig())
	for tunable[m.selected] != "gravity" {
		m = update(t, m, key("tab"))
	}
	before := m.Engine().Config().Gravity
	m = update(t, m, key("up"))
	if got := m.Engine().Config().Gravity; got != before*1.05 {
		t.Errorf("expected gravity %.2f, got %.2f", before*1.05, got)
	}

	for tunable[m.selected] != "max_release_per_frame" {
		m = update(t, m, key("tab"))
	}
	m.Engine().SetConfig(func() config.Physics {
		p := m.Engine().Config()
		p.MaxReleasePerFrame = 2
		return p
	}())
	m = update(t, m, key("down"))
	if got := m.Engine().Config().MaxReleasePerFrame; got != 1 {
		t.Errorf("expected integer parameter to step down by one, got %d", got)
	}

	m = update(t, m, key("R"))
	if got := m.Engine().Config().Gravity; got != before {
		t.Errorf("expected restored gravity %.2f, got %.2f", before, got)
	}
}

func TestModelFitKeepsCanvasTall(t *testing.T) {
	m := NewModel("classic", testConfig())
	m = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 44})
	if m.Canvas().Rows() != 40 || m.Canvas().Cols() != 40 {
		t.Errorf("expected 40x40 canvas, got %dx%d", m.Canvas().Cols(), m.Canvas().Rows())
	}

	m = update(t, m, tea.WindowSizeMsg{Width: 70, Height: 44})
	if m.Canvas().Cols() != 70-statsWidth-8 {
		t.Errorf("expected the canvas narrowed to fit, got %d", m.Canvas().Cols())
	}
}

func TestModelQuit(t *testing.T) {
	m := NewModel("classic", testConfig())
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestNextThemeCycles(t *testing.T) {
	defer SetTheme(CurrentTheme.Name)
	SetTheme("mono")
	NextTheme()
	if CurrentTheme.Name != "ocean" {
		t.Errorf("expected ocean after mono, got %s", CurrentTheme.Name)
	}
	SetTheme("dusk")
	NextTheme()
	if CurrentTheme.Name != "amber" {
		t.Errorf("expected wrap to amber, got %s", CurrentTheme.Name)
	}
}

func TestRasterize(t *testing.T) {
	c := NewCanvas(1, 1)
	c.Plot(1, 3)
	img := rasterize(c, themeColor(ThemeMono.Sand))
	if img.Bounds().Dx() != gifCharW || img.Bounds().Dy() != gifCharH {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if img.ColorIndexAt(gifCharW-1, gifCharH-1) != 1 {
		t.Error("expected the bottom-right dot painted")
	}
	if img.ColorIndexAt(0, 0) != 0 {
		t.Error("expected the top-left dot blank")
	}
}
