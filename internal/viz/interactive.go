package viz

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/sand"
)

var presetInfo = map[string]string{
	"classic":  "the default glass",
	"fine":     "many small grains",
	"coarse":   "few large grains",
	"molasses": "slow heavy flow",
	"stress":   "thousands of grains",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// configFields are the values editable before a run starts.
var configFields = []string{"duration", "particle_count", "radius_scale", "gravity", "jitter"}

var fieldSteps = map[string]float64{
	"duration":       5,
	"particle_count": 50,
	"radius_scale":   0.1,
	"gravity":        100,
	"jitter":         5,
}

type model struct {
	state, cursor int
	presets       []string
	selected      string
	cfg           *config.Config
	fieldCursor   int
	editing       bool
	editBuf       string
	width, height int
	logger        *slog.Logger
	liveModel     Model
}

func NewInteractiveApp(logger *slog.Logger) *model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &model{
		state:   stateMenu,
		presets: config.ListPresets(),
		width:   80,
		height:  24,
		logger:  logger,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.state == stateSim {
			m.liveModel.fit(msg.Width, msg.Height)
		}
		return m, nil
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.presets[m.cursor]
		m.cfg = config.GetPreset(m.selected)
		m.state, m.fieldCursor = stateConfig, 0
	}
	return m, nil
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	field := configFields[m.fieldCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%f", &val); err == nil {
				m.setField(field, val)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case "down", "j":
		if m.fieldCursor < len(configFields)-1 {
			m.fieldCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, fmt.Sprintf("%g", m.field(field))
	case "s":
		cmd := m.start()
		return m, cmd
	case "left", "h":
		m.setField(field, m.field(field)-fieldSteps[field])
	case "right", "l":
		m.setField(field, m.field(field)+fieldSteps[field])
	}
	return m, nil
}

func (m *model) field(name string) float64 {
	if name == "duration" {
		return m.cfg.Timer.Duration
	}
	return m.cfg.Physics.GetParams()[name]
}

func (m *model) setField(name string, v float64) {
	if name == "duration" {
		m.cfg.Timer.Duration = max(v, 1)
		return
	}
	if err := m.cfg.Physics.SetParam(name, v); err != nil {
		m.logger.Warn("set param", "name", name, "error", err)
	}
}

func (m *model) start() tea.Cmd {
	m.liveModel = NewModel(m.selected, m.cfg, sand.WithLogger(m.logger))
	m.liveModel.fit(m.width, m.height)
	m.liveModel.countdown.Start()
	m.state = stateSim
	return m.liveModel.Init()
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

var (
	menuTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e8b04a")).Bold(true)
	menuSub    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd27f")).Bold(true)
	menuActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuDesc   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	menuIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuKeyCap = lipgloss.NewStyle().Foreground(lipgloss.Color("#d9a066")).Bold(true)
)

func keyHints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(menuKeyCap.Render(pairs[i]) + menuIdle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("SANDGLASS") + "\n    " + menuSub.Render("granular hourglass") + "\n    " + menuSub.Render("─────────────────────────") + "\n\n")
	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", menuCursor.Render("▸"), menuActive.Render(fmt.Sprintf("%-10s", name)), menuDesc.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", menuIdle.Render(fmt.Sprintf("  %-10s", name)), menuIdle.Render(desc)))
		}
	}
	b.WriteString("\n    " + keyHints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render(strings.ToUpper(m.selected)) + "\n    " + menuSub.Render(presetInfo[m.selected]) + "\n    " + menuSub.Render("─────────────────────────") + "\n\n")
	for i, name := range configFields {
		valStr := fmt.Sprintf("%8.2f", m.field(name))
		if m.editing && i == m.fieldCursor {
			valStr = fmt.Sprintf("%8s", m.editBuf+"_")
		}
		if i == m.fieldCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", menuCursor.Render("▸"), menuActive.Render(fmt.Sprintf("%-16s", name)), menuDesc.Bold(true).Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", menuIdle.Render(fmt.Sprintf("  %-16s", name)), menuIdle.Render(valStr)))
		}
	}
	b.WriteString("\n    " + keyHints("j/k", "select", "h/l", "adjust", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive opens the preset picker and then the live hourglass.
func RunInteractive(logger *slog.Logger) error {
	_, err := tea.NewProgram(NewInteractiveApp(logger), tea.WithAltScreen()).Run()
	return err
}

// RunLive skips the picker and runs cfg directly.
func RunLive(name string, cfg *config.Config, logger *slog.Logger) error {
	m := NewModel(name, cfg, sand.WithLogger(logger))
	m.countdown.Start()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
