package viz

import "github.com/charmbracelet/lipgloss"

// Theme colours the glass, the sand and the side panel.
type Theme struct {
	Name   string
	Sand   lipgloss.Color
	Glass  lipgloss.Color
	Accent lipgloss.Color
	Text   lipgloss.Color
	Muted  lipgloss.Color
}

var (
	ThemeAmber = Theme{
		Name:   "amber",
		Sand:   lipgloss.Color("#e8b04a"),
		Glass:  lipgloss.Color("#6a7a8c"),
		Accent: lipgloss.Color("#ffd27f"),
		Text:   lipgloss.Color("#f5efe0"),
		Muted:  lipgloss.Color("#7a6f5a"),
	}

	ThemeDesert = Theme{
		Name:   "desert",
		Sand:   lipgloss.Color("#d9a066"),
		Glass:  lipgloss.Color("#8c6b4f"),
		Accent: lipgloss.Color("#ff9966"),
		Text:   lipgloss.Color("#fff5e6"),
		Muted:  lipgloss.Color("#8b6b5c"),
	}

	ThemeMono = Theme{
		Name:   "mono",
		Sand:   lipgloss.Color("#ffffff"),
		Glass:  lipgloss.Color("#888888"),
		Accent: lipgloss.Color("#cccccc"),
		Text:   lipgloss.Color("#ffffff"),
		Muted:  lipgloss.Color("#666666"),
	}

	ThemeOcean = Theme{
		Name:   "ocean",
		Sand:   lipgloss.Color("#9fd8e8"),
		Glass:  lipgloss.Color("#0077be"),
		Accent: lipgloss.Color("#ffd700"),
		Text:   lipgloss.Color("#e0f0ff"),
		Muted:  lipgloss.Color("#4488aa"),
	}

	ThemeDusk = Theme{
		Name:   "dusk",
		Sand:   lipgloss.Color("#ff9ff3"),
		Glass:  lipgloss.Color("#8b6b8c"),
		Accent: lipgloss.Color("#feca57"),
		Text:   lipgloss.Color("#fff5f5"),
		Muted:  lipgloss.Color("#8b6b8c"),
	}

	CurrentTheme = ThemeAmber

	Themes = []Theme{
		ThemeAmber,
		ThemeDesert,
		ThemeMono,
		ThemeOcean,
		ThemeDusk,
	}
)

// GetTheme returns a theme by name, falling back to amber.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeAmber
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	names := ThemeNames()
	for i, name := range names {
		if name == CurrentTheme.Name {
			SetTheme(names[(i+1)%len(names)])
			return
		}
	}
}
