package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/unalkalkan/bookshelf/internal/prefs"
)

// Styles holds the lipgloss styles for one reader theme.
type Styles struct {
	Header lipgloss.Style
	Title  lipgloss.Style
	Body   lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
}

type palette struct {
	fg, bg, accent, muted string
}

var palettes = map[prefs.Theme]palette{
	prefs.ThemeLight: {fg: "#1f2328", bg: "#ffffff", accent: "#0969da", muted: "#656d76"},
	prefs.ThemeDark:  {fg: "#e6edf3", bg: "#0d1117", accent: "#58a6ff", muted: "#8b949e"},
	prefs.ThemeSepia: {fg: "#5b4636", bg: "#f4ecd8", accent: "#9c6b30", muted: "#8a7560"},
}

// stylesFor returns the styles of theme, falling back to light.
func stylesFor(theme prefs.Theme) Styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[prefs.ThemeLight]
	}
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)).Padding(0, 1),
		Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)).MarginBottom(1),
		Body:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.fg)).Background(lipgloss.Color(p.bg)),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)).Padding(0, 1),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#cf222e")).Padding(0, 1),
	}
}
