// Package terminal renders widget results for a terminal.
package terminal

import "github.com/charmbracelet/lipgloss"

var (
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
)

// Theme holds the styles used by a Renderer
type Theme struct {
	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Label      lipgloss.Style
	Value      lipgloss.Style
	MutedText  lipgloss.Style
	Score      lipgloss.Style
	WarningMsg lipgloss.Style
	ErrorMsg   lipgloss.Style
	Stale      lipgloss.Style
}

// DefaultTheme is the colored theme
func DefaultTheme() Theme {
	return Theme{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary),
		Subtitle: lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true),
		Label: lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true),
		Value: lipgloss.NewStyle(),
		MutedText: lipgloss.NewStyle().
			Foreground(Muted),
		Score: lipgloss.NewStyle().
			Foreground(Primary),
		WarningMsg: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),
		ErrorMsg: lipgloss.NewStyle().
			Foreground(Error).
			Bold(true),
		Stale: lipgloss.NewStyle().
			Foreground(Warning).
			Italic(true),
	}
}

// PlainTheme renders without any styling
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Title:      plain,
		Subtitle:   plain,
		Label:      plain,
		Value:      plain,
		MutedText:  plain,
		Score:      plain,
		WarningMsg: plain,
		ErrorMsg:   plain,
		Stale:      plain,
	}
}
