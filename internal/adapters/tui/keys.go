package tui

import "github.com/charmbracelet/bubbles/key"

// DashboardKeyMap defines the dashboard key bindings
type DashboardKeyMap struct {
	Refresh key.Binding
	Force   key.Binding
	Quit    key.Binding
}

// DashboardKeys are the default dashboard key bindings
var DashboardKeys = DashboardKeyMap{
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Force: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "recompute"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap
func (k DashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Force, k.Quit}
}

// FullHelp implements help.KeyMap
func (k DashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
