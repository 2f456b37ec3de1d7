// Package tui provides a live terminal dashboard of the ground widgets.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tessera/internal/adapters/terminal"
	"tessera/internal/application/commands"
	"tessera/internal/domain"
)

// StalePollInterval is how long the dashboard waits before re-reading a stale response
const StalePollInterval = time.Second

// DashboardState is the loading state of the dashboard
type DashboardState int

const (
	DashboardLoading DashboardState = iota
	DashboardReady
	DashboardError
)

var appStyle = lipgloss.NewStyle().Padding(1, 2)

// Dashboard shows the ground widgets and refreshes them as the vault changes
type Dashboard struct {
	ctx     context.Context
	engine  commands.Engine
	changes <-chan []string
	theme   terminal.Theme

	state   DashboardState
	spinner spinner.Model
	help    help.Model

	resp       domain.GroundResponse
	lastChange domain.ChangeReport
	err        error

	width  int
	height int
}

// NewDashboard creates a dashboard. changes may be nil; otherwise each batch of
// changed vault-relative paths invalidates the affected widgets.
func NewDashboard(ctx context.Context, engine commands.Engine, changes <-chan []string, theme terminal.Theme) *Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.Title

	return &Dashboard{
		ctx:     ctx,
		engine:  engine,
		changes: changes,
		theme:   theme,
		state:   DashboardLoading,
		spinner: s,
		help:    help.New(),
	}
}

// Init starts the first computation
func (m *Dashboard) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(false), m.listen())
}

// Update handles messages for the dashboard
func (m *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.state == DashboardLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case GroundLoadedMsg:
		m.resp = msg.Response
		m.err = nil
		m.state = DashboardReady
		if msg.Response.IsStale {
			return m, tea.Tick(StalePollInterval, func(time.Time) tea.Msg { return pollMsg{} })
		}
		return m, nil

	case GroundErrMsg:
		m.err = msg.Err
		m.state = DashboardError
		return m, nil

	case pollMsg:
		return m, m.load(false)

	case FilesChangedMsg:
		m.lastChange = msg.Report
		return m, tea.Batch(m.load(false), m.listen())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DashboardKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, DashboardKeys.Refresh):
			return m.reload(false)
		case key.Matches(msg, DashboardKeys.Force):
			return m.reload(true)
		}
	}
	return m, nil
}

func (m *Dashboard) reload(force bool) (tea.Model, tea.Cmd) {
	m.state = DashboardLoading
	return m, tea.Batch(m.spinner.Tick, m.load(force))
}

func (m *Dashboard) load(force bool) tea.Cmd {
	return func() tea.Msg {
		resp, err := commands.NewGroundCommand(m.engine, force).Execute(m.ctx)
		if err != nil {
			return GroundErrMsg{Err: err}
		}
		return GroundLoadedMsg{Response: resp}
	}
}

// listen waits for the next batch of changed paths
func (m *Dashboard) listen() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return func() tea.Msg {
		paths, ok := <-m.changes
		if !ok {
			return nil
		}
		report, err := commands.NewFilesChangedCommand(m.engine, paths, true).Execute(m.ctx)
		if err != nil {
			return GroundErrMsg{Err: err}
		}
		return FilesChangedMsg{Report: report}
	}
}

// View renders the dashboard
func (m *Dashboard) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("Ground widgets"))
	b.WriteString("\n\n")

	switch m.state {
	case DashboardLoading:
		b.WriteString(m.spinner.View())
		b.WriteString(" Computing...")
		b.WriteString("\n\n")
		if len(m.resp.Widgets) > 0 {
			b.WriteString(m.renderResponse())
		}

	case DashboardReady:
		b.WriteString(m.renderResponse())

	case DashboardError:
		b.WriteString(m.theme.ErrorMsg.Render("Error: "))
		if m.err != nil {
			b.WriteString(m.err.Error())
		}
		b.WriteString("\n")
	}

	if n := len(m.lastChange.InvalidatedWidgets); n > 0 {
		b.WriteString("\n")
		b.WriteString(m.theme.MutedText.Render(fmt.Sprintf("last change invalidated %d widget(s)", n)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(DashboardKeys))

	return appStyle.Render(b.String())
}

func (m *Dashboard) renderResponse() string {
	var buf bytes.Buffer
	terminal.NewRenderer(&buf, m.theme).Ground(m.resp)
	return buf.String()
}

// State returns the current loading state
func (m *Dashboard) State() DashboardState {
	return m.state
}

// Messages

// GroundLoadedMsg carries a computed ground response
type GroundLoadedMsg struct {
	Response domain.GroundResponse
}

// GroundErrMsg indicates a computation failed
type GroundErrMsg struct {
	Err error
}

// FilesChangedMsg reports the invalidation caused by changed vault files
type FilesChangedMsg struct {
	Report domain.ChangeReport
}

type pollMsg struct{}
