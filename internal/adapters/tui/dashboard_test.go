package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/adapters/terminal"
	"tessera/internal/application/commands"
	"tessera/internal/application/engine"
	"tessera/internal/domain"
)

// groundEngine answers ground computations; other methods are unused
type groundEngine struct {
	commands.Engine
	stale     bool
	err       error
	forced    []bool
	changed   []string
	recompute bool
}

func (g *groundEngine) ComputeGroundWidgets(_ context.Context, opts engine.ComputeOptions) (domain.GroundResponse, error) {
	g.forced = append(g.forced, opts.Force)
	if g.err != nil {
		return domain.GroundResponse{}, g.err
	}
	res := domain.NewWidgetResult(domain.WidgetConfig{ID: "books", Name: "Books", Type: domain.WidgetTypeAggregate})
	res.Values = domain.NewFieldValues()
	res.Values.Set("count", 2.0)
	return domain.GroundResponse{Widgets: []domain.WidgetResult{res}, IsStale: g.stale}, nil
}

func (g *groundEngine) HandleFilesChanged(_ context.Context, paths []string, opts engine.ChangeOptions) (domain.ChangeReport, error) {
	g.changed = paths
	g.recompute = opts.Recompute
	return domain.ChangeReport{InvalidatedWidgets: []domain.InvalidatedWidget{{WidgetID: "books", Entries: 1}}}, nil
}

func newDashboard(e commands.Engine, changes <-chan []string) *Dashboard {
	return NewDashboard(context.Background(), e, changes, terminal.PlainTheme())
}

func TestDashboard_LoadRendersWidgets(t *testing.T) {
	e := &groundEngine{}
	m := newDashboard(e, nil)
	assert.Equal(t, DashboardLoading, m.State())

	msg := m.load(false)()
	_, cmd := m.Update(msg)

	assert.Nil(t, cmd)
	assert.Equal(t, DashboardReady, m.State())
	assert.Contains(t, m.View(), "Books")
	assert.Contains(t, m.View(), "count")
	assert.Equal(t, []bool{false}, e.forced)
}

func TestDashboard_StaleResponsePolls(t *testing.T) {
	m := newDashboard(&groundEngine{stale: true}, nil)

	_, cmd := m.Update(m.load(false)())

	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "refreshing in background")
}

func TestDashboard_ForceKey(t *testing.T) {
	e := &groundEngine{}
	m := newDashboard(e, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	require.NotNil(t, cmd)
	assert.Equal(t, DashboardLoading, m.State())

	m.Update(m.load(true)())
	assert.Equal(t, []bool{true}, e.forced)
}

func TestDashboard_Error(t *testing.T) {
	m := newDashboard(&groundEngine{err: errors.New("engine not initialized")}, nil)

	m.Update(m.load(false)())

	assert.Equal(t, DashboardError, m.State())
	assert.Contains(t, m.View(), "engine not initialized")
}

func TestDashboard_FileChangesInvalidateAndReload(t *testing.T) {
	e := &groundEngine{}
	changes := make(chan []string, 1)
	m := newDashboard(e, changes)

	changes <- []string{"books/a.md"}
	msg := m.listen()()

	changed, ok := msg.(FilesChangedMsg)
	require.True(t, ok)
	assert.Equal(t, []string{"books/a.md"}, e.changed)
	assert.True(t, e.recompute)

	_, cmd := m.Update(changed)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "invalidated 1 widget")
}

func TestDashboard_QuitKey(t *testing.T) {
	m := newDashboard(&groundEngine{}, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
