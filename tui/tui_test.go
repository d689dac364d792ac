package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/webgraph/graph"
	"github.com/TFMV/webgraph/interaction"
	"github.com/TFMV/webgraph/models"
	"github.com/TFMV/webgraph/widget"
)

func newModel(t *testing.T) (Model, models.Handle, models.Handle) {
	t.Helper()
	w := widget.New(models.Size{Width: 400, Height: 200})
	a := w.AddNode(models.Position{X: 0, Y: 0}, models.Size{Width: 50, Height: 50}, models.NodeProperties{Label: "alpha"})
	b := w.AddNode(models.Position{X: 300, Y: 100}, models.Size{Width: 50, Height: 50}, models.NodeProperties{Label: "beta"})

	m := New(w, Options{FrameRate: 30})
	require.NoError(t, m.Err())
	t.Cleanup(m.Close)
	return m, a, b
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// motion reports the terminal cell (x, y); the grid starts at column 1, row 2
func motion(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone}
}

func center(t *testing.T, m Model, h models.Handle) models.Position {
	t.Helper()
	var pos models.Position
	m.widget.View(func(g *graph.Graph, _ models.Handle, _ bool) {
		n, ok := g.Node(h)
		require.True(t, ok)
		pos = n.Center()
	})
	return pos
}

func TestFrameDrawsGrid(t *testing.T) {
	m, _, _ := newModel(t)
	assert.Equal(t, 33*time.Millisecond+333333*time.Nanosecond, m.interval)

	m, cmd := update(t, m, frameMsg(time.Now()))
	assert.NotNil(t, cmd, "ticks keep coming")

	cols, rows := m.grid.Dimensions()
	assert.Equal(t, 40, cols)
	assert.Equal(t, 10, rows)
	assert.Equal(t, '+', m.grid.At(0, 0))
	assert.Equal(t, '░', m.grid.At(1, 1))

	view := m.View()
	assert.Contains(t, view, "webgraph")
	assert.Contains(t, view, "2 nodes · 0 edges · idle")
}

func TestMouseHoverAndDrag(t *testing.T) {
	m, a, _ := newModel(t)

	// cell (2, 3) is grid cell (1, 1), logical (15, 30)
	m, _ = update(t, m, motion(2, 3))
	assert.Equal(t, interaction.Hovering, m.widget.State())
	assert.Contains(t, m.View(), "alpha (0 edges)")

	m, _ = update(t, m, tea.MouseMsg{X: 2, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, interaction.Dragging, m.widget.State())

	// grid cell (20, 5) is logical (205, 110)
	m, _ = update(t, m, motion(21, 7))
	assert.Equal(t, models.Position{X: 205, Y: 110}, center(t, m, a))

	m, _ = update(t, m, tea.MouseMsg{X: 21, Y: 7, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.Equal(t, interaction.Hovering, m.widget.State())
}

func TestRightButtonDoesNotDrag(t *testing.T) {
	m, _, _ := newModel(t)

	m, _ = update(t, m, tea.MouseMsg{X: 2, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonRight})
	assert.Equal(t, interaction.Idle, m.widget.State())
}

func TestLeavingGridEndsDrag(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{"blur", tea.BlurMsg{}},
		{"title row", motion(2, 0)},
		{"past the edge", motion(60, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newModel(t)
			m, _ = update(t, m, motion(2, 3))
			m, _ = update(t, m, tea.MouseMsg{X: 2, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
			require.Equal(t, interaction.Dragging, m.widget.State())

			m, _ = update(t, m, tt.msg)
			assert.Equal(t, interaction.Idle, m.widget.State())
			assert.False(t, m.inside)
		})
	}
}

func TestWindowSizeFitsSurface(t *testing.T) {
	m, _, _ := newModel(t)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 82, Height: 24})
	cw, ch := m.grid.CellSize()
	assert.Equal(t, 5.0, cw)
	assert.Equal(t, 10.0, ch)

	m, _ = update(t, m, frameMsg(time.Now()))
	cols, rows := m.grid.Dimensions()
	assert.Equal(t, 80, cols)
	assert.Equal(t, 20, rows)

	lines := strings.Split(m.View(), "\n")
	assert.Len(t, lines, 1+rows+2+1)

	// too small to fit is ignored
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 2, Height: 3})
	cw, _ = m.grid.CellSize()
	assert.Equal(t, 5.0, cw)
}

func TestQuitKeys(t *testing.T) {
	m, _, _ := newModel(t)

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		_, cmd := update(t, m, key)
		require.NotNil(t, cmd, key.String())
		assert.Equal(t, tea.QuitMsg{}, cmd())
	}
}

func TestCloseStopsFrames(t *testing.T) {
	m, a, b := newModel(t)
	require.NoError(t, m.widget.AddEdge(a, b, models.EdgeProperties{Weight: 50}))
	before := center(t, m, a)

	m.Close()
	m.Close()
	m, _ = update(t, m, frameMsg(time.Now()))

	assert.Equal(t, before, center(t, m, a))
	assert.Equal(t, ' ', m.grid.At(1, 1), "nothing was drawn")
}
