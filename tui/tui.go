// Package tui hosts a widget in the terminal.
//
// The surface is a character grid inside a rounded border. Mouse reports
// become pointer events, focus loss ends any drag, and program ticks drive
// the frame scheduler.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TFMV/webgraph/graph"
	"github.com/TFMV/webgraph/logging"
	"github.com/TFMV/webgraph/models"
	"github.com/TFMV/webgraph/render"
	"github.com/TFMV/webgraph/widget"
)

var (
	colorAccent = lipgloss.Color("12")
	colorDim    = lipgloss.Color("8")
	colorHover  = lipgloss.Color("11")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
	statusStyle = lipgloss.NewStyle().Foreground(colorDim)
	hoverStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorHover)
)

// Screen layout around the grid: title and top border above, left border
// beside, bottom border and status line below.
const (
	gridTop    = 2
	gridLeft   = 1
	chromeRows = 4
	chromeCols = 2
)

// Options configures the terminal host
type Options struct {
	Title     string
	FrameRate int
}

type frameMsg time.Time

// frames is a widget.FrameScheduler fired from the program loop
type frames struct {
	mu sync.Mutex
	fn func()
}

func (f *frames) Schedule(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.fn = nil
	}
}

func (f *frames) fire() {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Model is the bubbletea model around one widget
type Model struct {
	widget   *widget.Widget
	grid     *render.Grid
	bus      *widget.EventBus
	frames   *frames
	handle   *widget.Handle
	interval time.Duration
	title    string
	inside   bool
}

// New binds w to a character grid. Call Close once the program exits.
func New(w *widget.Widget, opts Options) Model {
	if opts.Title == "" {
		opts.Title = "webgraph"
	}
	rate := opts.FrameRate
	if rate <= 0 {
		rate = widget.DefaultFrameRate
	}

	m := Model{
		widget:   w,
		grid:     render.NewGrid(w.Size(), render.DefaultCellWidth, render.DefaultCellHeight),
		bus:      widget.NewEventBus(),
		frames:   &frames{},
		interval: time.Second / time.Duration(rate),
		title:    opts.Title,
	}
	m.handle = w.Run(widget.Host{
		Events:  m.bus,
		Frames:  m.frames,
		Surface: m.grid,
		Offset:  m.origin,
	})
	return m
}

// Err reports a failed bind
func (m Model) Err() error {
	return m.handle.Err()
}

// Close releases the widget
func (m Model) Close() {
	m.handle.Release()
}

// origin is the grid's top-left corner in logical units
func (m Model) origin() models.Position {
	cw, ch := m.grid.CellSize()
	return models.Position{X: gridLeft * cw, Y: gridTop * ch}
}

// insideGrid reports whether a terminal cell lies on the grid
func (m Model) insideGrid(x, y int) bool {
	cols, rows := m.grid.Dimensions()
	return x >= gridLeft && x < gridLeft+cols && y >= gridTop && y < gridTop+rows
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frames.fire()
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.MouseMsg:
		m.mouse(msg)

	case tea.BlurMsg:
		m.leave()

	case tea.WindowSizeMsg:
		m.fit(msg.Width, msg.Height)
	}
	return m, nil
}

// mouse turns a terminal cell report into pointer events at the cell center
func (m *Model) mouse(msg tea.MouseMsg) {
	if !m.insideGrid(msg.X, msg.Y) {
		m.leave()
		return
	}
	m.inside = true

	cw, ch := m.grid.CellSize()
	x := (float64(msg.X) + 0.5) * cw
	y := (float64(msg.Y) + 0.5) * ch

	switch msg.Action {
	case tea.MouseActionMotion:
		m.bus.Publish(widget.PointerEvent{Kind: widget.PointerMove, X: x, Y: y})
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		// a press is not always preceded by a motion report
		m.bus.Publish(widget.PointerEvent{Kind: widget.PointerMove, X: x, Y: y})
		m.bus.Publish(widget.PointerEvent{Kind: widget.PointerDown, X: x, Y: y})
	case tea.MouseActionRelease:
		m.bus.Publish(widget.PointerEvent{Kind: widget.PointerUp, X: x, Y: y})
	}
}

func (m *Model) leave() {
	if !m.inside {
		return
	}
	m.inside = false
	m.bus.Publish(widget.PointerEvent{Kind: widget.PointerLeave})
}

// fit scales the cells so the whole surface fits the terminal
func (m *Model) fit(width, height int) {
	cols, rows := width-chromeCols, height-chromeRows
	if cols < 1 || rows < 1 {
		return
	}
	size := m.widget.Size()
	m.grid.SetCellSize(size.Width/float64(cols), size.Height/float64(rows))
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(frameStyle.Render(strings.Join(m.grid.Lines(), "\n")))
	b.WriteString("\n")
	b.WriteString(m.status())
	return b.String()
}

func (m Model) status() string {
	var label string
	var nodes, edges int
	m.widget.View(func(g *graph.Graph, hover models.Handle, hovered bool) {
		nodes, edges = g.NodeCount(), g.EdgeCount()
		if !hovered {
			return
		}
		if n, ok := g.Node(hover); ok {
			label = n.Properties.Label
			if label == "" {
				label = hover.String()
			}
			label = fmt.Sprintf("%s (%d edges)", label, g.Degree(hover))
		}
	})

	line := statusStyle.Render(fmt.Sprintf("%d nodes · %d edges · %s · q quit", nodes, edges, m.widget.State()))
	if label != "" {
		line = hoverStyle.Render(label) + "  " + line
	}
	return line
}

// Run shows w in the terminal until the user quits or ctx is cancelled
func Run(ctx context.Context, w *widget.Widget, opts Options) error {
	m := New(w, opts)
	defer m.Close()
	if err := m.Err(); err != nil {
		return err
	}

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	logger := logging.FromContext(ctx)
	logger.Debug("terminal host started", "title", m.title)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			logger.Debug("terminal host cancelled")
			return nil
		}
		return err
	}
	logger.Debug("terminal host stopped")
	return nil
}
