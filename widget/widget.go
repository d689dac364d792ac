// Package widget wires the graph, the layout, the pointer controller and the
// projector into one embeddable component.
//
// A Widget is driven from outside: a frame scheduler calls OnTick once per
// animation frame and an event source calls OnPointerEvent for each pointer
// event. Every entry point takes the widget guard for its whole duration.
// With DispatchDrop (the default) a callback that finds the guard held is
// dropped; with DispatchSerialize it waits for its turn. Pointer up and leave
// are never dropped: a busy widget applies them as soon as the guard is free.
package widget

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/TFMV/webgraph/graph"
	"github.com/TFMV/webgraph/interaction"
	"github.com/TFMV/webgraph/logging"
	"github.com/TFMV/webgraph/metrics"
	"github.com/TFMV/webgraph/models"
	"github.com/TFMV/webgraph/physics"
	"github.com/TFMV/webgraph/render"
)

var (
	// ErrMissingSurface is reported by Run when the host has no surface
	ErrMissingSurface = errors.New("missing drawing surface")
	// ErrReleased is returned by operations on a released widget
	ErrReleased = errors.New("widget released")
	// ErrAlreadyRunning is reported by a second Run before Release
	ErrAlreadyRunning = errors.New("widget already running")
)

// Dispatch selects what happens to a callback that arrives while another one
// holds the widget.
type Dispatch int

const (
	// DispatchDrop drops the late callback
	DispatchDrop Dispatch = iota
	// DispatchSerialize blocks the late callback until the widget is free
	DispatchSerialize
)

// String implements fmt.Stringer
func (d Dispatch) String() string {
	if d == DispatchSerialize {
		return "serialize"
	}
	return "drop"
}

// ParseDispatch parses "drop" or "serialize"
func ParseDispatch(s string) (Dispatch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return DispatchDrop, nil
	case "serialize":
		return DispatchSerialize, nil
	default:
		return DispatchDrop, fmt.Errorf("unknown dispatch policy %q", s)
	}
}

// Option configures a Widget
type Option func(*Widget)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(w *Widget) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithLayout replaces the relaxation layout
func WithLayout(l physics.Layout) Option {
	return func(w *Widget) {
		if l != nil {
			w.layout = l
		}
	}
}

// WithLayoutOptions configures the default relaxation layout
func WithLayoutOptions(opts physics.Options) Option {
	return func(w *Widget) {
		w.layout = physics.NewRelaxation(opts)
	}
}

// WithDispatch sets the reentrancy policy
func WithDispatch(d Dispatch) Option {
	return func(w *Widget) {
		w.dispatch = d
	}
}

// WithPixelRatio sets the initial device pixel ratio
func WithPixelRatio(ratio float64) Option {
	return func(w *Widget) {
		if ratio > 0 {
			w.ratio = ratio
		}
	}
}

// WithMetrics records activity in c
func WithMetrics(c *metrics.Collector) Option {
	return func(w *Widget) {
		w.metrics = c
	}
}

// Widget is an interactive graph bound to at most one surface
type Widget struct {
	mu sync.Mutex

	size       models.Size
	graph      *graph.Graph
	layout     physics.Layout
	controller *interaction.Controller
	projector  *render.Projector

	dispatch Dispatch
	ratio    float64
	logger   *log.Logger
	metrics  *metrics.Collector

	surface render.Surface
	offset  func() models.Position

	running  bool
	released atomic.Bool
	// pending is a deferred pointer up or leave, see postpone
	pending atomic.Int32
}

// New creates an empty widget for a surface of the given logical size
func New(size models.Size, opts ...Option) *Widget {
	w := &Widget{
		size:       size,
		graph:      graph.New(),
		layout:     physics.NewRelaxation(physics.DefaultOptions()),
		controller: interaction.New(),
		projector:  render.NewProjector(),
		ratio:      1,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.controller.OnSelect = func(h models.Handle) {
		w.logger.Debug("drag started", "node", h)
	}
	return w
}

// Size returns the logical surface size
func (w *Widget) Size() models.Size {
	return w.size
}

// AddNode adds a node and returns its handle
func (w *Widget) AddNode(pos models.Position, size models.Size, props models.NodeProperties) models.Handle {
	w.mu.Lock()
	defer w.unlock()

	return w.graph.AddNode(pos, size, props)
}

// AddEdge connects a and b with the given rest length
func (w *Widget) AddEdge(a, b models.Handle, props models.EdgeProperties) error {
	w.mu.Lock()
	defer w.unlock()

	return w.graph.AddEdge(a, b, props)
}

// RemoveNode deletes h, its edges and any hover or drag reference to it
func (w *Widget) RemoveNode(h models.Handle) error {
	w.mu.Lock()
	defer w.unlock()

	if err := w.graph.RemoveNode(h); err != nil {
		return err
	}
	w.controller.Forget(h)
	w.logger.Debug("node removed", "node", h)
	return nil
}

// RemoveEdge deletes the edge between a and b
func (w *Widget) RemoveEdge(a, b models.Handle) error {
	w.mu.Lock()
	defer w.unlock()

	return w.graph.RemoveEdge(a, b)
}

// View calls fn with the graph and the hover target while holding the
// widget. fn must not retain g or call back into the widget.
func (w *Widget) View(fn func(g *graph.Graph, hover models.Handle, hovered bool)) {
	w.mu.Lock()
	defer w.unlock()

	hover, ok := w.controller.Hovering()
	fn(w.graph, hover, ok)
}

// State returns the interaction state
func (w *Widget) State() interaction.State {
	w.mu.Lock()
	defer w.unlock()

	return w.controller.State()
}

// SetPixelRatio changes the device pixel ratio used from the next frame on
func (w *Widget) SetPixelRatio(ratio float64) {
	if ratio <= 0 {
		return
	}
	w.mu.Lock()
	defer w.unlock()

	w.ratio = ratio
}

// Render relaxes the layout ticks times and draws the result onto s. It is
// meant for headless output and needs no Run.
func (w *Widget) Render(s render.Surface, ticks int) error {
	w.mu.Lock()
	defer w.unlock()

	if w.released.Load() {
		return ErrReleased
	}
	for i := 0; i < ticks; i++ {
		w.layout.Step(w.graph, w.controller.Pinned)
	}

	hover, ok := w.controller.Hovering()
	return w.projector.Project(s, w.graph, hover, ok, w.ratio)
}

// OnTick relaxes the layout once and draws a frame
func (w *Widget) OnTick() {
	if !w.acquire("tick") {
		return
	}
	defer w.unlock()

	start := time.Now()
	w.layout.Step(w.graph, w.controller.Pinned)

	if w.surface != nil {
		hover, ok := w.controller.Hovering()
		if err := w.projector.Project(w.surface, w.graph, hover, ok, w.ratio); err != nil {
			w.metrics.ObserveRenderError()
			w.logger.Warn("frame not presented", "err", err)
		}
	}

	w.metrics.ObserveTick(time.Since(start))
}

// OnPointerEvent routes a pointer event to the controller. The event
// coordinates are screen coordinates; the surface offset is subtracted.
func (w *Widget) OnPointerEvent(ev PointerEvent) {
	kind := ev.Kind.String()
	if ev.Kind.ends() && w.dispatch == DispatchDrop {
		if !w.tryAcquire() {
			w.postpone(ev.Kind)
			return
		}
	} else if !w.acquire(kind) {
		return
	}
	defer w.unlock()

	var off models.Position
	if w.offset != nil {
		off = w.offset()
	}
	pos := models.Position{X: ev.X - off.X, Y: ev.Y - off.Y}

	switch ev.Kind {
	case PointerMove:
		w.controller.PointerMove(w.graph, pos)
	case PointerDown:
		w.controller.PointerDown()
	case PointerUp:
		w.controller.PointerUp()
	case PointerLeave:
		w.controller.PointerLeave()
	}

	w.metrics.ObserveEvent(kind)
}

// acquire takes the guard according to the dispatch policy. It reports
// false when the call must not run; on true the caller owns w.mu.
func (w *Widget) acquire(kind string) bool {
	if w.released.Load() {
		return false
	}

	if w.dispatch == DispatchSerialize {
		w.mu.Lock()
	} else if !w.mu.TryLock() {
		w.metrics.ObserveDropped(kind)
		w.logger.Debug("widget busy, call dropped", "kind", kind)
		return false
	}

	// Release may have won while we waited
	if w.released.Load() {
		w.mu.Unlock()
		return false
	}
	w.drain()
	return true
}

// tryAcquire takes the guard only if it is free
func (w *Widget) tryAcquire() bool {
	if w.released.Load() || !w.mu.TryLock() {
		return false
	}
	if w.released.Load() {
		w.mu.Unlock()
		return false
	}
	w.drain()
	return true
}

// unlock releases the guard, then applies a pointer up or leave that was
// postponed while it was held.
func (w *Widget) unlock() {
	w.mu.Unlock()
	for w.pending.Load() != 0 && w.tryAcquire() {
		w.mu.Unlock()
	}
}

// postpone records a pointer up or leave that found the widget busy. A leave
// overrides an up since it also ends the drag.
func (w *Widget) postpone(kind PointerKind) {
	code := int32(kind)
	for {
		old := w.pending.Load()
		if old == int32(PointerLeave) || w.pending.CompareAndSwap(old, code) {
			break
		}
	}
	w.logger.Debug("widget busy, event deferred", "kind", kind)

	// the holder may have released the guard before the store
	if w.tryAcquire() {
		w.unlock()
	}
}

// drain applies a postponed event. The caller owns w.mu.
func (w *Widget) drain() {
	switch PointerKind(w.pending.Swap(0)) {
	case PointerUp:
		w.controller.PointerUp()
		w.metrics.ObserveEvent(PointerUp.String())
	case PointerLeave:
		w.controller.PointerLeave()
		w.metrics.ObserveEvent(PointerLeave.String())
	}
}
