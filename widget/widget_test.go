package widget

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/webgraph/graph"
	"github.com/TFMV/webgraph/interaction"
	"github.com/TFMV/webgraph/logging"
	"github.com/TFMV/webgraph/models"
	"github.com/TFMV/webgraph/render"
)

var (
	box     = models.Size{Width: 50, Height: 50}
	surface = models.Size{Width: 800, Height: 600}
)

// manualScheduler hands the frame callback to the test
type manualScheduler struct {
	mu        sync.Mutex
	fn        func()
	cancelled bool
}

func (s *manualScheduler) Schedule(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cancelled = true
	}
}

func (s *manualScheduler) frame() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn
}

// gateSurface blocks inside Clear until proceed is closed
type gateSurface struct {
	*render.Recorder
	entered chan struct{}
	proceed chan struct{}
}

func newGateSurface() *gateSurface {
	return &gateSurface{
		Recorder: render.NewRecorder(nil),
		entered:  make(chan struct{}, 1),
		proceed:  make(chan struct{}),
	}
}

func (s *gateSurface) Clear() {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.proceed
	s.Recorder.Clear()
}

func newPair(t *testing.T, opts ...Option) (*Widget, models.Handle, models.Handle) {
	t.Helper()
	w := New(surface, opts...)
	a := w.AddNode(models.Position{X: 0, Y: 0}, box, models.NodeProperties{Label: "a"})
	b := w.AddNode(models.Position{X: 200, Y: 0}, box, models.NodeProperties{Label: "b"})
	require.NoError(t, w.AddEdge(a, b, models.EdgeProperties{Weight: 100}))
	return w, a, b
}

func nodeState(t *testing.T, w *Widget, h models.Handle) models.NodeState {
	t.Helper()
	var out models.NodeState
	var found bool
	w.View(func(g *graph.Graph, _ models.Handle, _ bool) {
		var n *models.NodeState
		n, found = g.Node(h)
		if found {
			out = *n
		}
	})
	require.True(t, found, "node %s", h)
	return out
}

func TestDragWinsOverLayout(t *testing.T) {
	w, a, b := newPair(t)
	bus := NewEventBus()
	frames := &manualScheduler{}
	rec := render.NewRecorder(nil)

	h := w.Run(Host{Events: bus, Frames: frames, Surface: rec})
	require.NoError(t, h.Err())
	defer h.Release()

	bus.Publish(PointerEvent{Kind: PointerMove, X: 25, Y: 25})
	bus.Publish(PointerEvent{Kind: PointerDown})
	bus.Publish(PointerEvent{Kind: PointerMove, X: 400, Y: 300})
	assert.Equal(t, interaction.Dragging, w.State())

	beforeB := nodeState(t, w, b).Position
	frames.frame()()

	draggedA := nodeState(t, w, a)
	assert.Equal(t, models.Position{X: 400, Y: 300}, draggedA.Center())
	assert.NotEqual(t, beforeB, nodeState(t, w, b).Position)

	// the frame outlined the dragged node with the hover width
	var widths []float64
	for _, op := range rec.Ops() {
		if op.Kind == render.OpStroke {
			widths = append(widths, op.LineWidth)
		}
	}
	assert.Equal(t, []float64{render.HoverLineWidth, render.DefaultLineWidth}, widths)
}

func TestPointerOffset(t *testing.T) {
	w, a, _ := newPair(t)
	bus := NewEventBus()
	h := w.Run(Host{
		Events:  bus,
		Surface: render.NewRecorder(nil),
		Offset:  func() models.Position { return models.Position{X: 100, Y: 50} },
	})
	defer h.Release()

	// screen (110, 60) is surface (10, 10), inside a
	bus.Publish(PointerEvent{Kind: PointerMove, X: 110, Y: 60})

	var hover models.Handle
	var hovered bool
	w.View(func(_ *graph.Graph, h models.Handle, ok bool) { hover, hovered = h, ok })
	require.True(t, hovered)
	assert.Equal(t, a, hover)

	// screen (10, 10) is outside every node once the offset is applied
	bus.Publish(PointerEvent{Kind: PointerMove, X: 10, Y: 10})
	assert.Equal(t, interaction.Idle, w.State())
}

func TestLeaveEndsDrag(t *testing.T) {
	w, _, _ := newPair(t)
	h := w.Run(Host{Surface: render.NewRecorder(nil)})
	defer h.Release()

	w.OnPointerEvent(PointerEvent{Kind: PointerMove, X: 10, Y: 10})
	w.OnPointerEvent(PointerEvent{Kind: PointerDown})
	w.OnPointerEvent(PointerEvent{Kind: PointerLeave})
	w.OnPointerEvent(PointerEvent{Kind: PointerMove, X: 10, Y: 10})

	assert.Equal(t, interaction.Hovering, w.State())
}

func TestRemoveNodeClearsDrag(t *testing.T) {
	w, a, b := newPair(t)

	w.OnPointerEvent(PointerEvent{Kind: PointerMove, X: 10, Y: 10})
	w.OnPointerEvent(PointerEvent{Kind: PointerDown})
	require.Equal(t, interaction.Dragging, w.State())

	require.NoError(t, w.RemoveNode(a))
	assert.Equal(t, interaction.Idle, w.State())
	assert.ErrorIs(t, w.RemoveNode(a), graph.ErrNodeNotFound)
	assert.ErrorIs(t, w.RemoveEdge(a, b), graph.ErrEdgeNotFound)

	w.OnTick()
	assert.Equal(t, models.Position{X: 200}, nodeState(t, w, b).Position, "b lost its only edge")
}

func TestDispatchDropRejectsReentrantCalls(t *testing.T) {
	var buf bytes.Buffer
	w, a, _ := newPair(t, WithLogger(logging.New(&buf, log.DebugLevel)))

	before := nodeState(t, w, a).Position
	w.View(func(*graph.Graph, models.Handle, bool) {
		// still holding the widget
		w.OnTick()
		w.OnPointerEvent(PointerEvent{Kind: PointerMove, X: 10, Y: 10})
	})

	assert.Equal(t, before, nodeState(t, w, a).Position)
	assert.Equal(t, interaction.Idle, w.State())
	assert.Equal(t, 2, strings.Count(buf.String(), "call dropped"))

	// free again
	w.OnTick()
	assert.NotEqual(t, before, nodeState(t, w, a).Position)
}

func TestDispatchDropDefersPointerUp(t *testing.T) {
	var buf bytes.Buffer
	w, _, _ := newPair(t, WithLogger(logging.New(&buf, log.DebugLevel)))

	w.OnPointerEvent(PointerEvent{Kind: PointerMove, X: 10, Y: 10})
	w.OnPointerEvent(PointerEvent{Kind: PointerDown})
	require.Equal(t, interaction.Dragging, w.State())

	w.View(func(*graph.Graph, models.Handle, bool) {
		w.OnPointerEvent(PointerEvent{Kind: PointerUp})
	})

	assert.Equal(t, interaction.Hovering, w.State(), "up applied once the widget was free")
	assert.Contains(t, buf.String(), "event deferred")
	assert.NotContains(t, buf.String(), "call dropped")
}

func TestPointerUpDuringTickEndsDrag(t *testing.T) {
	w, a, _ := newPair(t)
	gate := newGateSurface()
	h := w.Run(Host{Surface: gate})
	defer h.Release()

	w.OnPointerEvent(PointerEvent{Kind: PointerMove, X: 10, Y: 10})
	w.OnPointerEvent(PointerEvent{Kind: PointerDown})

	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		w.OnTick()
	}()
	<-gate.entered

	// from another goroutine, as a websocket reader would
	upDone := make(chan struct{})
	go func() {
		defer close(upDone)
		w.OnPointerEvent(PointerEvent{Kind: PointerUp})
	}()
	<-upDone

	close(gate.proceed)
	<-tickDone

	assert.Equal(t, interaction.Hovering, w.State())
	_, dragging := w.controller.DragTarget()
	assert.False(t, dragging)

	// a is free to relax again
	before := nodeState(t, w, a).Position
	w.OnTick()
	assert.NotEqual(t, before, nodeState(t, w, a).Position)
}

func TestLeaveOverridesDeferredUp(t *testing.T) {
	w, _, _ := newPair(t)

	w.OnPointerEvent(PointerEvent{Kind: PointerMove, X: 10, Y: 10})
	w.OnPointerEvent(PointerEvent{Kind: PointerDown})

	w.View(func(*graph.Graph, models.Handle, bool) {
		w.OnPointerEvent(PointerEvent{Kind: PointerLeave})
		w.OnPointerEvent(PointerEvent{Kind: PointerUp})
	})

	assert.Equal(t, interaction.Idle, w.State())
}

func TestDispatchSerializeWaits(t *testing.T) {
	w, a, _ := newPair(t, WithDispatch(DispatchSerialize))
	before := nodeState(t, w, a).Position

	done := make(chan struct{})
	w.View(func(*graph.Graph, models.Handle, bool) {
		go func() {
			defer close(done)
			w.OnTick()
		}()

		select {
		case <-done:
			t.Error("tick ran while the widget was held")
		case <-time.After(20 * time.Millisecond):
		}
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serialized tick never ran")
	}
	assert.NotEqual(t, before, nodeState(t, w, a).Position)
}

func TestReleaseStopsCallbacks(t *testing.T) {
	w, a, _ := newPair(t)
	bus := NewEventBus()
	frames := &manualScheduler{}

	h := w.Run(Host{Events: bus, Frames: frames, Surface: render.NewRecorder(nil)})
	require.Equal(t, 1, bus.Len())
	tick := frames.frame()

	h.Release()
	h.Release()

	assert.Equal(t, 0, bus.Len())
	assert.True(t, frames.cancelled)

	// a callback that slipped past the unsubscribe is inert
	before := nodeState(t, w, a).Position
	tick()
	w.OnPointerEvent(PointerEvent{Kind: PointerMove, X: 10, Y: 10})

	assert.Equal(t, before, nodeState(t, w, a).Position)
	assert.Equal(t, interaction.Idle, w.State())
}

func TestReleaseWaitsForInFlightTick(t *testing.T) {
	w, _, _ := newPair(t)
	gate := newGateSurface()
	h := w.Run(Host{Surface: gate})

	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		w.OnTick()
	}()
	<-gate.entered

	released := make(chan struct{})
	go func() {
		defer close(released)
		h.Release()
	}()

	select {
	case <-released:
		t.Fatal("release returned during a tick")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate.proceed)
	<-tickDone
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("release never returned")
	}
}

func TestRunErrors(t *testing.T) {
	var buf bytes.Buffer
	w, a, _ := newPair(t, WithLogger(logging.New(&buf, log.InfoLevel)))

	h := w.Run(Host{})
	assert.ErrorIs(t, h.Err(), ErrMissingSurface)
	assert.Equal(t, 1, strings.Count(buf.String(), "no surface"))

	// the layout keeps running without a surface
	before := nodeState(t, w, a).Position
	w.OnTick()
	assert.NotEqual(t, before, nodeState(t, w, a).Position)

	again := w.Run(Host{Surface: render.NewRecorder(nil)})
	assert.ErrorIs(t, again.Err(), ErrAlreadyRunning)
	again.Release()

	h.Release()
	after := w.Run(Host{Surface: render.NewRecorder(nil)})
	assert.ErrorIs(t, after.Err(), ErrReleased)
}

func TestPixelRatio(t *testing.T) {
	w, _, _ := newPair(t, WithPixelRatio(2))
	rec := render.NewRecorder(nil)
	h := w.Run(Host{Surface: rec})
	defer h.Release()

	w.OnTick()
	assert.Equal(t, 2.0, rec.Ops()[1].Ratio)

	w.SetPixelRatio(3)
	w.SetPixelRatio(-1)
	w.OnTick()
	assert.Equal(t, 3.0, rec.Ops()[1].Ratio)
}

func TestTickerScheduler(t *testing.T) {
	s := NewTickerScheduler(200)
	assert.Equal(t, 5*time.Millisecond, s.Interval())

	var n atomic.Int64
	cancel := s.Schedule(func() { n.Add(1) })

	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	cancel()

	stopped := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, n.Load())

	assert.Equal(t, time.Second/DefaultFrameRate, NewTickerScheduler(0).Interval())
}

func TestParseDispatch(t *testing.T) {
	tests := []struct {
		in      string
		want    Dispatch
		wantErr bool
	}{
		{"", DispatchDrop, false},
		{"drop", DispatchDrop, false},
		{"Serialize", DispatchSerialize, false},
		{"queue", DispatchDrop, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDispatch(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.String(), strings.ToLower(tt.want.String()))
		})
	}
}

func TestRender(t *testing.T) {
	w, a, b := newPair(t)
	svg := render.NewSVG(surface)

	require.NoError(t, w.Render(svg, 300))

	na, nb := nodeState(t, w, a), nodeState(t, w, b)
	assert.InDelta(t, 100, na.Center().Distance(nb.Center()), 0.2)

	data, err := svg.Bytes()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "<line"))

	h := w.Run(Host{Surface: svg})
	h.Release()
	assert.ErrorIs(t, w.Render(svg, 1), ErrReleased)
}
