package widget

import (
	"sync"

	"github.com/TFMV/webgraph/models"
	"github.com/TFMV/webgraph/render"
)

// PointerKind is the type of a pointer event
type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerDown
	PointerUp
	PointerLeave
)

// String implements fmt.Stringer
func (k PointerKind) String() string {
	switch k {
	case PointerMove:
		return "move"
	case PointerDown:
		return "down"
	case PointerUp:
		return "up"
	case PointerLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// ends reports whether the event ends a hover or drag
func (k PointerKind) ends() bool {
	return k == PointerUp || k == PointerLeave
}

// PointerEvent is a pointer event in screen coordinates
type PointerEvent struct {
	Kind PointerKind
	X, Y float64
}

// EventSource delivers pointer events until the returned function is called
type EventSource interface {
	Subscribe(fn func(PointerEvent)) (unsubscribe func())
}

// FrameScheduler calls fn once per animation frame until the returned
// function is called. Cancel must not return while fn is running.
type FrameScheduler interface {
	Schedule(fn func()) (cancel func())
}

// Host is everything the widget is bound to by Run. Events and Frames may be
// nil for hosts that drive OnTick and OnPointerEvent directly.
type Host struct {
	Events  EventSource
	Frames  FrameScheduler
	Surface render.Surface
	// Offset returns the surface's screen-space origin; nil means zero
	Offset func() models.Position
}

// Handle is the lifecycle of one Run
type Handle struct {
	w           *Widget
	err         error
	unsubscribe func()
	cancel      func()
	once        sync.Once
}

// Run binds the widget to a host and starts receiving callbacks. A host
// without a surface still relaxes the layout but never draws; the problem
// is logged once and reported by Handle.Err.
func (w *Widget) Run(host Host) *Handle {
	h := &Handle{w: w}

	if w.released.Load() {
		h.err = ErrReleased
		return h
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		h.err = ErrAlreadyRunning
		return h
	}
	w.running = true
	w.surface = host.Surface
	w.offset = host.Offset
	w.mu.Unlock()

	if host.Surface == nil {
		h.err = ErrMissingSurface
		w.logger.Error("widget has no surface, frames will not be drawn", "err", h.err)
	}

	if host.Events != nil {
		h.unsubscribe = host.Events.Subscribe(w.OnPointerEvent)
	}
	if host.Frames != nil {
		h.cancel = host.Frames.Schedule(w.OnTick)
	}

	w.logger.Debug("widget running", "size", w.size, "dispatch", w.dispatch)
	return h
}

// Err reports a problem found by Run
func (h *Handle) Err() error {
	return h.err
}

// Release stops every callback. It is safe to call more than once, and it
// returns only after in-flight callbacks have finished. It must not be
// called from inside a widget callback.
func (h *Handle) Release() {
	if h.err != nil && h.err != ErrMissingSurface {
		return
	}
	h.once.Do(func() {
		w := h.w
		w.released.Store(true)

		if h.unsubscribe != nil {
			h.unsubscribe()
		}
		if h.cancel != nil {
			h.cancel()
		}

		// wait out a callback that acquired the guard before the flag flipped
		w.mu.Lock()
		w.running = false
		w.surface = nil
		w.mu.Unlock()

		w.logger.Debug("widget released")
	})
}

// EventBus is an EventSource fed by Publish
type EventBus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(PointerEvent)
}

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]func(PointerEvent))}
}

// Subscribe registers fn
func (b *EventBus) Subscribe(fn func(PointerEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers ev to every subscriber
func (b *EventBus) Publish(ev PointerEvent) {
	b.mu.Lock()
	fns := make([]func(PointerEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len returns the number of subscribers
func (b *EventBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
