// Package interaction tracks the pointer over the widget: which node is
// hovered and whether it is being dragged.
//
// The controller is the only writer of hover and drag state, and besides the
// layout the only component that repositions nodes. Hover and drag targets
// are stored as handles and re-validated against the graph on every use, so
// a removed node can never be dragged.
package interaction

import (
	"github.com/TFMV/webgraph/graph"
	"github.com/TFMV/webgraph/models"
)

// State is the phase of the interaction state machine
type State int

const (
	// Idle means no node is under the pointer
	Idle State = iota
	// Hovering means the pointer is over a node and no button is held
	Hovering
	// Dragging means the hovered node follows the pointer
	Dragging
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case Hovering:
		return "hovering"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

// Controller is the pointer state machine
type Controller struct {
	hovering models.Handle
	hasHover bool
	dragging bool

	// OnHover is called when the hover target changes; ok is false when the
	// pointer left every node.
	OnHover func(h models.Handle, ok bool)
	// OnSelect is called when a drag starts on a node
	OnSelect func(h models.Handle)
}

// New creates an idle controller
func New() *Controller {
	return &Controller{}
}

// State returns the current phase
func (c *Controller) State() State {
	switch {
	case c.dragging:
		return Dragging
	case c.hasHover:
		return Hovering
	default:
		return Idle
	}
}

// Hovering returns the node under the pointer
func (c *Controller) Hovering() (models.Handle, bool) {
	return c.hovering, c.hasHover
}

// Dragging reports whether a node is being dragged
func (c *Controller) Dragging() bool {
	return c.dragging
}

// DragTarget returns the node being dragged
func (c *Controller) DragTarget() (models.Handle, bool) {
	if !c.dragging {
		return 0, false
	}
	return c.hovering, c.hasHover
}

// Pinned reports whether h is the drag target. The layout uses it to leave
// the dragged node where the pointer put it.
func (c *Controller) Pinned(h models.Handle) bool {
	return c.dragging && c.hasHover && c.hovering == h
}

// PointerMove handles a pointer movement to pos in surface-local coordinates.
func (c *Controller) PointerMove(g *graph.Graph, pos models.Position) {
	if c.hasHover {
		node, ok := g.Node(c.hovering)
		switch {
		case !ok:
			// target vanished underneath us
			c.dragging = false
		case c.dragging:
			// a drag never loses its node, even if the pointer outruns it
			node.SetCentered(pos)
			return
		case node.Contains(pos):
			return
		}
	}

	c.setHover(g.NodeAt(pos))
}

// PointerDown starts a drag on the hovered node. Without a hover target it
// does nothing.
func (c *Controller) PointerDown() {
	if !c.hasHover {
		return
	}
	c.dragging = true
	if c.OnSelect != nil {
		c.OnSelect(c.hovering)
	}
}

// PointerUp ends any drag and keeps the hover target.
func (c *Controller) PointerUp() {
	c.dragging = false
}

// PointerLeave resets to Idle, so a button released outside the widget
// cannot leave a drag behind.
func (c *Controller) PointerLeave() {
	c.reset()
}

// Forget drops every reference to h. It must be called when h is removed
// from the graph.
func (c *Controller) Forget(h models.Handle) {
	if c.hasHover && c.hovering == h {
		c.reset()
	}
}

func (c *Controller) reset() {
	c.dragging = false
	c.setHover(0, false)
}

func (c *Controller) setHover(h models.Handle, ok bool) {
	changed := ok != c.hasHover || (ok && h != c.hovering)
	c.hovering, c.hasHover = h, ok
	if changed && c.OnHover != nil {
		c.OnHover(h, ok)
	}
}
