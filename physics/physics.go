// Package physics advances node positions one discrete step at a time.
//
// The relaxation layout is a damped, gradient-descent-like heuristic: every
// edge pulls or pushes its endpoints toward the edge's rest length, with the
// per-step movement clamped so the layout can never explode. There is no
// convergence detection; the host calls Step once per animation frame for as
// long as the widget lives.
package physics

import (
	"math"

	"github.com/TFMV/webgraph/graph"
	"github.com/TFMV/webgraph/models"
)

// Defaults for the relaxation layout, in surface units.
const (
	DefaultEpsilon            = 0.1
	DefaultMaxStep            = 5.0
	DefaultRepulsionThreshold = 100.0
)

// PinFunc reports whether a node is exempt from layout movement
type PinFunc func(h models.Handle) bool

// Layout defines an interface for layout algorithms
type Layout interface {
	// Step relaxes the graph once. Nodes for which pinned returns true are
	// never moved.
	Step(g *graph.Graph, pinned PinFunc)

	// Name returns the name of the layout algorithm
	Name() string
}

// Options configures the relaxation layout
type Options struct {
	// Epsilon is the tolerance under which an edge counts as settled
	Epsilon float64 `toml:"epsilon"`
	// MaxStep bounds the displacement of one node by one pull
	MaxStep float64 `toml:"max_step"`
	// Repulsion enables the pairwise node repulsion pass
	Repulsion bool `toml:"repulsion"`
	// RepulsionThreshold is the center distance under which nodes repel
	RepulsionThreshold float64 `toml:"repulsion_threshold"`
}

// DefaultOptions returns the reference settings: epsilon 0.1, step 5 and
// repulsion disabled.
func DefaultOptions() Options {
	return Options{
		Epsilon:            DefaultEpsilon,
		MaxStep:            DefaultMaxStep,
		Repulsion:          false,
		RepulsionThreshold: DefaultRepulsionThreshold,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Epsilon > 0 {
		d.Epsilon = o.Epsilon
	}
	if o.MaxStep > 0 {
		d.MaxStep = o.MaxStep
	}
	if o.RepulsionThreshold > 0 {
		d.RepulsionThreshold = o.RepulsionThreshold
	}
	d.Repulsion = o.Repulsion
	return d
}

// Relaxation moves connected nodes toward their edges' rest lengths
type Relaxation struct {
	opts Options
}

// NewRelaxation creates a relaxation layout. Zero fields of opts fall back to
// the defaults.
func NewRelaxation(opts Options) *Relaxation {
	return &Relaxation{opts: opts.withDefaults()}
}

// Name returns the name of the layout algorithm
func (r *Relaxation) Name() string {
	return "Spring Relaxation"
}

// Options returns the effective settings
func (r *Relaxation) Options() Options {
	return r.opts
}

// Step performs one iteration: every edge once, then the repulsion pass when
// enabled. Contended nodes receive one pull per incident edge within the same
// step.
func (r *Relaxation) Step(g *graph.Graph, pinned PinFunc) {
	if pinned == nil {
		pinned = func(models.Handle) bool { return false }
	}

	r.walkEdges(g, pinned)
	if r.opts.Repulsion {
		r.walkAllNodes(g, pinned)
	}
}

func (r *Relaxation) walkEdges(g *graph.Graph, pinned PinFunc) {
	g.EachEdge(func(e *models.EdgeState) bool {
		from, ok := g.Node(e.Pair.A)
		if !ok {
			return true
		}
		to, ok := g.Node(e.Pair.B)
		if !ok {
			return true
		}

		distance := from.Center().Distance(to.Center())
		delta := distance - e.Properties.Weight
		if math.Abs(delta) <= r.opts.Epsilon {
			return true
		}

		r.pull(from, to, delta/2, pinned)
		return true
	})
}

func (r *Relaxation) walkAllNodes(g *graph.Graph, pinned PinFunc) {
	nodes := g.Nodes()
	for i, from := range nodes {
		for _, to := range nodes[i+1:] {
			distance := from.Center().Distance(to.Center())
			if distance >= r.opts.RepulsionThreshold {
				continue
			}
			// negative amount pushes the pair apart
			r.pull(from, to, (distance-r.opts.RepulsionThreshold)/2, pinned)
		}
	}
}

// pull moves from toward to's center and then to toward from's updated center
func (r *Relaxation) pull(from, to *models.NodeState, amount float64, pinned PinFunc) {
	if !pinned(from.Handle) {
		from.MoveToward(amount, to.Center(), r.opts.MaxStep)
	}
	if !pinned(to.Handle) {
		to.MoveToward(amount, from.Center(), r.opts.MaxStep)
	}
}

// GetLayoutAlgorithm returns a layout algorithm by name
func GetLayoutAlgorithm(name string, opts Options) Layout {
	switch name {
	case "repulsion":
		opts.Repulsion = true
		return NewRelaxation(opts)
	default:
		return NewRelaxation(opts)
	}
}
