// Package graph implements the in-memory graph model of the widget.
//
// Nodes live in an arena keyed by a stable handle. Edges are undirected and
// stored once per unordered pair, indexed both from the lesser endpoint
// (forward) and from the greater endpoint (reverse) so that an edge is
// reachable from either endpoint in O(1). Iteration order is ascending by
// handle for nodes and insertion order for edges.
//
// The model is not safe for concurrent use; the widget serializes access.
package graph

import (
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/TFMV/webgraph/models"
)

var (
	// ErrSelfLoop is returned when an edge would connect a node to itself
	ErrSelfLoop = errors.New("self loop")
	// ErrDuplicateEdge is returned when the pair already has an edge
	ErrDuplicateEdge = errors.New("duplicate edge")
	// ErrNodeNotFound is returned for handles the graph does not hold
	ErrNodeNotFound = errors.New("node not found")
	// ErrEdgeNotFound is returned when no edge exists for a pair
	ErrEdgeNotFound = errors.New("edge not found")
)

type adjacency = orderedmap.OrderedMap[models.Handle, *models.EdgeState]

// Graph owns nodes and edges
type Graph struct {
	counter uint64
	nodes   *orderedmap.OrderedMap[models.Handle, *models.NodeState]

	// forward is keyed by the lesser endpoint, reverse by the greater one
	forward map[models.Handle]*adjacency
	reverse map[models.Handle]*adjacency

	edgeCount int
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:   orderedmap.New[models.Handle, *models.NodeState](),
		forward: make(map[models.Handle]*adjacency),
		reverse: make(map[models.Handle]*adjacency),
	}
}

// AddNode allocates the next handle and stores the node under it.
func (g *Graph) AddNode(pos models.Position, size models.Size, props models.NodeProperties) models.Handle {
	h := models.Handle(g.counter)
	g.counter++

	g.nodes.Set(h, models.NewNodeState(h, pos, size, props))
	return h
}

// AddEdge connects a and b. The first edge added for a pair is kept: a
// second call for the same pair, in either order, returns ErrDuplicateEdge
// and leaves the stored weight untouched. Self loops and unknown endpoints
// are rejected as well; a rejected call never modifies the graph.
func (g *Graph) AddEdge(a, b models.Handle, props models.EdgeProperties) error {
	pair, ok := models.NewPair(a, b)
	if !ok {
		return fmt.Errorf("edge %s: %w", pair, ErrSelfLoop)
	}
	if !g.HasNode(pair.A) {
		return fmt.Errorf("edge %s: %s: %w", pair, pair.A, ErrNodeNotFound)
	}
	if !g.HasNode(pair.B) {
		return fmt.Errorf("edge %s: %s: %w", pair, pair.B, ErrNodeNotFound)
	}
	if _, exists := g.Edge(pair.A, pair.B); exists {
		return fmt.Errorf("edge %s: %w", pair, ErrDuplicateEdge)
	}

	state := &models.EdgeState{Pair: pair, Properties: props}

	// stored twice, once per direction
	index(g.forward, pair.A).Set(pair.B, state)
	index(g.reverse, pair.B).Set(pair.A, state)
	g.edgeCount++

	return nil
}

// RemoveNode deletes the node and every edge touching it. The handle is not
// reused by later AddNode calls.
func (g *Graph) RemoveNode(h models.Handle) error {
	if _, ok := g.nodes.Delete(h); !ok {
		return fmt.Errorf("remove %s: %w", h, ErrNodeNotFound)
	}

	if out, ok := g.forward[h]; ok {
		for p := out.Oldest(); p != nil; p = p.Next() {
			g.unlink(g.reverse, p.Key, h)
			g.edgeCount--
		}
		delete(g.forward, h)
	}
	if in, ok := g.reverse[h]; ok {
		for p := in.Oldest(); p != nil; p = p.Next() {
			g.unlink(g.forward, p.Key, h)
			g.edgeCount--
		}
		delete(g.reverse, h)
	}

	return nil
}

// RemoveEdge deletes the edge between a and b, in either order.
func (g *Graph) RemoveEdge(a, b models.Handle) error {
	pair, ok := models.NewPair(a, b)
	if !ok {
		return fmt.Errorf("remove edge %s: %w", pair, ErrSelfLoop)
	}
	if _, exists := g.Edge(pair.A, pair.B); !exists {
		return fmt.Errorf("remove edge %s: %w", pair, ErrEdgeNotFound)
	}

	g.unlink(g.forward, pair.A, pair.B)
	g.unlink(g.reverse, pair.B, pair.A)
	g.edgeCount--

	return nil
}

// Node returns the state of h
func (g *Graph) Node(h models.Handle) (*models.NodeState, bool) {
	return g.nodes.Get(h)
}

// HasNode reports whether h is in the graph
func (g *Graph) HasNode(h models.Handle) bool {
	_, ok := g.nodes.Get(h)
	return ok
}

// Edge returns the edge between a and b, in either order.
func (g *Graph) Edge(a, b models.Handle) (*models.EdgeState, bool) {
	pair, ok := models.NewPair(a, b)
	if !ok {
		return nil, false
	}
	out, ok := g.forward[pair.A]
	if !ok {
		return nil, false
	}
	return out.Get(pair.B)
}

// NodeAt returns the first node whose bounding box contains pos.
// Nodes are scanned in ascending handle order.
func (g *Graph) NodeAt(pos models.Position) (models.Handle, bool) {
	for p := g.nodes.Oldest(); p != nil; p = p.Next() {
		if p.Value.Contains(pos) {
			return p.Key, true
		}
	}
	return 0, false
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return g.nodes.Len()
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// EachNode calls fn for every node in ascending handle order until fn
// returns false.
func (g *Graph) EachNode(fn func(n *models.NodeState) bool) {
	for p := g.nodes.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Value) {
			return
		}
	}
}

// EachEdge calls fn once per edge until fn returns false. Edges are visited
// grouped by their lesser endpoint, in the order they were added.
func (g *Graph) EachEdge(fn func(e *models.EdgeState) bool) {
	for p := g.nodes.Oldest(); p != nil; p = p.Next() {
		out, ok := g.forward[p.Key]
		if !ok {
			continue
		}
		for e := out.Oldest(); e != nil; e = e.Next() {
			if !fn(e.Value) {
				return
			}
		}
	}
}

// Nodes returns a snapshot of all nodes
func (g *Graph) Nodes() []*models.NodeState {
	out := make([]*models.NodeState, 0, g.nodes.Len())
	g.EachNode(func(n *models.NodeState) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Edges returns a snapshot of all edges
func (g *Graph) Edges() []*models.EdgeState {
	out := make([]*models.EdgeState, 0, g.edgeCount)
	g.EachEdge(func(e *models.EdgeState) bool {
		out = append(out, e)
		return true
	})
	return out
}

func index(m map[models.Handle]*adjacency, h models.Handle) *adjacency {
	adj, ok := m[h]
	if !ok {
		adj = orderedmap.New[models.Handle, *models.EdgeState]()
		m[h] = adj
	}
	return adj
}

func (g *Graph) unlink(m map[models.Handle]*adjacency, key, other models.Handle) {
	adj, ok := m[key]
	if !ok {
		return
	}
	adj.Delete(other)
	if adj.Len() == 0 {
		delete(m, key)
	}
}
