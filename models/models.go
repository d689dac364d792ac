// Package models provides the value types shared by the webgraph engine.
// It defines node handles, geometry and the per-node and per-edge state
// owned by the graph model.
package models

import "fmt"

// Handle identifies a node for the lifetime of the graph that issued it.
// Handles are allocated from a monotonically increasing counter and are never
// reused, even after the node they named has been removed.
type Handle uint64

// String implements fmt.Stringer
func (h Handle) String() string {
	return fmt.Sprintf("node#%d", uint64(h))
}

// Position is a point in surface-local coordinates
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// String implements fmt.Stringer
func (p Position) String() string {
	return fmt.Sprintf("%g/%g", p.X, p.Y)
}

// Size is the width and height of a node's bounding box
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NodeProperties is the caller supplied payload of a node
type NodeProperties struct {
	Label string `json:"label"`
}

// EdgeProperties is the caller supplied payload of an edge.
// Weight is the rest length the layout tries to keep between the centers of
// the two endpoints.
type EdgeProperties struct {
	Weight float64 `json:"weight"`
}

// NodeState is the mutable state of one node
type NodeState struct {
	Handle     Handle
	Position   Position
	Size       Size
	Properties NodeProperties
}

// EdgeState is the state of one edge. It is shared between the forward and
// reverse adjacency indices of the graph.
type EdgeState struct {
	Pair       Pair
	Properties EdgeProperties
}

// Pair is an unordered pair of node handles stored in canonical order (A < B)
type Pair struct {
	A Handle `json:"a"`
	B Handle `json:"b"`
}

// NewPair returns the canonical pair for a and b.
// ok is false when a and b are the same node.
func NewPair(a, b Handle) (p Pair, ok bool) {
	switch {
	case a == b:
		return Pair{A: a, B: b}, false
	case a > b:
		a, b = b, a
	}
	return Pair{A: a, B: b}, true
}

// Other returns the endpoint of p that is not h
func (p Pair) Other(h Handle) Handle {
	if p.A == h {
		return p.B
	}
	return p.A
}

// Contains reports whether h is one of the endpoints of p
func (p Pair) Contains(h Handle) bool {
	return p.A == h || p.B == h
}

// String implements fmt.Stringer
func (p Pair) String() string {
	return fmt.Sprintf("%s-%s", p.A, p.B)
}
