package graph

import "github.com/TFMV/webgraph/models"

// NodeFilter is a function type used to filter nodes in queries
type NodeFilter func(node *models.NodeState) bool

// Neighbors returns the handles directly connected to h, lesser-keyed
// neighbors first.
func (g *Graph) Neighbors(h models.Handle) []models.Handle {
	var result []models.Handle

	if in, ok := g.reverse[h]; ok {
		for p := in.Oldest(); p != nil; p = p.Next() {
			result = append(result, p.Key)
		}
	}
	if out, ok := g.forward[h]; ok {
		for p := out.Oldest(); p != nil; p = p.Next() {
			result = append(result, p.Key)
		}
	}

	return result
}

// Degree returns the number of edges touching h
func (g *Graph) Degree(h models.Handle) int {
	n := 0
	if in, ok := g.reverse[h]; ok {
		n += in.Len()
	}
	if out, ok := g.forward[h]; ok {
		n += out.Len()
	}
	return n
}

// FilterNodes returns nodes that match the provided filter function
func (g *Graph) FilterNodes(filter NodeFilter) []*models.NodeState {
	var result []*models.NodeState
	g.EachNode(func(n *models.NodeState) bool {
		if filter(n) {
			result = append(result, n)
		}
		return true
	})
	return result
}

// FindByLabel returns all nodes carrying the given label
func (g *Graph) FindByLabel(label string) []*models.NodeState {
	return g.FilterNodes(func(n *models.NodeState) bool {
		return n.Properties.Label == label
	})
}
