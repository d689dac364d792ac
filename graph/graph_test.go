package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/webgraph/models"
)

var box = models.Size{Width: 50, Height: 50}

func addNodes(g *Graph, positions ...models.Position) []models.Handle {
	out := make([]models.Handle, len(positions))
	for i, p := range positions {
		out[i] = g.AddNode(p, box, models.NodeProperties{Label: "n"})
	}
	return out
}

func TestAddNodeHandlesIncrease(t *testing.T) {
	g := New()
	hs := addNodes(g, models.Position{}, models.Position{X: 100}, models.Position{X: 200})

	assert.Equal(t, []models.Handle{0, 1, 2}, hs)
	assert.Equal(t, 3, g.NodeCount())

	n, ok := g.Node(hs[1])
	require.True(t, ok)
	assert.Equal(t, models.Position{X: 100}, n.Position)
	assert.Equal(t, "n", n.Properties.Label)
}

func TestAddEdge(t *testing.T) {
	tests := []struct {
		name      string
		a, b      int
		wantErr   error
		wantEdges int
	}{
		{name: "new edge", a: 0, b: 1, wantEdges: 2},
		{name: "duplicate same order", a: 0, b: 2, wantErr: ErrDuplicateEdge, wantEdges: 1},
		{name: "duplicate reverse order", a: 2, b: 0, wantErr: ErrDuplicateEdge, wantEdges: 1},
		{name: "self loop", a: 1, b: 1, wantErr: ErrSelfLoop, wantEdges: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			hs := addNodes(g, models.Position{}, models.Position{X: 100}, models.Position{X: 200})
			require.NoError(t, g.AddEdge(hs[0], hs[2], models.EdgeProperties{Weight: 100}))

			err := g.AddEdge(hs[tt.a], hs[tt.b], models.EdgeProperties{Weight: 300})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantEdges, g.EdgeCount())
			assert.Equal(t, 3, g.NodeCount())
		})
	}
}

func TestAddEdgeFirstWins(t *testing.T) {
	g := New()
	hs := addNodes(g, models.Position{}, models.Position{X: 100})

	require.NoError(t, g.AddEdge(hs[1], hs[0], models.EdgeProperties{Weight: 100}))
	assert.ErrorIs(t, g.AddEdge(hs[0], hs[1], models.EdgeProperties{Weight: 250}), ErrDuplicateEdge)

	e, ok := g.Edge(hs[0], hs[1])
	require.True(t, ok)
	assert.Equal(t, 100.0, e.Properties.Weight)
	assert.Equal(t, models.Pair{A: hs[0], B: hs[1]}, e.Pair)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := New()
	hs := addNodes(g, models.Position{})

	err := g.AddEdge(hs[0], 42, models.EdgeProperties{Weight: 1})
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Zero(t, g.EdgeCount())
}

func TestEdgeReachableFromBothEndpoints(t *testing.T) {
	g := New()
	hs := addNodes(g, models.Position{}, models.Position{X: 100}, models.Position{X: 200})
	require.NoError(t, g.AddEdge(hs[2], hs[0], models.EdgeProperties{Weight: 10}))
	require.NoError(t, g.AddEdge(hs[1], hs[2], models.EdgeProperties{Weight: 20}))

	fwd, ok := g.Edge(hs[0], hs[2])
	require.True(t, ok)
	rev, ok := g.Edge(hs[2], hs[0])
	require.True(t, ok)
	assert.Same(t, fwd, rev)

	assert.ElementsMatch(t, []models.Handle{hs[0], hs[1]}, g.Neighbors(hs[2]))
	assert.Equal(t, []models.Handle{hs[2]}, g.Neighbors(hs[0]))
	assert.Equal(t, 2, g.Degree(hs[2]))
	assert.Equal(t, 1, g.Degree(hs[1]))
}

func TestNodeAt(t *testing.T) {
	g := New()
	hs := addNodes(g, models.Position{X: 10, Y: 10}, models.Position{X: 200, Y: 200})

	tests := []struct {
		name   string
		pos    models.Position
		want   models.Handle
		wantOK bool
	}{
		{"top left corner", models.Position{X: 10, Y: 10}, hs[0], true},
		{"bottom right corner", models.Position{X: 60, Y: 60}, hs[0], true},
		{"one unit left", models.Position{X: 9, Y: 10}, 0, false},
		{"one unit below", models.Position{X: 60, Y: 61}, 0, false},
		{"second node", models.Position{X: 225, Y: 225}, hs[1], true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.NodeAt(tt.pos)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNodeAtOverlapReturnsLowestHandle(t *testing.T) {
	g := New()
	hs := addNodes(g, models.Position{X: 0, Y: 0}, models.Position{X: 25, Y: 25})

	got, ok := g.NodeAt(models.Position{X: 40, Y: 40})
	require.True(t, ok)
	assert.Equal(t, hs[0], got)
}

func TestRemoveNodePurgesAdjacency(t *testing.T) {
	g := New()
	hs := addNodes(g, models.Position{}, models.Position{X: 100}, models.Position{X: 200}, models.Position{X: 300})
	require.NoError(t, g.AddEdge(hs[0], hs[1], models.EdgeProperties{Weight: 1}))
	require.NoError(t, g.AddEdge(hs[1], hs[2], models.EdgeProperties{Weight: 1}))
	require.NoError(t, g.AddEdge(hs[1], hs[3], models.EdgeProperties{Weight: 1}))
	require.NoError(t, g.AddEdge(hs[2], hs[3], models.EdgeProperties{Weight: 1}))

	require.NoError(t, g.RemoveNode(hs[1]))

	assert.False(t, g.HasNode(hs[1]))
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Len(t, g.Edges(), 1)
	assert.Empty(t, g.Neighbors(hs[0]))
	assert.Equal(t, []models.Handle{hs[3]}, g.Neighbors(hs[2]))

	_, ok := g.Edge(hs[0], hs[1])
	assert.False(t, ok)

	// the purged pair can be connected again once both ends exist
	h := g.AddNode(models.Position{}, box, models.NodeProperties{})
	assert.Equal(t, models.Handle(4), h, "handles are never reused")
	assert.NoError(t, g.AddEdge(hs[0], h, models.EdgeProperties{Weight: 1}))
}

func TestRemoveNodeUnknown(t *testing.T) {
	g := New()
	assert.ErrorIs(t, g.RemoveNode(3), ErrNodeNotFound)
}

func TestRemoveEdge(t *testing.T) {
	g := New()
	hs := addNodes(g, models.Position{}, models.Position{X: 100})
	require.NoError(t, g.AddEdge(hs[0], hs[1], models.EdgeProperties{Weight: 1}))

	require.NoError(t, g.RemoveEdge(hs[1], hs[0]))
	assert.Zero(t, g.EdgeCount())
	assert.Empty(t, g.Neighbors(hs[0]))
	assert.Empty(t, g.Neighbors(hs[1]))

	assert.ErrorIs(t, g.RemoveEdge(hs[0], hs[1]), ErrEdgeNotFound)
	assert.ErrorIs(t, g.RemoveEdge(hs[0], hs[0]), ErrSelfLoop)

	require.NoError(t, g.AddEdge(hs[0], hs[1], models.EdgeProperties{Weight: 7}))
	e, ok := g.Edge(hs[0], hs[1])
	require.True(t, ok)
	assert.Equal(t, 7.0, e.Properties.Weight)
}

func TestEachEdgeOrder(t *testing.T) {
	g := New()
	hs := addNodes(g, models.Position{}, models.Position{}, models.Position{})
	require.NoError(t, g.AddEdge(hs[1], hs[2], models.EdgeProperties{Weight: 12}))
	require.NoError(t, g.AddEdge(hs[0], hs[2], models.EdgeProperties{Weight: 2}))
	require.NoError(t, g.AddEdge(hs[0], hs[1], models.EdgeProperties{Weight: 1}))

	var weights []float64
	g.EachEdge(func(e *models.EdgeState) bool {
		weights = append(weights, e.Properties.Weight)
		return true
	})
	assert.Equal(t, []float64{2, 1, 12}, weights)
}

func TestFindByLabel(t *testing.T) {
	g := New()
	g.AddNode(models.Position{}, box, models.NodeProperties{Label: "a"})
	b := g.AddNode(models.Position{}, box, models.NodeProperties{Label: "b"})

	found := g.FindByLabel("b")
	require.Len(t, found, 1)
	assert.Equal(t, b, found[0].Handle)
	assert.Empty(t, g.FindByLabel("missing"))
}
