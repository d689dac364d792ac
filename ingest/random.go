package ingest

import (
	"fmt"
	"math/rand"

	"github.com/TFMV/webgraph/models"
)

// Rest lengths of generated edges
const (
	RandomMinWeight = 100.0
	RandomMaxWeight = 600.0
)

// Random generates a seed of n default-sized nodes scattered over area and
// up to edges distinct edges with weights in [RandomMinWeight,
// RandomMaxWeight). The same seed value always produces the same graph.
func Random(n, edges int, area models.Size, seed int64) *Seed {
	rng := rand.New(rand.NewSource(seed))
	scatter := newScatter(seed, area)

	out := &Seed{Nodes: make([]SeedNode, 0, n)}
	for i := 0; i < n; i++ {
		pos := scatter.at(i, DefaultNodeSize)
		x, y := pos.X, pos.Y
		out.Nodes = append(out.Nodes, SeedNode{
			ID:     fmt.Sprintf("n%d", i),
			Label:  fmt.Sprintf("node %d", i),
			X:      &x,
			Y:      &y,
			Width:  DefaultNodeSize.Width,
			Height: DefaultNodeSize.Height,
		})
	}

	if n < 2 {
		return out
	}
	edges = min(edges, n*(n-1)/2)

	seen := make(map[models.Pair]bool, edges)
	// bounded so dense requests cannot spin forever
	for attempts := 0; len(out.Edges) < edges && attempts < edges*20; attempts++ {
		a, b := rng.Intn(n), rng.Intn(n)
		pair, ok := models.NewPair(models.Handle(a), models.Handle(b))
		if !ok || seen[pair] {
			continue
		}
		seen[pair] = true
		out.Edges = append(out.Edges, SeedEdge{
			Source: out.Nodes[a].ID,
			Target: out.Nodes[b].ID,
			Weight: RandomMinWeight + rng.Float64()*(RandomMaxWeight-RandomMinWeight),
		})
	}

	return out
}
