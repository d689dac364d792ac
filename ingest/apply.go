package ingest

import (
	"errors"
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/TFMV/webgraph/models"
)

// Defaults for values a seed leaves out
const (
	DefaultWeight = 150.0
)

// DefaultNodeSize is the size of seed nodes that give none
var DefaultNodeSize = models.Size{Width: 50, Height: 50}

// Builder receives the nodes and edges of a seed. *widget.Widget satisfies it.
type Builder interface {
	AddNode(pos models.Position, size models.Size, props models.NodeProperties) models.Handle
	AddEdge(a, b models.Handle, props models.EdgeProperties) error
}

// Validate checks that node ids are unique, every edge names known nodes and
// every number is finite. Sizes and weights must not be negative.
func (s *Seed) Validate() error {
	ids := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if ids[n.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
		}
		ids[n.ID] = true

		if err := n.checkNumbers(); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
	}
	for _, e := range s.Edges {
		if !finite(e.Weight) || e.Weight < 0 {
			return fmt.Errorf("edge %s -> %s: %w weight %v", e.Source, e.Target, ErrInvalidNumber, e.Weight)
		}
		if !ids[e.Source] {
			return fmt.Errorf("edge %s -> %s: %w %q", e.Source, e.Target, ErrUnknownNode, e.Source)
		}
		if !ids[e.Target] {
			return fmt.Errorf("edge %s -> %s: %w %q", e.Source, e.Target, ErrUnknownNode, e.Target)
		}
	}
	return nil
}

func (n SeedNode) checkNumbers() error {
	for _, c := range []struct {
		name string
		v    *float64
	}{{"x", n.X}, {"y", n.Y}} {
		if c.v != nil && !finite(*c.v) {
			return fmt.Errorf("%w %s %v", ErrInvalidNumber, c.name, *c.v)
		}
	}
	if !finite(n.Width) || n.Width < 0 {
		return fmt.Errorf("%w width %v", ErrInvalidNumber, n.Width)
	}
	if !finite(n.Height) || n.Height < 0 {
		return fmt.Errorf("%w height %v", ErrInvalidNumber, n.Height)
	}
	return nil
}

// Apply adds the seed to b and returns the handle of every seed node id.
//
// An invalid seed is rejected before anything is added. Edges the graph
// refuses (self loops, repeated pairs) are skipped; their errors are joined
// into the returned error while the rest of the seed is still applied.
// Unplaced nodes are scattered over area with a noise field seeded by
// scatterSeed, so the same seed always lands in the same place.
func (s *Seed) Apply(b Builder, area models.Size, scatterSeed int64) (map[string]models.Handle, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	scatter := newScatter(scatterSeed, area)
	handles := make(map[string]models.Handle, len(s.Nodes))

	for i, n := range s.Nodes {
		size := models.Size{Width: n.Width, Height: n.Height}
		if size.Width <= 0 {
			size.Width = DefaultNodeSize.Width
		}
		if size.Height <= 0 {
			size.Height = DefaultNodeSize.Height
		}

		var pos models.Position
		if n.Placed() {
			pos = models.Position{X: *n.X, Y: *n.Y}
		} else {
			pos = scatter.at(i, size)
		}

		label := n.Label
		if label == "" {
			label = n.ID
		}
		handles[n.ID] = b.AddNode(pos, size, models.NodeProperties{Label: label})
	}

	var errs []error
	for _, e := range s.Edges {
		weight := e.Weight
		if weight <= 0 {
			weight = DefaultWeight
		}
		if err := b.AddEdge(handles[e.Source], handles[e.Target], models.EdgeProperties{Weight: weight}); err != nil {
			errs = append(errs, fmt.Errorf("edge %s -> %s: %w", e.Source, e.Target, err))
		}
	}

	return handles, errors.Join(errs...)
}

// scatter places nodes on a 2D noise field
type scatter struct {
	noise opensimplex.Noise
	area  models.Size
}

func newScatter(seed int64, area models.Size) *scatter {
	return &scatter{noise: opensimplex.New(seed), area: area}
}

// at returns the top-left position of the i-th unplaced node. The result
// keeps the whole node inside the area when it fits.
func (s *scatter) at(i int, size models.Size) models.Position {
	// widely spaced samples are close to independent
	u := unit(s.noise.Eval2(float64(i)*1.7, 0.5))
	v := unit(s.noise.Eval2(0.5, float64(i)*1.7+100))

	return models.Position{
		X: u * max(s.area.Width-size.Width, 0),
		Y: v * max(s.area.Height-size.Height, 0),
	}
}

// unit maps noise in [-1, 1] to [0, 1]
func unit(n float64) float64 {
	return models.Clamp((n+1)/2, 0, 1)
}
