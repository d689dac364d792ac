// Package render projects the graph onto a drawing surface.
//
// The projector is stateless: every frame it clears the surface, applies the
// device pixel ratio, strokes one line per edge between the two node centers
// and finally draws each node as a filled rectangle with an outline. Edges are
// always drawn before nodes so nodes appear on top.
package render

import (
	"fmt"
	"strings"

	"github.com/TFMV/webgraph/graph"
	"github.com/TFMV/webgraph/models"
)

// Outline widths in surface units
const (
	DefaultLineWidth = 1.0
	HoverLineWidth   = 5.0
)

// Surface is the drawing capability the projector needs. Coordinates are
// logical surface units; the surface maps them to device pixels using the
// ratio given to ScaleForDevicePixelRatio.
type Surface interface {
	// Clear erases the whole surface
	Clear()
	// StrokeLine draws a line segment
	StrokeLine(from, to models.Position)
	// FillRect fills an axis aligned rectangle
	FillRect(pos models.Position, size models.Size)
	// StrokeRect outlines an axis aligned rectangle
	StrokeRect(pos models.Position, size models.Size, lineWidth float64)
	// ScaleForDevicePixelRatio sets the logical to device scale. It replaces
	// the previous scale rather than compounding it.
	ScaleForDevicePixelRatio(ratio float64)
}

// Presenter is implemented by surfaces that must be flushed once a frame is
// complete.
type Presenter interface {
	Present() error
}

// Projector draws a graph onto a surface
type Projector struct {
	LineWidth      float64
	HoverLineWidth float64
}

// NewProjector returns a projector with the default outline widths
func NewProjector() *Projector {
	return &Projector{
		LineWidth:      DefaultLineWidth,
		HoverLineWidth: HoverLineWidth,
	}
}

// Project draws one frame. hovered reports whether hover is a node under
// the pointer; that node is outlined with the hover width.
func (p *Projector) Project(s Surface, g *graph.Graph, hover models.Handle, hovered bool, ratio float64) error {
	if ratio <= 0 {
		ratio = 1
	}

	s.Clear()
	s.ScaleForDevicePixelRatio(ratio)

	g.EachEdge(func(e *models.EdgeState) bool {
		from, ok := g.Node(e.Pair.A)
		if !ok {
			return true
		}
		to, ok := g.Node(e.Pair.B)
		if !ok {
			return true
		}
		s.StrokeLine(from.Center(), to.Center())
		return true
	})

	g.EachNode(func(n *models.NodeState) bool {
		s.FillRect(n.Position, n.Size)
		width := p.LineWidth
		if hovered && n.Handle == hover {
			width = p.HoverLineWidth
		}
		s.StrokeRect(n.Position, n.Size, width)
		return true
	})

	if pr, ok := s.(Presenter); ok {
		if err := pr.Present(); err != nil {
			return fmt.Errorf("present frame: %w", err)
		}
	}
	return nil
}

// Project draws one frame with the default projector
func Project(s Surface, g *graph.Graph, hover models.Handle, hovered bool, ratio float64) error {
	return NewProjector().Project(s, g, hover, hovered, ratio)
}

// Formats lists the names accepted by NewSurface
var Formats = []string{"svg", "png", "ascii", "json"}

// Document is a surface whose frame can be serialized as a file
type Document interface {
	Surface
	Bytes() ([]byte, error)
}

// NewSurface returns the surface for an output format
func NewSurface(format string, size models.Size) (Document, error) {
	switch strings.ToLower(format) {
	case "svg":
		return NewSVG(size), nil
	case "png":
		return NewRaster(size), nil
	case "ascii", "text":
		return NewGrid(size, DefaultCellWidth, DefaultCellHeight), nil
	case "json":
		return NewRecorder(nil), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
