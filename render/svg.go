package render

import (
	"bytes"
	"fmt"

	"github.com/TFMV/webgraph/models"
)

// SVG colors
const (
	svgBackground = "#f8f8f8"
	svgEdgeColor  = "#666666"
	svgNodeColor  = "#4285F4"
	svgStroke     = "#1a1a1a"
)

// SVG records draw calls as SVG elements
type SVG struct {
	size  models.Size
	ratio float64
	body  bytes.Buffer
}

// NewSVG creates an SVG surface with the given logical size
func NewSVG(size models.Size) *SVG {
	return &SVG{size: size, ratio: 1}
}

// Clear drops every element drawn so far
func (s *SVG) Clear() {
	s.body.Reset()
}

// ScaleForDevicePixelRatio sets the ratio between the document size and the
// logical view box
func (s *SVG) ScaleForDevicePixelRatio(ratio float64) {
	if ratio > 0 {
		s.ratio = ratio
	}
}

// StrokeLine draws an edge line
func (s *SVG) StrokeLine(from, to models.Position) {
	fmt.Fprintf(&s.body, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-width="1"/>`+"\n",
		from.X, from.Y, to.X, to.Y, svgEdgeColor)
}

// FillRect draws a node body
func (s *SVG) FillRect(pos models.Position, size models.Size) {
	fmt.Fprintf(&s.body, `<rect x="%g" y="%g" width="%g" height="%g" fill="%s"/>`+"\n",
		pos.X, pos.Y, size.Width, size.Height, svgNodeColor)
}

// StrokeRect draws a node outline
func (s *SVG) StrokeRect(pos models.Position, size models.Size, lineWidth float64) {
	fmt.Fprintf(&s.body, `<rect x="%g" y="%g" width="%g" height="%g" fill="none" stroke="%s" stroke-width="%g"/>`+"\n",
		pos.X, pos.Y, size.Width, size.Height, svgStroke, lineWidth)
}

// Bytes returns the complete SVG document of the current frame
func (s *SVG) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<svg width="%g" height="%g" viewBox="0 0 %g %g" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
`, s.size.Width*s.ratio, s.size.Height*s.ratio, s.size.Width, s.size.Height, svgBackground)

	buf.Write(s.body.Bytes())
	buf.WriteString("</svg>\n")

	return buf.Bytes(), nil
}
