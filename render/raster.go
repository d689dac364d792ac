package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"github.com/TFMV/webgraph/models"
)

var (
	rasterBackground = color.RGBA{R: 0xf8, G: 0xf8, B: 0xf8, A: 0xff}
	rasterEdge       = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
	rasterNode       = color.RGBA{R: 0x42, G: 0x85, B: 0xf4, A: 0xff}
	rasterStroke     = color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}
)

// Raster draws into an RGBA image sized in device pixels
type Raster struct {
	size  models.Size
	ratio float64
	img   *image.RGBA
	z     *vector.Rasterizer
}

// NewRaster creates a raster surface with the given logical size
func NewRaster(size models.Size) *Raster {
	r := &Raster{size: size, ratio: 1}
	r.alloc()
	return r
}

func (r *Raster) alloc() {
	w := max(int(math.Ceil(r.size.Width*r.ratio)), 1)
	h := max(int(math.Ceil(r.size.Height*r.ratio)), 1)
	if r.img != nil && r.img.Bounds().Dx() == w && r.img.Bounds().Dy() == h {
		return
	}
	r.img = image.NewRGBA(image.Rect(0, 0, w, h))
	r.z = vector.NewRasterizer(w, h)
}

// Image returns the backing image
func (r *Raster) Image() *image.RGBA {
	return r.img
}

// Clear paints the background
func (r *Raster) Clear() {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(rasterBackground), image.Point{}, draw.Src)
}

// ScaleForDevicePixelRatio resizes the image to the logical size times ratio
func (r *Raster) ScaleForDevicePixelRatio(ratio float64) {
	if ratio <= 0 || ratio == r.ratio {
		return
	}
	r.ratio = ratio
	r.alloc()
	r.Clear()
}

// StrokeLine draws a one unit wide segment
func (r *Raster) StrokeLine(from, to models.Position) {
	from, to, ok := r.clip(from, to)
	if !ok {
		return
	}
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	// half-width normal
	nx, ny := -dy/length*0.5, dx/length*0.5

	r.polygon(rasterEdge,
		models.Position{X: from.X + nx, Y: from.Y + ny},
		models.Position{X: to.X + nx, Y: to.Y + ny},
		models.Position{X: to.X - nx, Y: to.Y - ny},
		models.Position{X: from.X - nx, Y: from.Y - ny},
	)
}

// FillRect fills the rectangle with the node color
func (r *Raster) FillRect(pos models.Position, size models.Size) {
	r.rect(rasterNode, pos.X, pos.Y, size.Width, size.Height)
}

// StrokeRect draws an outline centered on the rectangle's border
func (r *Raster) StrokeRect(pos models.Position, size models.Size, lineWidth float64) {
	half := lineWidth / 2
	x0, y0 := pos.X-half, pos.Y-half
	w, h := size.Width+lineWidth, size.Height+lineWidth

	r.rect(rasterStroke, x0, y0, w, lineWidth)
	r.rect(rasterStroke, x0, y0+h-lineWidth, w, lineWidth)
	r.rect(rasterStroke, x0, y0, lineWidth, h)
	r.rect(rasterStroke, x0+w-lineWidth, y0, lineWidth, h)
}

// Encode writes the image as PNG
func (r *Raster) Encode(w io.Writer) error {
	if err := png.Encode(w, r.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Bytes returns the PNG encoding of the current frame
func (r *Raster) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Raster) rect(c color.Color, x, y, w, h float64) {
	r.polygon(c,
		models.Position{X: x, Y: y},
		models.Position{X: x + w, Y: y},
		models.Position{X: x + w, Y: y + h},
		models.Position{X: x, Y: y + h},
	)
}

func (r *Raster) polygon(c color.Color, pts ...models.Position) {
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return
		}
	}
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	r.z.DrawOp = draw.Over

	for i, p := range pts {
		x, y := r.device(p)
		if i == 0 {
			r.z.MoveTo(x, y)
			continue
		}
		r.z.LineTo(x, y)
	}
	r.z.ClosePath()
	r.z.Draw(r.img, b, image.NewUniform(c), image.Point{})
}

// clip cuts the segment to the logical area of the image (Liang-Barsky), so
// vertex clamping in device never bends a line.
func (r *Raster) clip(from, to models.Position) (models.Position, models.Position, bool) {
	b := r.img.Bounds()
	maxX, maxY := float64(b.Dx())/r.ratio+1, float64(b.Dy())/r.ratio+1
	dx, dy := to.X-from.X, to.Y-from.Y
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, from.X + 1},
		{dx, maxX - from.X},
		{-dy, from.Y + 1},
		{dy, maxY - from.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return from, to, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
		if t0 > t1 {
			return from, to, false
		}
	}

	return from.Add(dx*t0, dy*t0), from.Add(dx*t1, dy*t1), true
}

// device maps a logical position to clamped device coordinates
func (r *Raster) device(p models.Position) (float32, float32) {
	b := r.img.Bounds()
	x := models.Clamp(p.X*r.ratio, 0, float64(b.Dx()))
	y := models.Clamp(p.Y*r.ratio, 0, float64(b.Dy()))
	return float32(x), float32(y)
}
