package render

import (
	"encoding/json"

	"github.com/TFMV/webgraph/models"
)

// Op kinds emitted by the recorder
const (
	OpClear  = "clear"
	OpScale  = "scale"
	OpLine   = "line"
	OpFill   = "fill"
	OpStroke = "stroke"
)

// Op is one recorded draw call. Unused fields are omitted from the JSON
// form; a missing coordinate means zero.
type Op struct {
	Kind      string  `json:"op"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	X2        float64 `json:"x2,omitempty"`
	Y2        float64 `json:"y2,omitempty"`
	Width     float64 `json:"w,omitempty"`
	Height    float64 `json:"h,omitempty"`
	LineWidth float64 `json:"lw,omitempty"`
	Ratio     float64 `json:"ratio,omitempty"`
}

// Frame is the list of draw calls of one projected frame
type Frame struct {
	Ops []Op `json:"ops"`
}

// FrameSink receives completed frames
type FrameSink func(Frame) error

// Recorder logs draw calls instead of drawing them. With a sink every
// presented frame is handed over and the log starts again; without one the
// log keeps the last frame for Bytes.
type Recorder struct {
	ops  []Op
	sink FrameSink
}

// NewRecorder creates a recorder that ships frames to sink, which may be nil
func NewRecorder(sink FrameSink) *Recorder {
	return &Recorder{sink: sink}
}

// Clear records a clear and drops the ops of any unpresented frame
func (r *Recorder) Clear() {
	r.ops = append(r.ops[:0], Op{Kind: OpClear})
}

// ScaleForDevicePixelRatio records the scale
func (r *Recorder) ScaleForDevicePixelRatio(ratio float64) {
	r.ops = append(r.ops, Op{Kind: OpScale, Ratio: ratio})
}

// StrokeLine records a line
func (r *Recorder) StrokeLine(from, to models.Position) {
	r.ops = append(r.ops, Op{Kind: OpLine, X: from.X, Y: from.Y, X2: to.X, Y2: to.Y})
}

// FillRect records a filled rectangle
func (r *Recorder) FillRect(pos models.Position, size models.Size) {
	r.ops = append(r.ops, Op{Kind: OpFill, X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height})
}

// StrokeRect records an outlined rectangle
func (r *Recorder) StrokeRect(pos models.Position, size models.Size, lineWidth float64) {
	r.ops = append(r.ops, Op{Kind: OpStroke, X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height, LineWidth: lineWidth})
}

// Ops returns a copy of the ops recorded since the last Clear
func (r *Recorder) Ops() []Op {
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Present hands the frame to the sink
func (r *Recorder) Present() error {
	if r.sink == nil {
		return nil
	}
	frame := Frame{Ops: r.Ops()}
	r.ops = r.ops[:0]
	return r.sink(frame)
}

// Bytes returns the recorded frame as JSON
func (r *Recorder) Bytes() ([]byte, error) {
	return json.MarshalIndent(Frame{Ops: r.Ops()}, "", "  ")
}
