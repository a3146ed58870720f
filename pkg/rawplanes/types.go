package rawplanes

import (
	"errors"
	"fmt"
)

var (
	ErrChannelShapeMismatch    = errors.New("channel shape mismatch")
	ErrUnknownChannel          = errors.New("unknown channel identifier")
	ErrGridMismatch            = errors.New("color index grid does not match frame dimensions")
	ErrEmptyHistogramInput     = errors.New("histogram input is empty")
	ErrInvalidBinCount         = errors.New("histogram bin count must be at least 1")
	ErrMissingChannel          = errors.New("missing channel")
	ErrUnsupportedSampleFormat = errors.New("unsupported sample format")
	ErrNotCFA                  = errors.New("frame has no color filter array pattern")
)

// SensorFrame is a raw sensor capture in ADU, stored row-major.
type SensorFrame struct {
	Width  int
	Height int
	Pixels []uint16
}

// At returns the pixel at column x, row y.
func (f SensorFrame) At(x, y int) uint16 {
	return f.Pixels[y*f.Width+x]
}

// ColorIndexGrid holds, for every sensor pixel, the identifier of the color
// filter covering it. Identifiers index into a ColorDescriptor.
type ColorIndexGrid struct {
	Width   int
	Height  int
	Indices []uint8
}

func (g ColorIndexGrid) At(x, y int) uint8 {
	return g.Indices[y*g.Width+x]
}

// ColorDescriptor maps identifier i to a single-character color code.
type ColorDescriptor []byte

func (d ColorDescriptor) String() string { return string(d) }

// ChannelName identifies one physical filter instance ("R", "G1", "G2", "B").
type ChannelName string

// ChannelPlane holds the pixels of one channel, both as the compacted
// row-major sequence and as its 2D sub-grid. Grid rows alias Pixels.
type ChannelPlane struct {
	Pixels []uint16
	Grid   [][]uint16
}

// Rows returns the number of rows of the sub-grid.
func (p *ChannelPlane) Rows() int { return len(p.Grid) }

// Cols returns the number of columns of the sub-grid.
func (p *ChannelPlane) Cols() int {
	if len(p.Grid) == 0 {
		return 0
	}
	return len(p.Grid[0])
}

// Float64s returns a float64 copy of the plane pixels.
func (p *ChannelPlane) Float64s() []float64 {
	out := make([]float64, len(p.Pixels))
	for i, v := range p.Pixels {
		out[i] = float64(v)
	}
	return out
}

// ColorPlaneSet maps channel names to their planes. Names lists each
// distinct name once, in descriptor order of first appearance.
type ColorPlaneSet struct {
	Names  []ChannelName
	Planes map[ChannelName]*ChannelPlane
}

// Plane returns the plane for name, or ErrMissingChannel.
func (s *ColorPlaneSet) Plane(name ChannelName) (*ChannelPlane, error) {
	p, ok := s.Planes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingChannel, name)
	}
	return p, nil
}

// ChannelShapeMismatchError reports a channel whose pixel count does not fit
// the half-size sub-grid.
type ChannelShapeMismatchError struct {
	Channel  ChannelName
	Expected int
	Actual   int
}

func (e *ChannelShapeMismatchError) Error() string {
	return fmt.Sprintf("channel %s: shape mismatch: expected %d pixels, got %d", e.Channel, e.Expected, e.Actual)
}

func (e *ChannelShapeMismatchError) Unwrap() error { return ErrChannelShapeMismatch }

// UnknownChannelError reports an index grid cell whose identifier has no
// channel name.
type UnknownChannelError struct {
	ID int
	X  int
	Y  int
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel identifier %d at (%d,%d)", e.ID, e.X, e.Y)
}

func (e *UnknownChannelError) Unwrap() error { return ErrUnknownChannel }
