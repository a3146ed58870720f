package rawplanes

import "fmt"

// CFAPattern is a 2x2 color filter tile in row-major order, e.g. "RGGB":
//
//	(even row, even col) = pattern[0]
//	(even row, odd  col) = pattern[1]
//	(odd  row, even col) = pattern[2]
//	(odd  row, odd  col) = pattern[3]
type CFAPattern [4]byte

// ParseCFAPattern parses a four-letter BAYERPAT value.
func ParseCFAPattern(s string) (CFAPattern, error) {
	var p CFAPattern
	if len(s) != len(p) {
		return p, fmt.Errorf("%w: pattern %q is not a 2x2 tile", ErrNotCFA, s)
	}
	for i := 0; i < len(p); i++ {
		c := upper(s[i])
		if c < 'A' || c > 'Z' {
			return p, fmt.Errorf("%w: invalid color code %q in pattern %q", ErrNotCFA, s[i], s)
		}
		p[i] = c
	}
	return p, nil
}

func (p CFAPattern) String() string { return string(p[:]) }

// Descriptor returns the color descriptor for the tile. Each tile position
// gets its own identifier, so identifier i is pattern[i].
func (p CFAPattern) Descriptor() ColorDescriptor {
	d := make(ColorDescriptor, len(p))
	copy(d, p[:])
	return d
}

// IndexGrid lays the tile over a width x height sensor. xOff and yOff shift
// the pattern origin as FITS XBAYROFF/YBAYROFF do.
func (p CFAPattern) IndexGrid(width, height, xOff, yOff int) ColorIndexGrid {
	indices := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		row := ((y + yOff) & 1) * 2
		for x := 0; x < width; x++ {
			indices[y*width+x] = uint8(row + (x+xOff)&1)
		}
	}
	return ColorIndexGrid{Width: width, Height: height, Indices: indices}
}

// RawFrame is a decoded raw capture: the mosaic, its color index grid and the
// descriptor naming each identifier.
type RawFrame struct {
	Frame      SensorFrame
	Colors     ColorIndexGrid
	Descriptor ColorDescriptor
	ColorCount int
	BitDepth   int
	Metadata   *FitsMetadata
}

// Validate checks the decoder contract the extractor relies on.
func (r *RawFrame) Validate() error {
	if r.ColorCount != len(r.Descriptor) {
		return fmt.Errorf("color count %d does not match descriptor %q", r.ColorCount, r.Descriptor)
	}
	if r.Frame.Width != r.Colors.Width || r.Frame.Height != r.Colors.Height {
		return fmt.Errorf("%w: frame %dx%d, grid %dx%d",
			ErrGridMismatch, r.Frame.Width, r.Frame.Height, r.Colors.Width, r.Colors.Height)
	}
	return nil
}

// ChannelNames maps the descriptor to channel names.
func (r *RawFrame) ChannelNames() []ChannelName {
	return MapColorNames(r.ColorCount, r.Descriptor)
}

// Planes extracts the color planes of the frame.
func (r *RawFrame) Planes() (*ColorPlaneSet, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return ExtractPlanes(r.Frame, r.Colors, r.ChannelNames())
}

// NewRawFrame wraps decoded FITS data, deriving the CFA layout from its
// BAYERPAT header.
func NewRawFrame(data *FitsImageData) (*RawFrame, error) {
	patternValue := data.Metadata.BayerPattern()
	if patternValue == "" {
		return nil, fmt.Errorf("%w: missing BAYERPAT header", ErrNotCFA)
	}
	pattern, err := ParseCFAPattern(patternValue)
	if err != nil {
		return nil, err
	}
	xOff, yOff := data.Metadata.BayerOffset()
	desc := pattern.Descriptor()
	return &RawFrame{
		Frame:      SensorFrame{Width: data.Width, Height: data.Height, Pixels: data.Pixels},
		Colors:     pattern.IndexGrid(data.Width, data.Height, xOff, yOff),
		Descriptor: desc,
		ColorCount: len(desc),
		BitDepth:   data.BitDepth,
		Metadata:   data.Metadata,
	}, nil
}

// ReadRawFrame reads a CFA FITS file from disk.
func ReadRawFrame(filePath string) (*RawFrame, error) {
	data, err := ReadFits(filePath)
	if err != nil {
		return nil, err
	}
	frame, err := NewRawFrame(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return frame, nil
}

// ReadRawFrameFromBytes reads a CFA FITS image held in memory.
func ReadRawFrameFromBytes(b []byte) (*RawFrame, error) {
	data, err := ReadFitsFromBytes(b)
	if err != nil {
		return nil, err
	}
	return NewRawFrame(data)
}

// NewMosaicFrame wraps an already decoded mosaic, such as a 16-bit grayscale
// dump of the undemosaiced sensor, with an explicit CFA pattern.
func NewMosaicFrame(frame SensorFrame, pattern CFAPattern, bitDepth int) *RawFrame {
	desc := pattern.Descriptor()
	return &RawFrame{
		Frame:      frame,
		Colors:     pattern.IndexGrid(frame.Width, frame.Height, 0, 0),
		Descriptor: desc,
		ColorCount: len(desc),
		BitDepth:   bitDepth,
		Metadata:   NewFitsMetadata(),
	}
}
