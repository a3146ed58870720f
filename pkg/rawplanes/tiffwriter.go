package rawplanes

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"golang.org/x/image/tiff"
)

// SampleFormat is the per-channel TIFF sample type.
type SampleFormat int

const (
	SampleUint16 SampleFormat = iota
	SampleUint8
	SampleFloat32
)

func (f SampleFormat) String() string {
	switch f {
	case SampleUint8:
		return "uint8"
	case SampleUint16:
		return "uint16"
	case SampleFloat32:
		return "float32"
	default:
		return "unknown"
	}
}

// ParseSampleFormat accepts "uint8", "uint16" or "float32".
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch s {
	case "uint8":
		return SampleUint8, nil
	case "uint16":
		return SampleUint16, nil
	case "float32":
		return SampleFloat32, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedSampleFormat, s)
	}
}

// TIFFOptions configures TIFF export.
type TIFFOptions struct {
	Format SampleFormat
	// BitDepth is the raw ADC depth, used to scale samples down to uint8.
	BitDepth int
	Compress bool
}

func (o TIFFOptions) encoderOptions() *tiff.Options {
	if o.Compress {
		return &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	}
	return &tiff.Options{Compression: tiff.Uncompressed}
}

// ChannelTIFFPath returns "<raw>.<channel>.tiff".
func ChannelTIFFPath(rawPath string, name ChannelName) string {
	return rawPath + "." + string(name) + ".tiff"
}

// RGBTIFFPath returns "<raw>.RGB.tiff".
func RGBTIFFPath(rawPath string) string {
	return rawPath + ".RGB.tiff"
}

// WriteChannelTIFFs writes one grayscale TIFF per channel next to rawPath and
// returns the paths written.
func WriteChannelTIFFs(rawPath string, set *ColorPlaneSet, opts TIFFOptions) ([]string, error) {
	paths := make([]string, 0, len(set.Names))
	for _, name := range set.Names {
		path := ChannelTIFFPath(rawPath, name)
		img, err := channelImage(set.Planes[name], opts)
		if err != nil {
			return paths, fmt.Errorf("channel %s: %w", name, err)
		}
		if err := writeTIFF(path, img, opts); err != nil {
			return paths, fmt.Errorf("channel %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// EncodeChannelTIFF writes a single channel as a grayscale TIFF to w.
func EncodeChannelTIFF(w io.Writer, plane *ChannelPlane, opts TIFFOptions) error {
	img, err := channelImage(plane, opts)
	if err != nil {
		return err
	}
	return tiff.Encode(w, img, opts.encoderOptions())
}

// WriteRGBTIFF writes an uninterpolated 16-bit RGB TIFF built from the R, B
// and averaged G1/G2 planes. The green average is floored.
func WriteRGBTIFF(rawPath string, set *ColorPlaneSet, opts TIFFOptions) (string, error) {
	img, err := RGBImage(set)
	if err != nil {
		return "", err
	}
	path := RGBTIFFPath(rawPath)
	return path, writeTIFF(path, img, opts)
}

// RGBImage combines the Bayer planes into one half-size RGB image.
func RGBImage(set *ColorPlaneSet) (*image.RGBA64, error) {
	var planes [4]*ChannelPlane
	for i, name := range []ChannelName{"R", "G1", "G2", "B"} {
		p, err := set.Plane(name)
		if err != nil {
			return nil, err
		}
		planes[i] = p
	}
	r, g1, g2, b := planes[0], planes[1], planes[2], planes[3]
	rows, cols := r.Rows(), r.Cols()
	img := image.NewRGBA64(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			green := (uint32(g1.Grid[y][x]) + uint32(g2.Grid[y][x])) / 2
			img.SetRGBA64(x, y, color.RGBA64{
				R: r.Grid[y][x],
				G: uint16(green),
				B: b.Grid[y][x],
				A: 0xffff,
			})
		}
	}
	return img, nil
}

func channelImage(plane *ChannelPlane, opts TIFFOptions) (image.Image, error) {
	rows, cols := plane.Rows(), plane.Cols()
	rect := image.Rect(0, 0, cols, rows)
	switch opts.Format {
	case SampleUint16:
		img := image.NewGray16(rect)
		for y, row := range plane.Grid {
			off := y * img.Stride
			for x, v := range row {
				img.Pix[off+2*x] = uint8(v >> 8)
				img.Pix[off+2*x+1] = uint8(v)
			}
		}
		return img, nil
	case SampleUint8:
		shift := 0
		if opts.BitDepth > 8 {
			shift = opts.BitDepth - 8
		}
		img := image.NewGray(rect)
		for y, row := range plane.Grid {
			off := y * img.Stride
			for x, v := range row {
				s := v >> shift
				if s > 0xff {
					s = 0xff
				}
				img.Pix[off+x] = uint8(s)
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%w: %s TIFF samples cannot be encoded", ErrUnsupportedSampleFormat, opts.Format)
	}
}

func writeTIFF(path string, img image.Image, opts TIFFOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating TIFF file: %w", err)
	}
	if err := tiff.Encode(f, img, opts.encoderOptions()); err != nil {
		f.Close()
		return fmt.Errorf("encoding TIFF: %w", err)
	}
	return f.Close()
}
