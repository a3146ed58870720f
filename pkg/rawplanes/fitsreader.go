package rawplanes

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	fitsCardSize  = 80
	fitsBlockSize = 2880
	fitsCardsPer  = fitsBlockSize / fitsCardSize

	// maxFitsPixels bounds the frames ReadFitsFrom will allocate.
	maxFitsPixels = 1 << 28
)

// FitsMetadata holds parsed FITS header key-value pairs.
type FitsMetadata struct {
	Headers map[string]string
}

// NewFitsMetadata creates an empty FitsMetadata.
func NewFitsMetadata() *FitsMetadata {
	return &FitsMetadata{Headers: make(map[string]string)}
}

func (m *FitsMetadata) GetString(key string) string {
	if v, ok := m.Headers[strings.ToUpper(key)]; ok {
		return v
	}
	return ""
}

func (m *FitsMetadata) GetDouble(key string) (float64, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (m *FitsMetadata) GetInt(key string) (int, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

func (m *FitsMetadata) CameraName() string   { return m.GetString("INSTRUME") }
func (m *FitsMetadata) ImageType() string    { return m.GetString("IMAGETYP") }
func (m *FitsMetadata) BayerPattern() string { return strings.ToUpper(m.GetString("BAYERPAT")) }

// BayerOffset returns the XBAYROFF/YBAYROFF pattern shift, zero when absent.
func (m *FitsMetadata) BayerOffset() (int, int) {
	x, _ := m.GetInt("XBAYROFF")
	y, _ := m.GetInt("YBAYROFF")
	return x, y
}

func (m *FitsMetadata) ExposureTime() (float64, bool) {
	if v, ok := m.GetDouble("EXPTIME"); ok {
		return v, true
	}
	return m.GetDouble("EXPOSURE")
}

func (m *FitsMetadata) Gain() (float64, bool)       { return m.GetDouble("GAIN") }
func (m *FitsMetadata) SensorTemp() (float64, bool) { return m.GetDouble("CCD-TEMP") }

// FitsImageData holds a decoded FITS primary image clamped to uint16 ADU.
type FitsImageData struct {
	Pixels   []uint16
	Width    int
	Height   int
	BitDepth int
	Metadata *FitsMetadata
}

// ReadFits reads FITS headers and pixel data from a file.
func ReadFits(filePath string) (*FitsImageData, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return ReadFitsFrom(f)
}

// ReadFitsFromBytes reads FITS headers and pixel data from a byte slice.
func ReadFitsFromBytes(data []byte) (*FitsImageData, error) {
	return ReadFitsFrom(bytes.NewReader(data))
}

// ReadFitsFrom reads FITS headers and pixel data from r.
func ReadFitsFrom(r io.Reader) (*FitsImageData, error) {
	var bitpix, naxis, width, height int
	bzero := 0.0
	bscale := 1.0
	headerDone := false
	metadata := NewFitsMetadata()

	recordBuf := make([]byte, fitsCardSize)

	for !headerDone {
		for i := 0; i < fitsCardsPer; i++ {
			if _, err := io.ReadFull(r, recordBuf); err != nil {
				return nil, fmt.Errorf("reading FITS header record: %w", err)
			}
			record := string(recordBuf)
			keyword := strings.TrimSpace(record[:8])

			if keyword == "END" {
				headerDone = true
				if remaining := fitsCardsPer - 1 - i; remaining > 0 {
					if _, err := io.CopyN(io.Discard, r, int64(remaining*fitsCardSize)); err != nil {
						return nil, fmt.Errorf("skipping FITS header padding: %w", err)
					}
				}
				break
			}

			if record[8] == '=' && record[9] == ' ' {
				rawValue := strings.TrimSpace(splitFitsComment(record[10:]))
				parsedValue := parseFitsValue(rawValue)

				if keyword != "" && parsedValue != "" {
					metadata.Headers[strings.ToUpper(keyword)] = parsedValue
				}

				switch keyword {
				case "BITPIX":
					bitpix, _ = strconv.Atoi(rawValue)
				case "NAXIS":
					naxis, _ = strconv.Atoi(rawValue)
				case "NAXIS1":
					width, _ = strconv.Atoi(rawValue)
				case "NAXIS2":
					height, _ = strconv.Atoi(rawValue)
				case "BZERO":
					bzero, _ = strconv.ParseFloat(rawValue, 64)
				case "BSCALE":
					bscale, _ = strconv.ParseFloat(rawValue, 64)
				}
			}
		}
	}

	if naxis < 2 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid FITS: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", naxis, width, height)
	}
	if width > maxFitsPixels/height {
		return nil, fmt.Errorf("invalid FITS: %dx%d exceeds %d pixels", width, height, maxFitsPixels)
	}
	switch bitpix {
	case 8, 16, 32, -32:
	default:
		return nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}

	effectiveBpp := 16
	if bitpix == 8 {
		effectiveBpp = 8
	}

	numPixels := width * height
	pixels := make([]uint16, numPixels)
	physical := func(v float64) uint16 {
		return uint16(clampFloat64(v*bscale+bzero, 0, 65535))
	}

	switch bitpix {
	case 16:
		rawBytes := make([]byte, numPixels*2)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 16-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			pixels[i] = physical(float64(int16(binary.BigEndian.Uint16(rawBytes[i*2:]))))
		}

	case -32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -32 float pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			pixels[i] = physical(float64(math.Float32frombits(binary.BigEndian.Uint32(rawBytes[i*4:]))))
		}

	case 8:
		rawBytes := make([]byte, numPixels)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 8-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			pixels[i] = physical(float64(rawBytes[i]))
		}

	case 32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 32-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			pixels[i] = physical(float64(int32(binary.BigEndian.Uint32(rawBytes[i*4:]))))
		}

	default:
		return nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}

	return &FitsImageData{
		Pixels:   pixels,
		Width:    width,
		Height:   height,
		BitDepth: effectiveBpp,
		Metadata: metadata,
	}, nil
}

func clampFloat64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// splitFitsComment drops a trailing "/ comment", ignoring slashes inside
// quoted strings.
func splitFitsComment(s string) string {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case '/':
			if !inQuote {
				return s[:i]
			}
		}
	}
	return s
}

func parseFitsValue(rawValue string) string {
	if rawValue == "" {
		return ""
	}
	if rawValue == "T" {
		return "True"
	}
	if rawValue == "F" {
		return "False"
	}
	if strings.HasPrefix(rawValue, "'") {
		endQuote := strings.LastIndex(rawValue, "'")
		if endQuote > 0 {
			return strings.ReplaceAll(strings.TrimRight(rawValue[1:endQuote], " "), "''", "'")
		}
		return strings.TrimLeft(strings.TrimRight(rawValue, " "), "'")
	}
	return rawValue
}
