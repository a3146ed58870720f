package rawplanes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// RFC 8746 tags.
const (
	tagMultiDimArray = 40
	tagUint16LE      = 69
)

type planeDump struct {
	Source   string              `cbor:"source,omitempty"`
	Order    []string            `cbor:"order"`
	Channels map[string]cbor.Tag `cbor:"channels"`
}

// PlanesCBORPath returns "<raw>.planes.cbor".
func PlanesCBORPath(rawPath string) string {
	return rawPath + ".planes.cbor"
}

// WritePlanesCBOR writes every plane of set as a row-major multi-dimensional
// uint16 array.
func WritePlanesCBOR(path, source string, set *ColorPlaneSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CBOR file: %w", err)
	}
	if err := EncodePlanesCBOR(f, source, set); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodePlanesCBOR writes the CBOR plane dump to w.
func EncodePlanesCBOR(w io.Writer, source string, set *ColorPlaneSet) error {
	dump := planeDump{
		Source:   source,
		Order:    make([]string, 0, len(set.Names)),
		Channels: make(map[string]cbor.Tag, len(set.Names)),
	}
	for _, name := range set.Names {
		p := set.Planes[name]
		data := make([]byte, 2*len(p.Pixels))
		for i, v := range p.Pixels {
			binary.LittleEndian.PutUint16(data[2*i:], v)
		}
		dump.Order = append(dump.Order, string(name))
		dump.Channels[string(name)] = cbor.Tag{
			Number: tagMultiDimArray,
			Content: []any{
				[]int{p.Rows(), p.Cols()},
				cbor.Tag{Number: tagUint16LE, Content: data},
			},
		}
	}
	if err := cbor.NewEncoder(w).Encode(dump); err != nil {
		return fmt.Errorf("encoding CBOR planes: %w", err)
	}
	return nil
}

// DecodePlanesCBOR reads a plane dump written by EncodePlanesCBOR.
func DecodePlanesCBOR(r io.Reader) (string, *ColorPlaneSet, error) {
	var dump planeDump
	if err := cbor.NewDecoder(r).Decode(&dump); err != nil {
		return "", nil, fmt.Errorf("decoding CBOR planes: %w", err)
	}
	set := &ColorPlaneSet{Planes: make(map[ChannelName]*ChannelPlane, len(dump.Order))}
	for _, key := range dump.Order {
		tag, ok := dump.Channels[key]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrMissingChannel, key)
		}
		plane, err := decodePlaneTag(tag)
		if err != nil {
			return "", nil, fmt.Errorf("channel %s: %w", key, err)
		}
		set.Names = append(set.Names, ChannelName(key))
		set.Planes[ChannelName(key)] = plane
	}
	return dump.Source, set, nil
}

func decodePlaneTag(tag cbor.Tag) (*ChannelPlane, error) {
	if tag.Number != tagMultiDimArray {
		return nil, fmt.Errorf("expected multidim tag %d, got %d", tagMultiDimArray, tag.Number)
	}
	items, ok := tag.Content.([]any)
	if !ok || len(items) != 2 {
		return nil, errors.New("invalid multidim array content")
	}
	dims, ok := items[0].([]any)
	if !ok || len(dims) != 2 {
		return nil, errors.New("invalid multidim dimensions")
	}
	rows, rowsOK := dims[0].(uint64)
	cols, colsOK := dims[1].(uint64)
	if !rowsOK || !colsOK {
		return nil, errors.New("invalid multidim dimensions")
	}
	typed, ok := items[1].(cbor.Tag)
	if !ok || typed.Number != tagUint16LE {
		return nil, errors.New("expected uint16 little-endian typed array")
	}
	data, ok := typed.Content.([]byte)
	if !ok || len(data)%2 != 0 {
		return nil, errors.New("invalid typed array payload")
	}
	if rows > math.MaxInt32 || cols > math.MaxInt32 || rows*cols != uint64(len(data)/2) {
		return nil, fmt.Errorf("%w: dimensions %dx%d for %d values", ErrChannelShapeMismatch, rows, cols, len(data)/2)
	}
	pixels := make([]uint16, len(data)/2)
	for i := range pixels {
		pixels[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	grid, err := reshape(pixels, int(rows), int(cols))
	if err != nil {
		return nil, err
	}
	return &ChannelPlane{Pixels: pixels, Grid: grid}, nil
}
