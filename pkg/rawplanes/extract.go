package rawplanes

import "fmt"

// ExtractPlanes splits frame into one plane per channel name, using grid to
// decide which channel each pixel belongs to.
//
// Pixels keep row-major scan order. Each plane is reshaped to half the frame
// size in both dimensions (floor), which holds for 2x2 Bayer tiles; any other
// layout fails with a *ChannelShapeMismatchError. Identifiers in grid with no
// matching name fail with an *UnknownChannelError. No partial result is
// returned on error.
func ExtractPlanes(frame SensorFrame, grid ColorIndexGrid, names []ChannelName) (*ColorPlaneSet, error) {
	if frame.Width != grid.Width || frame.Height != grid.Height {
		return nil, fmt.Errorf("%w: frame %dx%d, grid %dx%d",
			ErrGridMismatch, frame.Width, frame.Height, grid.Width, grid.Height)
	}
	numPixels := frame.Width * frame.Height
	if len(frame.Pixels) != numPixels || len(grid.Indices) != numPixels {
		return nil, fmt.Errorf("%w: expected %d cells, frame has %d, grid has %d",
			ErrGridMismatch, numPixels, len(frame.Pixels), len(grid.Indices))
	}

	// Validate and count in one pass so no plane is built from a bad grid.
	counts := make([]int, len(names))
	for i, id := range grid.Indices {
		if int(id) >= len(names) {
			return nil, &UnknownChannelError{ID: int(id), X: i % grid.Width, Y: i / grid.Width}
		}
		counts[id]++
	}

	buckets := make([][]uint16, len(names))
	for id := range buckets {
		buckets[id] = make([]uint16, 0, counts[id])
	}
	for i, id := range grid.Indices {
		buckets[id] = append(buckets[id], frame.Pixels[i])
	}

	rows, cols := frame.Height/2, frame.Width/2
	set := &ColorPlaneSet{
		Names:  make([]ChannelName, 0, len(names)),
		Planes: make(map[ChannelName]*ChannelPlane, len(names)),
	}
	for id, name := range names {
		g, err := reshape(buckets[id], rows, cols)
		if err != nil {
			return nil, &ChannelShapeMismatchError{Channel: name, Expected: rows * cols, Actual: len(buckets[id])}
		}
		if _, seen := set.Planes[name]; !seen {
			set.Names = append(set.Names, name)
		}
		set.Planes[name] = &ChannelPlane{Pixels: buckets[id], Grid: g}
	}
	return set, nil
}

func reshape(flat []uint16, rows, cols int) ([][]uint16, error) {
	if len(flat) != rows*cols {
		return nil, fmt.Errorf("cannot reshape %d values into %dx%d", len(flat), rows, cols)
	}
	out := make([][]uint16, rows)
	for r := 0; r < rows; r++ {
		out[r] = flat[r*cols : (r+1)*cols : (r+1)*cols]
	}
	return out, nil
}
