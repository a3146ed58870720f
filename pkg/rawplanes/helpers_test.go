package rawplanes

import "testing"

// rggbFrame builds a width x height RGGB mosaic where every pixel encodes its
// position (y*width + x) so tests can trace values back to sensor cells.
func rggbFrame(t *testing.T, width, height int) *RawFrame {
	t.Helper()
	pixels := make([]uint16, width*height)
	for i := range pixels {
		pixels[i] = uint16(i)
	}
	pattern, err := ParseCFAPattern("RGGB")
	if err != nil {
		t.Fatalf("ParseCFAPattern: %v", err)
	}
	return NewMosaicFrame(SensorFrame{Width: width, Height: height, Pixels: pixels}, pattern, 16)
}

// flatFrame builds an RGGB mosaic with every pixel set to level.
func flatFrame(t *testing.T, width, height int, level uint16) *RawFrame {
	t.Helper()
	raw := rggbFrame(t, width, height)
	for i := range raw.Frame.Pixels {
		raw.Frame.Pixels[i] = level
	}
	return raw
}
