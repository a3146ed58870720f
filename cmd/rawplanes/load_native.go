//go:build !purego && !js

package main

import (
	"fmt"

	"gocv.io/x/gocv"

	"rawplanes/pkg/rawplanes"
)

// loadMosaicImage reads a single-channel mosaic dump (e.g. dcraw -D -4 -T).
func loadMosaicImage(path string) (rawplanes.SensorFrame, int, error) {
	src := gocv.IMRead(path, gocv.IMReadUnchanged)
	if src.Empty() {
		return rawplanes.SensorFrame{}, 0, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	if src.Channels() != 1 {
		return rawplanes.SensorFrame{}, 0, fmt.Errorf("%s: mosaic must be single channel, got %d", path, src.Channels())
	}

	bitDepth := 16
	mat := src
	if src.Type() == gocv.MatTypeCV8U {
		converted := gocv.NewMat()
		defer converted.Close()
		src.ConvertTo(&converted, gocv.MatTypeCV16U)
		mat = converted
		bitDepth = 8
	} else if src.Type() != gocv.MatTypeCV16U {
		return rawplanes.SensorFrame{}, 0, fmt.Errorf("%s: unsupported mosaic pixel type %v", path, src.Type())
	}

	w, h := mat.Cols(), mat.Rows()
	data, err := mat.DataPtrUint16()
	if err != nil {
		return rawplanes.SensorFrame{}, 0, fmt.Errorf("reading pixels: %w", err)
	}
	pixels := make([]uint16, w*h)
	copy(pixels, data[:w*h])

	return rawplanes.SensorFrame{Width: w, Height: h, Pixels: pixels}, bitDepth, nil
}
