//go:build purego || js

package main

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"

	"rawplanes/pkg/rawplanes"
)

// loadMosaicImage reads a single-channel mosaic dump (e.g. dcraw -D -4 -T).
func loadMosaicImage(path string) (rawplanes.SensorFrame, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return rawplanes.SensorFrame{}, 0, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return rawplanes.SensorFrame{}, 0, fmt.Errorf("decoding image: %w", err)
	}

	bitDepth := 16
	switch img.ColorModel() {
	case color.Gray16Model:
	case color.GrayModel:
		bitDepth = 8
	default:
		return rawplanes.SensorFrame{}, 0, fmt.Errorf("%s: mosaic must be grayscale", path)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			if bitDepth == 8 {
				pixels[y*w+x] = g.Y >> 8
			} else {
				pixels[y*w+x] = g.Y
			}
		}
	}

	return rawplanes.SensorFrame{Width: w, Height: h, Pixels: pixels}, bitDepth, nil
}
