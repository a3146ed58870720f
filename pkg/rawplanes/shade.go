package rawplanes

import (
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var baseShades = map[byte]colorful.Color{
	'R': {R: 1},
	'G': {G: 1},
	'B': {B: 1},
}

var neutralShade = colorful.Color{R: 0.5, G: 0.5, B: 0.5}

// ChannelShade returns a display color for a channel. Repeated instances are
// darkened by their suffix, so G2 is drawn at half the intensity of G1.
// Bases other than R, G and B get a neutral gray.
func ChannelShade(name ChannelName) colorful.Color {
	if name == "" {
		return neutralShade
	}
	base, ok := baseShades[upper(name[0])]
	if !ok {
		return neutralShade
	}
	instance := 1
	if len(name) > 1 {
		if n, err := strconv.Atoi(string(name[1:])); err == nil && n > 0 {
			instance = n
		}
	}
	scale := 1.0 / float64(instance)
	return colorful.Color{R: base.R * scale, G: base.G * scale, B: base.B * scale}
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
