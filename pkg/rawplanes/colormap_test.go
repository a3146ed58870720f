package rawplanes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestMapColorNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		desc string
		want []ChannelName
	}{
		{"libraw RGBG", "RGBG", []ChannelName{"R", "G1", "B", "G2"}},
		{"RGGB tile", "RGGB", []ChannelName{"R", "G1", "G2", "B"}},
		{"GRBG tile", "GRBG", []ChannelName{"G1", "R", "B", "G2"}},
		{"three colors", "RGB", []ChannelName{"R", "G1", "B"}},
		{"lowercase green is not green", "RgGB", []ChannelName{"R", "g", "G1", "B"}},
		{"CYGM has one green", "CYGM", []ChannelName{"C", "Y", "G1", "M"}},
		{"empty", "", []ChannelName{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapColorNames(len(tt.desc), ColorDescriptor(tt.desc))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MapColorNames(%q) mismatch (-want +got):\n%s", tt.desc, diff)
			}
		})
	}
}

func TestMapColorNamesGreenSuffixesIncrease(t *testing.T) {
	t.Parallel()

	names := MapColorNames(6, ColorDescriptor("GGRGBG"))
	assert.Equal(t, []ChannelName{"G1", "G2", "R", "G3", "B", "G4"}, names)

	seen := make(map[ChannelName]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate name %s", n)
		seen[n] = true
	}
}

func TestMapColorNamesRepeatedNonGreenCollide(t *testing.T) {
	t.Parallel()

	// Only green gets a suffix, so a second blue filter reuses "B".
	names := MapColorNames(4, ColorDescriptor("RGBB"))
	assert.Equal(t, []ChannelName{"R", "G1", "B", "B"}, names)
}
