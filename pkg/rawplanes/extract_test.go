package rawplanes

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlanesBayer4x4(t *testing.T) {
	t.Parallel()

	raw := rggbFrame(t, 4, 4)
	set, err := raw.Planes()
	require.NoError(t, err)

	assert.Equal(t, []ChannelName{"R", "G1", "G2", "B"}, set.Names)

	// Pixel values are their flat index, so each plane lists the sensor
	// cells it covers in row-major order.
	want := map[ChannelName][][]uint16{
		"R":  {{0, 2}, {8, 10}},
		"G1": {{1, 3}, {9, 11}},
		"G2": {{4, 6}, {12, 14}},
		"B":  {{5, 7}, {13, 15}},
	}
	for name, grid := range want {
		p, err := set.Plane(name)
		require.NoError(t, err)
		assert.Len(t, p.Pixels, 4)
		assert.Equal(t, 2, p.Rows())
		assert.Equal(t, 2, p.Cols())
		if diff := cmp.Diff(grid, p.Grid); diff != "" {
			t.Errorf("plane %s mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestExtractPlanesPartition(t *testing.T) {
	t.Parallel()

	for _, size := range [][2]int{{2, 2}, {6, 4}, {16, 10}, {30, 24}} {
		raw := rggbFrame(t, size[0], size[1])
		set, err := raw.Planes()
		require.NoError(t, err)

		seen := make(map[uint16]bool)
		total := 0
		for _, name := range set.Names {
			for _, v := range set.Planes[name].Pixels {
				assert.False(t, seen[v], "pixel %d in more than one plane", v)
				seen[v] = true
			}
			total += len(set.Planes[name].Pixels)
		}
		assert.Equal(t, size[0]*size[1], total, "size %v", size)
	}
}

func TestExtractPlanesReshapeRoundTrip(t *testing.T) {
	t.Parallel()

	set, err := rggbFrame(t, 12, 8).Planes()
	require.NoError(t, err)

	for _, name := range set.Names {
		p := set.Planes[name]
		var flat []uint16
		for _, row := range p.Grid {
			flat = append(flat, row...)
		}
		if diff := cmp.Diff(p.Pixels, flat); diff != "" {
			t.Errorf("plane %s flatten mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestExtractPlanesDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	raw := rggbFrame(t, 4, 4)
	pixels := append([]uint16(nil), raw.Frame.Pixels...)
	indices := append([]uint8(nil), raw.Colors.Indices...)

	set, err := raw.Planes()
	require.NoError(t, err)
	set.Planes["R"].Grid[0][0] = 999

	assert.Equal(t, pixels, raw.Frame.Pixels)
	assert.Equal(t, indices, raw.Colors.Indices)
}

func TestExtractPlanesShapeMismatch(t *testing.T) {
	t.Parallel()

	frame := SensorFrame{Width: 4, Height: 2, Pixels: make([]uint16, 8)}
	// Identifier 0 covers three cells and identifier 1 the remaining five,
	// so neither fits the 2x1 sub-grid.
	grid := ColorIndexGrid{Width: 4, Height: 2, Indices: []uint8{0, 0, 0, 1, 1, 1, 1, 1}}

	_, err := ExtractPlanes(frame, grid, []ChannelName{"R", "B"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChannelShapeMismatch))

	var shapeErr *ChannelShapeMismatchError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, ChannelName("R"), shapeErr.Channel)
	assert.Equal(t, 2, shapeErr.Expected)
	assert.Equal(t, 3, shapeErr.Actual)
}

func TestExtractPlanesOddDimensions(t *testing.T) {
	t.Parallel()

	// A 5x4 RGGB frame gives R and G2 three columns but the target is floor(5/2)=2.
	_, err := rggbFrame(t, 5, 4).Planes()
	var shapeErr *ChannelShapeMismatchError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, ChannelName("R"), shapeErr.Channel)
	assert.Equal(t, 4, shapeErr.Expected)
	assert.Equal(t, 6, shapeErr.Actual)
}

func TestExtractPlanesUnknownIdentifier(t *testing.T) {
	t.Parallel()

	frame := SensorFrame{Width: 2, Height: 2, Pixels: []uint16{1, 2, 3, 4}}
	grid := ColorIndexGrid{Width: 2, Height: 2, Indices: []uint8{0, 1, 2, 4}}

	set, err := ExtractPlanes(frame, grid, []ChannelName{"R", "G1", "G2", "B"})
	assert.Nil(t, set)
	require.ErrorIs(t, err, ErrUnknownChannel)

	var idErr *UnknownChannelError
	require.True(t, errors.As(err, &idErr))
	assert.Equal(t, 4, idErr.ID)
	assert.Equal(t, 1, idErr.X)
	assert.Equal(t, 1, idErr.Y)
}

func TestExtractPlanesGridMismatch(t *testing.T) {
	t.Parallel()

	frame := SensorFrame{Width: 2, Height: 2, Pixels: []uint16{1, 2, 3, 4}}

	_, err := ExtractPlanes(frame, ColorIndexGrid{Width: 4, Height: 1, Indices: make([]uint8, 4)}, []ChannelName{"R"})
	assert.ErrorIs(t, err, ErrGridMismatch)

	_, err = ExtractPlanes(frame, ColorIndexGrid{Width: 2, Height: 2, Indices: make([]uint8, 3)}, []ChannelName{"R"})
	assert.ErrorIs(t, err, ErrGridMismatch)
}

func TestExtractPlanesDuplicateNameLastWins(t *testing.T) {
	t.Parallel()

	frame := SensorFrame{Width: 2, Height: 2, Pixels: []uint16{10, 20, 30, 40}}
	grid := ColorIndexGrid{Width: 2, Height: 2, Indices: []uint8{0, 1, 2, 3}}
	names := MapColorNames(4, ColorDescriptor("RGBB"))

	set, err := ExtractPlanes(frame, grid, names)
	require.NoError(t, err)
	assert.Equal(t, []ChannelName{"R", "G1", "B"}, set.Names)
	assert.Equal(t, []uint16{40}, set.Planes["B"].Pixels)
}

func TestColorPlaneSetMissingChannel(t *testing.T) {
	t.Parallel()

	set, err := rggbFrame(t, 2, 2).Planes()
	require.NoError(t, err)
	_, err = set.Plane("G3")
	assert.ErrorIs(t, err, ErrMissingChannel)
}
