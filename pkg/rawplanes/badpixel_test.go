package rawplanes

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setPixel(raw *RawFrame, x, y int, v uint16) {
	raw.Frame.Pixels[y*raw.Frame.Width+x] = v
}

func TestFindBadPixelCandidates(t *testing.T) {
	t.Parallel()

	raw := flatFrame(t, 16, 16, 1000)
	setPixel(raw, 6, 6, 5000) // R
	setPixel(raw, 7, 9, 10)   // B
	setPixel(raw, 9, 2, 1010) // G1, within the minimum deviation

	c, err := FindBadPixelCandidates(raw, DefaultBadPixelParams())
	require.NoError(t, err)
	assert.Equal(t, []PixelCoord{{X: 6, Y: 6}}, c.Hot)
	assert.Equal(t, []PixelCoord{{X: 7, Y: 9}}, c.Dead)
}

func TestFindBadPixelCandidatesHotOnly(t *testing.T) {
	t.Parallel()

	raw := flatFrame(t, 16, 16, 1000)
	setPixel(raw, 6, 6, 5000)
	setPixel(raw, 7, 9, 10)

	p := DefaultBadPixelParams()
	p.FindDead = false
	p.MedianKernel = 3
	c, err := FindBadPixelCandidates(raw, p)
	require.NoError(t, err)
	assert.Equal(t, []PixelCoord{{X: 6, Y: 6}}, c.Hot)
	assert.Empty(t, c.Dead)
}

func TestFindBadPixelCandidatesFlatFrame(t *testing.T) {
	t.Parallel()

	c, err := FindBadPixelCandidates(flatFrame(t, 16, 16, 800), DefaultBadPixelParams())
	require.NoError(t, err)
	assert.Empty(t, c.Hot)
	assert.Empty(t, c.Dead)
}

func TestBadPixelParamsValidate(t *testing.T) {
	t.Parallel()

	raw := flatFrame(t, 4, 4, 100)
	mutate := []func(*BadPixelParams){
		func(p *BadPixelParams) { p.FindHot, p.FindDead = false, false },
		func(p *BadPixelParams) { p.MedianKernel = 7 },
		func(p *BadPixelParams) { p.Kappa = 0 },
		func(p *BadPixelParams) { p.ConfirmRatio = 1.5 },
	}
	for i, m := range mutate {
		p := DefaultBadPixelParams()
		m(&p)
		_, err := FindBadPixelCandidates(raw, p)
		assert.ErrorIs(t, err, ErrInvalidBadPixelParams, "case %d", i)
	}
}

func TestConfirmCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 9, ConfirmCount(0.9, 10))
	assert.Equal(t, 3, ConfirmCount(1, 3))
	assert.Equal(t, 1, ConfirmCount(0.01, 3))
	assert.Equal(t, 2, ConfirmCount(0.5, 3))
	assert.Equal(t, 7, ConfirmCount(0.07, 100))
	assert.Equal(t, 29, ConfirmCount(0.29, 100))
	assert.Equal(t, 8, ConfirmCount(0.071, 100))
}

func TestFindBadPixelsInFramesConfirmRatio(t *testing.T) {
	t.Parallel()

	frames := make([]*RawFrame, 3)
	for i := range frames {
		frames[i] = flatFrame(t, 16, 16, 1000)
		setPixel(frames[i], 6, 6, 4000)
	}
	// Only the first frame has this one, like a cosmic ray hit.
	setPixel(frames[0], 10, 4, 4000)

	p := DefaultBadPixelParams()
	p.Workers = 2

	p.ConfirmRatio = 1
	report, err := FindBadPixelsInFrames(context.Background(), frames, p)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Frames)
	assert.Equal(t, 3, report.Required)
	assert.Equal(t, []PixelCoord{{X: 6, Y: 6}}, report.Hot)
	assert.Empty(t, report.Dead)

	p.ConfirmRatio = 0.3
	report, err = FindBadPixelsInFrames(context.Background(), frames, p)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Required)
	assert.Equal(t, []PixelCoord{{X: 10, Y: 4}, {X: 6, Y: 6}}, report.Hot)
}

func TestFindBadPixelsFromFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for i := 0; i < 4; i++ {
		raw := flatFrame(t, 16, 16, 2000)
		setPixel(raw, 3, 5, 0) // B
		data := encodeMosaicFITS(t, 16, 16, raw.Frame.Pixels, fitsStringCard("BAYERPAT", "RGGB", ""))
		path := filepath.Join(dir, "dark_"+string(rune('a'+i))+".fits")
		require.NoError(t, os.WriteFile(path, data, 0644))
		paths = append(paths, path)
	}

	report, err := FindBadPixels(context.Background(), paths, DefaultBadPixelParams())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Required)
	assert.Empty(t, report.Hot)
	assert.Equal(t, []PixelCoord{{X: 3, Y: 5}}, report.Dead)

	_, err = FindBadPixels(context.Background(), append(paths, filepath.Join(dir, "missing.fits")), DefaultBadPixelParams())
	assert.Error(t, err)
}

func TestFindBadPixelsCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FindBadPixelsInFrames(ctx, []*RawFrame{flatFrame(t, 8, 8, 10)}, DefaultBadPixelParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindBadPixelsNoFrames(t *testing.T) {
	t.Parallel()

	_, err := FindBadPixelsInFrames(context.Background(), nil, DefaultBadPixelParams())
	assert.ErrorIs(t, err, ErrInvalidBadPixelParams)
}

func TestWriteDcrawBadPixels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteDcrawBadPixels(&buf, []PixelCoord{{X: 6, Y: 6}, {X: 120, Y: 7}}))
	assert.Equal(t, "6 6 0\n120 7 0\n", buf.String())

	path := filepath.Join(t.TempDir(), "hot.txt")
	require.NoError(t, SaveDcrawBadPixels(path, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestPlaneToMat(t *testing.T) {
	t.Parallel()

	set, err := rggbFrame(t, 6, 4).Planes()
	require.NoError(t, err)
	m := PlaneToMat(set.Planes["B"])
	defer m.Close()
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, []float32{7, 9, 11, 19, 21, 23}, m.DataFloat32())
}
