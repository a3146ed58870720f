package main

import (
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rawplanes/internal/monitoring"
	"rawplanes/pkg/rawplanes"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// writeMosaicPNG writes a flat 16-bit grayscale mosaic with a few defects.
func writeMosaicPNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray16(x, y, color.Gray16{Y: 1000})
		}
	}
	img.SetGray16(6, 6, color.Gray16{Y: 9000})
	img.SetGray16(7, 9, color.Gray16{Y: 5})

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestRunUsage(t *testing.T) {
	err := run(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: rawplanes")

	err = run([]string{"convert", "jpeg", "x.fits"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "convert jpeg"`)

	err = run([]string{"convert", "tiff"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no raw files")
}

func TestRunRequiresPatternForImages(t *testing.T) {
	path := writeMosaicPNG(t, t.TempDir(), "mosaic.png")
	err := run([]string{"analyze", "stats", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-pattern")
}

func TestRunConvertTIFF(t *testing.T) {
	path := writeMosaicPNG(t, t.TempDir(), "mosaic.png")

	require.NoError(t, run([]string{"convert", "tiff", "-pattern", "RGGB", "-all-channels", path}))
	for _, name := range []string{"R", "G1", "G2", "B"} {
		assert.FileExists(t, path+"."+name+".tiff")
	}

	require.NoError(t, run([]string{"convert", "tiff", "-pattern", "RGGB", path}))
	assert.FileExists(t, path+".RGB.tiff")

	err := run([]string{"convert", "tiff", "-pattern", "RGGB", "-all-channels", "-uninterpolated-rgb", path})
	assert.Error(t, err)
}

func TestRunConvertFITSWithConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeMosaicPNG(t, dir, "mosaic.png")
	configPath := filepath.Join(dir, "rawplanes.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"fits_channel": "B"}`), 0644))

	require.NoError(t, run([]string{"-config", configPath, "convert", "fits", "-pattern", "RGGB", path}))
	out := path + ".B.fits"
	data, err := rawplanes.ReadFits(out)
	require.NoError(t, err)
	assert.Equal(t, 8, data.Width)
	assert.Equal(t, 8, data.Height)
	assert.Equal(t, "B", data.Metadata.GetString("CHANNEL"))
	assert.Equal(t, "mosaic.png", data.Metadata.GetString("ORIGFILE"))
	assert.Equal(t, "rawplanes "+version, data.Metadata.GetString("PROGRAM"))
	assert.Equal(t, uint16(5), data.Pixels[4*8+3]) // sensor (7,9)

	// The flag wins over the config, and existing output is kept.
	assert.Error(t, run([]string{"-config", configPath, "convert", "fits", "-pattern", "RGGB", path}))
	require.NoError(t, run([]string{"-config", configPath, "convert", "fits", "-pattern", "RGGB", "-channel", "G1", path}))
	assert.FileExists(t, path+".G1.fits")

	err = run([]string{"convert", "fits", "-pattern", "RGGB", "-channel", "G3", path})
	assert.ErrorIs(t, err, rawplanes.ErrMissingChannel)
}

func TestRunConvertCBOR(t *testing.T) {
	path := writeMosaicPNG(t, t.TempDir(), "mosaic.png")
	require.NoError(t, run([]string{"convert", "cbor", "-pattern", "GRBG", path}))

	f, err := os.Open(rawplanes.PlanesCBORPath(path))
	require.NoError(t, err)
	defer f.Close()
	source, set, err := rawplanes.DecodePlanesCBOR(f)
	require.NoError(t, err)
	assert.Equal(t, "mosaic.png", source)
	assert.Equal(t, []rawplanes.ChannelName{"G1", "R", "B", "G2"}, set.Names)
}

func TestRunAnalyze(t *testing.T) {
	dir := t.TempDir()
	path := writeMosaicPNG(t, dir, "mosaic.png")

	require.NoError(t, run([]string{"-v", "analyze", "stats", "-pattern", "RGGB", path}))

	require.NoError(t, run([]string{"analyze", "histogram", "-pattern", "RGGB", "-bins", "16", "-html", path}))
	assert.FileExists(t, path+".histogram.png")
	assert.FileExists(t, path+".histogram.html")

	out := filepath.Join(dir, "custom.svg")
	require.NoError(t, run([]string{"analyze", "histogram", "-pattern", "RGGB", "-out", out, path}))
	assert.FileExists(t, out)
}

func TestRunAnalyzeBadPixels(t *testing.T) {
	dir := t.TempDir()
	a := writeMosaicPNG(t, dir, "dark1.png")
	b := writeMosaicPNG(t, dir, "dark2.png")
	hot := filepath.Join(dir, "hot.txt")
	dead := filepath.Join(dir, "dead.txt")

	require.NoError(t, run([]string{"analyze", "badpixels", "-pattern", "RGGB",
		"-hot-pixel-file", hot, "-dead-pixel-file", dead, "-workers", "2", a, b}))

	data, err := os.ReadFile(hot)
	require.NoError(t, err)
	assert.Equal(t, "6 6 0\n", string(data))
	data, err = os.ReadFile(dead)
	require.NoError(t, err)
	assert.Equal(t, "7 9 0", strings.TrimSpace(string(data)))
}

func TestRunAnalyzePreview(t *testing.T) {
	path := writeMosaicPNG(t, t.TempDir(), "mosaic.png")
	require.NoError(t, run([]string{"analyze", "preview", "-pattern", "RGGB", "-tile-width", "64", "-mark-bad", path}))

	f, err := os.Open(rawplanes.PreviewPath(path))
	require.NoError(t, err)
	defer f.Close()
	img, format, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 128, img.Bounds().Dx())
}
