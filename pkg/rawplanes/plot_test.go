package rawplanes

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHistograms(t *testing.T) (*ColorPlaneSet, map[ChannelName]*Histogram) {
	t.Helper()
	set, err := rggbFrame(t, 32, 32).Planes()
	require.NoError(t, err)
	hists, err := PlaneHistograms(set, 16)
	require.NoError(t, err)
	return set, hists
}

func TestHistogramPlot(t *testing.T) {
	t.Parallel()

	set, hists := testHistograms(t)
	p, err := HistogramPlot(set.Names, hists, 14)
	require.NoError(t, err)
	assert.Equal(t, "RAW Image ADU counts", p.Title.Text)
	assert.Equal(t, 0.0, p.X.Min)
	assert.Equal(t, 16384.0, p.X.Max)

	path := filepath.Join(t.TempDir(), "hist.png")
	require.NoError(t, SaveHistogramPlot(path, set.Names, hists, 14))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestHistogramPlotMissingChannel(t *testing.T) {
	t.Parallel()

	set, hists := testHistograms(t)
	delete(hists, "G2")
	_, err := HistogramPlot(set.Names, hists, 14)
	assert.ErrorIs(t, err, ErrMissingChannel)
}

func TestRenderHistogramChart(t *testing.T) {
	t.Parallel()

	set, hists := testHistograms(t)
	var buf bytes.Buffer
	require.NoError(t, RenderHistogramChart(&buf, "IMG_0001.fits", set.Names, hists, 12))

	html := buf.String()
	assert.Contains(t, html, "RAW Image ADU counts")
	assert.Contains(t, html, "IMG_0001.fits")
	for _, name := range set.Names {
		assert.True(t, strings.Contains(html, `"`+string(name)+`"`), "series %s missing", name)
	}
	assert.Contains(t, html, ChannelShade("G2").Hex())
}
