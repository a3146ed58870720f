package rawplanes

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidBadPixelParams = errors.New("invalid bad pixel parameters")

// BadPixelParams controls bad pixel detection.
type BadPixelParams struct {
	FindHot  bool
	FindDead bool
	// Kappa multiplies the residual noise sigma to form the threshold.
	Kappa float64
	// MedianKernel is the median filter aperture on each channel sub-grid (3 or 5).
	MedianKernel int
	// ConfirmRatio is the fraction of frames a pixel must be flagged in.
	ConfirmRatio float64
	// MinDeviation is the smallest residual, in ADU, that can count as bad.
	MinDeviation float64
	// Workers bounds the frames analyzed concurrently; <= 0 means GOMAXPROCS.
	Workers int
}

// DefaultBadPixelParams returns parameters that look for both hot and dead
// pixels confirmed in 90% of frames.
func DefaultBadPixelParams() BadPixelParams {
	return BadPixelParams{
		FindHot:      true,
		FindDead:     true,
		Kappa:        5,
		MedianKernel: 5,
		ConfirmRatio: 0.9,
		MinDeviation: 20,
	}
}

func (p BadPixelParams) validate() error {
	if !p.FindHot && !p.FindDead {
		return fmt.Errorf("%w: nothing to find", ErrInvalidBadPixelParams)
	}
	if p.MedianKernel != 3 && p.MedianKernel != 5 {
		return fmt.Errorf("%w: median kernel must be 3 or 5, got %d", ErrInvalidBadPixelParams, p.MedianKernel)
	}
	if p.Kappa <= 0 {
		return fmt.Errorf("%w: kappa must be positive, got %g", ErrInvalidBadPixelParams, p.Kappa)
	}
	if p.ConfirmRatio <= 0 || p.ConfirmRatio > 1 {
		return fmt.Errorf("%w: confirm ratio must be in (0, 1], got %g", ErrInvalidBadPixelParams, p.ConfirmRatio)
	}
	return nil
}

// PixelCoord is a sensor position: X is the column, Y the row.
type PixelCoord struct {
	X int
	Y int
}

// BadPixelCandidates are the pixels flagged in a single frame, sorted by
// row then column.
type BadPixelCandidates struct {
	Hot  []PixelCoord
	Dead []PixelCoord
}

// BadPixelReport holds the pixels confirmed across a set of frames.
type BadPixelReport struct {
	Frames   int
	Required int
	Hot      []PixelCoord
	Dead     []PixelCoord
}

// FindBadPixelCandidates flags pixels that deviate from the median of their
// own channel's neighborhood by more than the kappa-sigma threshold.
func FindBadPixelCandidates(raw *RawFrame, p BadPixelParams) (*BadPixelCandidates, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	set, err := raw.Planes()
	if err != nil {
		return nil, err
	}

	// A repeated name keeps the plane of its last identifier, so positions
	// must come from that identifier too.
	names := raw.ChannelNames()
	owner := make(map[ChannelName]int, len(names))
	for id, name := range names {
		owner[name] = id
	}
	positions := sourcePositions(raw.Colors, len(names))

	c := &BadPixelCandidates{}
	for _, name := range set.Names {
		plane := set.Planes[name]
		if plane.Rows() == 0 || plane.Cols() == 0 {
			continue
		}
		hot, dead := planeOutliers(plane, p)
		pos := positions[owner[name]]
		for _, i := range hot {
			c.Hot = append(c.Hot, pos[i])
		}
		for _, i := range dead {
			c.Dead = append(c.Dead, pos[i])
		}
	}
	sortCoords(c.Hot)
	sortCoords(c.Dead)
	return c, nil
}

// planeOutliers returns the flat indices of hot and dead pixels in plane.
func planeOutliers(plane *ChannelPlane, p BadPixelParams) (hot, dead []int) {
	src := PlaneToMat(plane)
	defer src.Close()
	med := NewMat()
	defer med.Close()
	medianBlur(src, &med, p.MedianKernel)
	resid := NewMat()
	defer resid.Close()
	absDiff(src, med, &resid)

	noise := KappaSigmaNoiseEstimate(resid, p.Kappa, 0.0001, 10)
	threshold := math.Max(noise.BackgroundMean+p.Kappa*noise.Sigma, p.MinDeviation)

	srcData := src.DataFloat32()
	medData := med.DataFloat32()
	for i := range plane.Pixels {
		d := float64(srcData[i]) - float64(medData[i])
		switch {
		case p.FindHot && d > threshold:
			hot = append(hot, i)
		case p.FindDead && d < -threshold:
			dead = append(dead, i)
		}
	}
	return hot, dead
}

// sourcePositions lists, per identifier, the sensor coordinates of its
// pixels in row-major order, matching the order ExtractPlanes packs them.
func sourcePositions(grid ColorIndexGrid, count int) [][]PixelCoord {
	out := make([][]PixelCoord, count)
	for i, id := range grid.Indices {
		if int(id) < count {
			out[id] = append(out[id], PixelCoord{X: i % grid.Width, Y: i / grid.Width})
		}
	}
	return out
}

func sortCoords(c []PixelCoord) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Y != c[j].Y {
			return c[i].Y < c[j].Y
		}
		return c[i].X < c[j].X
	})
}

// FindBadPixelsInFrames analyzes frames concurrently and keeps the pixels
// flagged in at least ceil(ConfirmRatio * len(frames)) of them.
func FindBadPixelsInFrames(ctx context.Context, frames []*RawFrame, p BadPixelParams) (*BadPixelReport, error) {
	return findBadPixels(ctx, len(frames), p, func(i int) (*BadPixelCandidates, error) {
		return FindBadPixelCandidates(frames[i], p)
	})
}

// FindBadPixels reads and analyzes CFA FITS files concurrently.
func FindBadPixels(ctx context.Context, paths []string, p BadPixelParams) (*BadPixelReport, error) {
	return FindBadPixelsWith(ctx, paths, ReadRawFrame, p)
}

// FindBadPixelsWith is FindBadPixels with a custom frame loader. Each worker
// holds one frame at a time.
func FindBadPixelsWith(ctx context.Context, paths []string, load func(path string) (*RawFrame, error), p BadPixelParams) (*BadPixelReport, error) {
	return findBadPixels(ctx, len(paths), p, func(i int) (*BadPixelCandidates, error) {
		raw, err := load(paths[i])
		if err != nil {
			return nil, err
		}
		c, err := FindBadPixelCandidates(raw, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", paths[i], err)
		}
		return c, nil
	})
}

func findBadPixels(ctx context.Context, n int, p BadPixelParams, analyze func(i int) (*BadPixelCandidates, error)) (*BadPixelReport, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrInvalidBadPixelParams)
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*BadPixelCandidates, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := analyze(i)
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	required := ConfirmCount(p.ConfirmRatio, n)
	hotCounts := make(map[PixelCoord]int)
	deadCounts := make(map[PixelCoord]int)
	for _, c := range results {
		for _, pc := range c.Hot {
			hotCounts[pc]++
		}
		for _, pc := range c.Dead {
			deadCounts[pc]++
		}
	}
	return &BadPixelReport{
		Frames:   n,
		Required: required,
		Hot:      confirmed(hotCounts, required),
		Dead:     confirmed(deadCounts, required),
	}, nil
}

// ConfirmCount is the number of frames out of n a pixel must be flagged in.
// The product is nudged down so representation error in ratio cannot add a
// frame, e.g. 0.07*100 is 7.000000000000001.
func ConfirmCount(ratio float64, n int) int {
	required := int(math.Ceil(ratio*float64(n) - 1e-9))
	if required < 1 {
		required = 1
	}
	return required
}

func confirmed(counts map[PixelCoord]int, required int) []PixelCoord {
	var out []PixelCoord
	for pc, n := range counts {
		if n >= required {
			out = append(out, pc)
		}
	}
	sortCoords(out)
	return out
}

// WriteDcrawBadPixels writes coords in dcraw's bad pixel file format, one
// "col row 0" line per pixel. A zero timestamp marks the pixel bad in every
// image.
func WriteDcrawBadPixels(w io.Writer, coords []PixelCoord) error {
	bw := bufio.NewWriter(w)
	for _, c := range coords {
		if _, err := fmt.Fprintf(bw, "%d %d 0\n", c.X, c.Y); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveDcrawBadPixels writes a dcraw bad pixel file at path.
func SaveDcrawBadPixels(path string, coords []PixelCoord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating bad pixel file: %w", err)
	}
	if err := WriteDcrawBadPixels(f, coords); err != nil {
		f.Close()
		return fmt.Errorf("writing bad pixel file: %w", err)
	}
	return f.Close()
}
