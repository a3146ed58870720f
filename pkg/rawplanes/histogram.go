package rawplanes

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Histogram holds uniform-width bin counts and their bins+1 edges.
type Histogram struct {
	Counts []int
	Edges  []float64
}

// ComputeBinEdges returns bins+1 uniform edges spanning [min, max] of values.
// The last edge is set to the true maximum rather than min+bins*delta so
// rounding can never leave the maximum outside the last bin.
func ComputeBinEdges(values []float64, bins int) ([]float64, error) {
	if len(values) == 0 {
		return nil, ErrEmptyHistogramInput
	}
	if bins < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBinCount, bins)
	}
	lo, hi := floats.Min(values), floats.Max(values)
	delta := (hi - lo) / float64(bins)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*delta
	}
	edges[bins] = hi
	return edges, nil
}

// AssignBin returns the bin index for x. Bin k covers [edges[k], edges[k+1]);
// the last bin also includes edges[n]. Values outside [edges[0], edges[n]]
// report false. When all edges are equal every in-range value lands in bin 0.
func AssignBin(x float64, edges []float64) (int, bool) {
	n := len(edges) - 1
	if n < 1 {
		return 0, false
	}
	lo, hi := edges[0], edges[n]
	if x < lo || x > hi {
		return 0, false
	}
	if lo == hi {
		return 0, true
	}
	if x == hi {
		return n - 1, true
	}
	// First edge strictly greater than x closes x's bin.
	k := sort.Search(len(edges), func(i int) bool { return edges[i] > x }) - 1
	if k < 0 || k >= n {
		return 0, false
	}
	return k, true
}

// ComputeHistogram bins values into bins uniform-width buckets.
func ComputeHistogram(values []float64, bins int) (*Histogram, error) {
	edges, err := ComputeBinEdges(values, bins)
	if err != nil {
		return nil, err
	}
	counts := make([]int, bins)
	for _, v := range values {
		if k, ok := AssignBin(v, edges); ok {
			counts[k]++
		}
	}
	return &Histogram{Counts: counts, Edges: edges}, nil
}

// PlaneHistograms computes one histogram per channel, in set order.
func PlaneHistograms(set *ColorPlaneSet, bins int) (map[ChannelName]*Histogram, error) {
	out := make(map[ChannelName]*Histogram, len(set.Names))
	for _, name := range set.Names {
		h, err := ComputeHistogram(set.Planes[name].Float64s(), bins)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", name, err)
		}
		out[name] = h
	}
	return out, nil
}
