package rawplanes

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PlaneStatistics summarizes one set of ADU values. StdDev and Variance are
// population values; RobustSigma is 1.4826 * MAD.
type PlaneStatistics struct {
	Count       int
	Min         float64
	Max         float64
	Median      float64
	Mean        float64
	StdDev      float64
	Variance    float64
	RobustSigma float64
}

func (s PlaneStatistics) String() string {
	return fmt.Sprintf("{Count=%d, Min=%g, Max=%g, Median=%g, Mean=%f, StdDev=%f, Variance=%f, RobustSigma=%f}",
		s.Count, s.Min, s.Max, s.Median, s.Mean, s.StdDev, s.Variance, s.RobustSigma)
}

// ComputeStatistics returns summary statistics for values. An empty input
// yields NaN for every field except Count.
func ComputeStatistics(values []float64) PlaneStatistics {
	if len(values) == 0 {
		nan := math.NaN()
		return PlaneStatistics{Min: nan, Max: nan, Median: nan, Mean: nan, StdDev: nan, Variance: nan, RobustSigma: nan}
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	median, sigma := medianMAD(values)
	return PlaneStatistics{
		Count:       len(values),
		Min:         floats.Min(values),
		Max:         floats.Max(values),
		Median:      median,
		Mean:        mean,
		StdDev:      math.Sqrt(variance),
		Variance:    variance,
		RobustSigma: sigma,
	}
}

// FrameStatistics summarizes the whole mosaic, before channel separation.
func FrameStatistics(frame SensorFrame) PlaneStatistics {
	values := make([]float64, len(frame.Pixels))
	for i, v := range frame.Pixels {
		values[i] = float64(v)
	}
	return ComputeStatistics(values)
}

// SetStatistics computes statistics for every plane in set.
func SetStatistics(set *ColorPlaneSet) map[ChannelName]PlaneStatistics {
	out := make(map[ChannelName]PlaneStatistics, len(set.Names))
	for _, name := range set.Names {
		out[name] = ComputeStatistics(set.Planes[name].Float64s())
	}
	return out
}

func medianMAD(values []float64) (float64, float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	median := sortedMedian(sorted)

	deviations := make([]float64, len(sorted))
	for i := range sorted {
		deviations[i] = math.Abs(sorted[i] - median)
	}
	sort.Float64s(deviations)

	return median, 1.4826 * sortedMedian(deviations)
}

func sortedMedian(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}
