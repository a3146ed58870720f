/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package rawplanes

import "math"

// KappaSigmaResult holds noise estimation results.
type KappaSigmaResult struct {
	Sigma          float64
	BackgroundMean float64
	NumIterations  int
}

// PlaneToMat copies a channel's 2D grid into a float32 Mat in raw ADU.
func PlaneToMat(plane *ChannelPlane) Mat {
	mat := NewMatWithSize(plane.Rows(), plane.Cols())
	dest := mat.DataFloat32()
	for i, v := range plane.Pixels {
		dest[i] = float32(v)
	}
	return mat
}

// KappaSigmaNoiseEstimate performs iterative kappa-sigma noise estimation.
// After the first pass only non-zero pixels below the running clip threshold
// contribute.
func KappaSigmaNoiseEstimate(img Mat, clippingMultiplier float64, allowedError float64, maxIterations int) KappaSigmaResult {
	maskMat := NewMat()
	defer maskMat.Close()

	threshold := float32(math.MaxFloat32)
	lastSigma := 1.0
	lastBackgroundMean := 1.0
	numIterations := 0

	for numIterations < maxIterations {
		var meanVal, sigmaVal float64

		if numIterations > 0 {
			inRangeScalar(img, math.SmallestNonzeroFloat32, threshold-math.SmallestNonzeroFloat32, &maskMat)
			meanVal, sigmaVal = meanStdDevWithMask(img, maskMat)
		} else {
			meanVal, sigmaVal = matMeanStdDev(img)
		}

		numIterations++
		if numIterations > 1 {
			if math.Abs(sigmaVal-lastSigma) <= allowedError {
				lastSigma = sigmaVal
				break
			}
		}
		threshold = float32(meanVal + clippingMultiplier*sigmaVal)
		lastSigma = sigmaVal
		lastBackgroundMean = meanVal
	}

	return KappaSigmaResult{
		Sigma:          lastSigma,
		BackgroundMean: lastBackgroundMean,
		NumIterations:  numIterations,
	}
}

// meanStdDevWithMask computes mean and stddev of pixels where mask is non-zero.
func meanStdDevWithMask(img Mat, mask Mat) (float64, float64) {
	imgData := img.DataFloat32()
	maskData := mask.DataFloat32()
	numPixels := img.Rows() * img.Cols()

	var sum float64
	var count int64
	for i := 0; i < numPixels; i++ {
		if maskData[i] != 0 {
			sum += float64(imgData[i])
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	mean := sum / float64(count)

	var sse float64
	for i := 0; i < numPixels; i++ {
		if maskData[i] != 0 {
			diff := float64(imgData[i]) - mean
			sse += diff * diff
		}
	}
	return mean, math.Sqrt(sse / float64(count))
}
