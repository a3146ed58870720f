//go:build purego || js

package rawplanes

import "math"

// Mat is a pure Go 2D float32 matrix.
type Mat struct {
	data []float32
	rows int
	cols int
}

func NewMat() Mat { return Mat{} }

func NewMatWithSize(rows, cols int) Mat {
	return Mat{data: make([]float32, rows*cols), rows: rows, cols: cols}
}

func (m Mat) Rows() int   { return m.rows }
func (m Mat) Cols() int   { return m.cols }
func (m Mat) Empty() bool { return m.data == nil || m.rows == 0 || m.cols == 0 }

func (m *Mat) Close() {
	m.data = nil
	m.rows = 0
	m.cols = 0
}

// DataFloat32 returns the backing float32 slice.
func (m Mat) DataFloat32() []float32 {
	return m.data
}

func ensureSize(dst *Mat, rows, cols int) {
	if dst.rows != rows || dst.cols != cols || dst.data == nil {
		*dst = NewMatWithSize(rows, cols)
	}
}

// medianBlur replicates border pixels, as OpenCV's medianBlur does.
func medianBlur(src Mat, dst *Mat, ksize int) {
	rows, cols := src.rows, src.cols
	srcData := src.data
	result := make([]float32, rows*cols)
	half := ksize / 2
	window := make([]float32, 0, ksize*ksize)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			window = window[:0]
			for dr := -half; dr <= half; dr++ {
				rr := clampIndex(r+dr, rows)
				for dc := -half; dc <= half; dc++ {
					v := srcData[rr*cols+clampIndex(c+dc, cols)]
					// insertion keeps the window sorted
					i := len(window)
					window = append(window, v)
					for i > 0 && window[i-1] > v {
						window[i] = window[i-1]
						i--
					}
					window[i] = v
				}
			}
			result[r*cols+c] = window[len(window)/2]
		}
	}

	ensureSize(dst, rows, cols)
	copy(dst.data, result)
}

func clampIndex(i, size int) int {
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}

func absDiff(a, b Mat, dst *Mat) {
	ensureSize(dst, a.rows, a.cols)
	for i := range a.data {
		d := a.data[i] - b.data[i]
		if d < 0 {
			d = -d
		}
		dst.data[i] = d
	}
}

func inRangeScalar(src Mat, lower, upper float32, dst *Mat) {
	ensureSize(dst, src.rows, src.cols)
	for i, v := range src.data {
		if v >= lower && v <= upper {
			dst.data[i] = 1.0
		} else {
			dst.data[i] = 0
		}
	}
}

func matMeanStdDev(src Mat) (float64, float64) {
	n := len(src.data)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range src.data {
		sum += float64(v)
	}
	mean := sum / float64(n)
	var sse float64
	for _, v := range src.data {
		d := float64(v) - mean
		sse += d * d
	}
	return mean, math.Sqrt(sse / float64(n))
}
