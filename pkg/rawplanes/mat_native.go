//go:build !purego && !js

package rawplanes

import "gocv.io/x/gocv"

// Mat wraps gocv.Mat for the native OpenCV backend.
type Mat struct {
	m gocv.Mat
}

func NewMat() Mat                       { return Mat{m: gocv.NewMat()} }
func NewMatWithSize(rows, cols int) Mat { return Mat{m: gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)} }
func (mat Mat) Rows() int               { return mat.m.Rows() }
func (mat Mat) Cols() int               { return mat.m.Cols() }
func (mat Mat) Empty() bool             { return mat.m.Empty() }
func (mat *Mat) Close()                 { mat.m.Close() }

func (mat Mat) DataFloat32() []float32 {
	data, _ := mat.m.DataPtrFloat32()
	return data
}

// medianBlur uses BORDER_REPLICATE; OpenCV accepts ksize 3 or 5 for float data.
func medianBlur(src Mat, dst *Mat, ksize int) {
	gocv.MedianBlur(src.m, &dst.m, ksize)
}

func absDiff(a, b Mat, dst *Mat) {
	gocv.AbsDiff(a.m, b.m, &dst.m)
}

func inRangeScalar(src Mat, lower, upper float32, dst *Mat) {
	lo := gocv.NewMatFromScalar(gocv.NewScalar(float64(lower), 0, 0, 0), gocv.MatTypeCV32F)
	defer lo.Close()
	hi := gocv.NewMatFromScalar(gocv.NewScalar(float64(upper), 0, 0, 0), gocv.MatTypeCV32F)
	defer hi.Close()
	mask8 := gocv.NewMat()
	defer mask8.Close()
	gocv.InRange(src.m, lo, hi, &mask8)
	// InRange outputs CV_8U; convert to CV_32F so DataFloat32() works
	mask8.ConvertTo(&dst.m, gocv.MatTypeCV32F)
}

func matMeanStdDev(src Mat) (float64, float64) {
	meanMat := gocv.NewMat()
	defer meanMat.Close()
	stdMat := gocv.NewMat()
	defer stdMat.Close()
	gocv.MeanStdDev(src.m, &meanMat, &stdMat)
	return meanMat.GetDoubleAt(0, 0), stdMat.GetDoubleAt(0, 0)
}
