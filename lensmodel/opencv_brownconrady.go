//go:build withcv
// +build withcv

/*
DESCRIPTION
  opencv_brownconrady.go provides one concrete Model implementation,
  a classic Brown-Conrady radial/tangential distortion evaluated via
  OpenCV's camera-calibration primitives, gated behind the "withcv"
  build tag the same way the teacher gates its OpenCV-backed video
  filters.

AUTHORS
  The mmsolver Authors.
*/

package lensmodel

import "gocv.io/x/gocv"

// OpenCVBrownConrady distorts normalised filmback coordinates using
// OpenCV's pinhole distortion model: radial coefficients K1-K3 and
// tangential coefficients P1-P2.
type OpenCVBrownConrady struct {
	K1, K2, K3 float64
	P1, P2     float64
}

// ApplyDistort implements Model by running OpenCV's projectPoints
// distortion on a single point. Coordinates are in the camera's
// normalised filmback space (not pixels), which is exactly the space
// OpenCV's distortion coefficients operate in when fx=fy=1, cx=cy=0.
func (m OpenCVBrownConrady) ApplyDistort(x, y float64) (float64, float64) {
	camMat := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer camMat.Close()
	camMat.SetDoubleAt(0, 0, 1)
	camMat.SetDoubleAt(1, 1, 1)
	camMat.SetDoubleAt(2, 2, 1)

	dist := gocv.NewMatWithSize(1, 5, gocv.MatTypeCV64F)
	defer dist.Close()
	dist.SetDoubleAt(0, 0, m.K1)
	dist.SetDoubleAt(0, 1, m.K2)
	dist.SetDoubleAt(0, 2, m.P1)
	dist.SetDoubleAt(0, 3, m.P2)
	dist.SetDoubleAt(0, 4, m.K3)

	objPoints := gocv.NewMatWithSize(1, 1, gocv.MatTypeCV64FC3)
	defer objPoints.Close()
	objPoints.SetDoubleAt(0, 0, x)
	objPoints.SetDoubleAt(0, 1, y)
	objPoints.SetDoubleAt(0, 2, 1)

	rvec := gocv.NewMatWithSize(3, 1, gocv.MatTypeCV64F)
	defer rvec.Close()
	tvec := gocv.NewMatWithSize(3, 1, gocv.MatTypeCV64F)
	defer tvec.Close()

	imgPoints := gocv.NewMat()
	defer imgPoints.Close()
	jacobian := gocv.NewMat()
	defer jacobian.Close()

	gocv.ProjectPoints(objPoints, rvec, tvec, camMat, dist, &imgPoints, &jacobian, 0)
	if imgPoints.Rows() == 0 {
		return x, y
	}
	return imgPoints.GetDoubleAt(0, 0), imgPoints.GetDoubleAt(0, 1)
}
