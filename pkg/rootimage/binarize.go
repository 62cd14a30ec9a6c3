package rootimage

import (
	"gocv.io/x/gocv"
)

// SegmentRootPixels binarizes a background-removed grayscale image into a
// root-candidate mask (8-bit, 0/255). The image is min-max normalized to
// the 8-bit range and thresholded with Otsu's method, which separates the
// near-zero background population from the residual root intensities.
// The caller must Close the result.
func SegmentRootPixels(img gocv.Mat) gocv.Mat {
	norm := gocv.NewMat()
	defer norm.Close()
	gocv.Normalize(img, &norm, 0, 255, gocv.NormMinMax)

	gray := gocv.NewMat()
	defer gray.Close()
	norm.ConvertTo(&gray, gocv.MatTypeCV8UC1)

	bin := gocv.NewMat()
	gocv.Threshold(gray, &bin, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	return bin
}
