// Package plate detects the petri-plate region of a root photograph. The
// plate is assumed to be the largest bright region of the image.
package plate

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// Options controls plate detection.
type Options struct {
	// Blur is the Gaussian kernel side used to suppress sensor noise
	// before thresholding. Must be odd.
	Blur int

	// MinAreaFrac is the smallest acceptable plate area as a fraction of
	// the image area.
	MinAreaFrac float64
}

// DefaultOptions returns detection defaults suitable for flatbed plate
// scans.
func DefaultOptions() Options {
	return Options{Blur: 5, MinAreaFrac: 0.05}
}

// Detect locates the petri plate and returns an 8-bit intensity mask where
// the plate interior carries the maximum value (255). It returns a
// ShapeError when no plate-sized region is found. The caller must Close
// the result.
func Detect(img gocv.Mat, opts Options) (gocv.Mat, error) {
	if opts.Blur < 1 || opts.Blur%2 == 0 {
		return gocv.NewMat(), &models.ValueError{
			Param: "blur", Value: opts.Blur,
			Reason: "blur kernel side must be a positive odd number",
		}
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(img, &blurred, image.Pt(opts.Blur, opts.Blur), 0, 0, gocv.BorderDefault)

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(blurred, &bin, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	bestIdx := -1
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if area := gocv.ContourArea(contour); area > bestArea {
			bestArea = area
			bestIdx = i
		}
	}

	minArea := opts.MinAreaFrac * float64(img.Rows()) * float64(img.Cols())
	if bestIdx < 0 || bestArea < minArea {
		return gocv.NewMat(), &models.ShapeError{
			Op:     "detect_frame",
			Reason: "no plate-sized bright region found",
		}
	}

	mask := gocv.Zeros(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.DrawContours(&mask, contours, bestIdx, white, -1)
	return mask, nil
}
