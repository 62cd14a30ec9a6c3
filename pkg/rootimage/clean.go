package rootimage

import (
	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// CleanMask removes connected components smaller than minDim pixels from a
// binary mask and returns the cleaned mask (8-bit, 0/255). minDim = 0
// disables cleaning and returns an unmodified copy. The caller must Close
// the result.
func CleanMask(mask gocv.Mat, minDim int) (gocv.Mat, error) {
	if minDim < 0 {
		return gocv.NewMat(), &models.ValueError{
			Param:  "minDim",
			Value:  minDim,
			Reason: "minimum component dimension cannot be negative",
		}
	}
	if minDim == 0 {
		return mask.Clone(), nil
	}

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(mask, &labels, &stats, &centroids)

	// Label 0 is the background.
	keep := make([]bool, n)
	for i := 1; i < n; i++ {
		area := int(stats.GetIntAt(i, int(gocv.CCStatArea)))
		keep[i] = area >= minDim
	}

	rows := mask.Rows()
	cols := mask.Cols()
	out := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if keep[labels.GetIntAt(r, c)] {
				out.SetUCharAt(r, c, 255)
			}
		}
	}
	return out, nil
}
