package rootimage

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// RemoveBackground suppresses the uniform background of a grayscale image,
// keeping only structures thinner than the characteristic root radius.
//
// The background estimate is a grayscale morphological opening with an
// elliptical element of radius distance; subtracting it (a top-hat) leaves
// roots, which are thinner than the element, standing on a near-zero
// background. The caller must Close the result.
func RemoveBackground(img gocv.Mat, distance int) (gocv.Mat, error) {
	if distance < 1 {
		return gocv.NewMat(), &models.ValueError{
			Param:  "distance",
			Value:  distance,
			Reason: "background removal distance must be a positive pixel count",
		}
	}

	side := 2*distance + 1
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(side, side))
	defer kernel.Close()

	out := gocv.NewMat()
	gocv.MorphologyEx(img, &out, gocv.MorphTophat, kernel)
	return out, nil
}
