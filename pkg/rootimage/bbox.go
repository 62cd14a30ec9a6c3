package rootimage

import (
	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// MaskBoundingBox returns the minimal axis-aligned rectangle enclosing all
// nonzero pixels of mask. It returns a ShapeError when the mask has no
// nonzero pixel.
func MaskBoundingBox(mask gocv.Mat) (models.BoundingBox, error) {
	rows := mask.Rows()
	cols := mask.Cols()

	minRow, minCol := rows, cols
	maxRow, maxCol := -1, -1
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if mask.GetUCharAt(r, c) == 0 {
				continue
			}
			if r < minRow {
				minRow = r
			}
			if r > maxRow {
				maxRow = r
			}
			if c < minCol {
				minCol = c
			}
			if c > maxCol {
				maxCol = c
			}
		}
	}

	if maxRow < 0 {
		return models.BoundingBox{}, &models.ShapeError{
			Op:     "bounding box",
			Reason: "mask has no true pixels",
		}
	}

	return models.BoundingBox{
		RowStart: minRow,
		RowEnd:   maxRow + 1,
		ColStart: minCol,
		ColEnd:   maxCol + 1,
	}, nil
}

// BinarizeByMax returns an 8-bit 0/255 mask marking the pixels that carry
// the input's maximum value. This handles masks encoded as intensity arrays
// where the region of interest is the brightest value. The caller must
// Close the result.
func BinarizeByMax(mask gocv.Mat) gocv.Mat {
	_, maxVal, _, _ := gocv.MinMaxLoc(mask)

	bin := gocv.NewMat()
	top := gocv.NewScalar(float64(maxVal), 0, 0, 0)
	gocv.InRangeWithScalar(mask, top, top, &bin)
	return bin
}

// cropClone extracts the bounding-box region of m as an independent copy,
// so later in-place mutation cannot alias the caller's buffer.
func cropClone(m gocv.Mat, bbox models.BoundingBox) gocv.Mat {
	region := m.Region(bbox.Rect())
	defer region.Close()
	return region.Clone()
}
