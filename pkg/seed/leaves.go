// Package seed locates the seed/leaf origin points of each plant in a
// segmented root image. The resulting seed map gives every plant a stable
// integer identity used by downstream graph and tree construction.
package seed

import (
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// LeavesConfig holds the pipeline-facing parameters of DetectLeaves.
type LeavesConfig struct {
	// PlantNumber is the expected number of plants/seeds in the image.
	PlantNumber int

	// RootMinRadius is the minimum root radius in pixels. Candidate seed
	// regions smaller than a square of this side are treated as noise.
	RootMinRadius float64

	// LeafHeight is the vertical band, as fractions of the plate height,
	// in which seeds are expected.
	LeafHeight [2]float64
}

// LeavesOptions holds the full direct-call parameter set of DetectLeaves.
// The embedded LeavesConfig is the subset exposed at pipeline level.
type LeavesOptions struct {
	LeavesConfig

	// Sort orders detected seeds left-to-right so that plant identities
	// stay stable across downstream stages.
	Sort bool
}

// DefaultLeavesOptions returns the parameter defaults of the original
// pipeline definition.
func DefaultLeavesOptions() LeavesOptions {
	return LeavesOptions{
		LeavesConfig: LeavesConfig{
			PlantNumber:   1,
			RootMinRadius: 3,
			LeafHeight:    [2]float64{0, 0.2},
		},
		Sort: true,
	}
}

// DetectLeaves locates the seed region of each expected plant.
//
// rmask is the root mask already cropped to the plate bounding box (nonzero
// marks root pixels), img the original uncropped image, and bbox the plate
// bounding box from segmentation, used to re-align the image with the mask
// coordinate frame.
//
// The returned seed map has the shape of rmask; pixel value k (1..N) marks
// the seed region of plant k, 0 marks no seed. Its serialization policy
// scales label k to intensity k*255/PlantNumber so all labels stay
// distinguishable within one byte. The caller must Close the result.
func DetectLeaves(rmask, img gocv.Mat, bbox models.BoundingBox, opts LeavesOptions) (models.SerializableMask, error) {
	var none models.SerializableMask

	// Seed map labels live in one byte, so at most 255 plants fit.
	if opts.PlantNumber < 1 || opts.PlantNumber > 255 {
		return none, &models.ValueError{
			Param: "plant_number", Value: opts.PlantNumber,
			Reason: "expected plant count must be between 1 and 255",
		}
	}
	if opts.RootMinRadius <= 0 {
		return none, &models.ValueError{
			Param: "root_min_radius", Value: opts.RootMinRadius,
			Reason: "root radius must be positive",
		}
	}
	lo, hi := opts.LeafHeight[0], opts.LeafHeight[1]
	if lo < 0 || hi > 1 || lo >= hi {
		return none, &models.ValueError{
			Param: "leaf_height", Value: opts.LeafHeight,
			Reason: "band must satisfy 0 <= low < high <= 1",
		}
	}

	// Crop the original image to the plate bounding box so both arrays
	// share one coordinate frame.
	aligned := img.Region(bbox.Rect())
	defer aligned.Close()
	if aligned.Rows() != rmask.Rows() || aligned.Cols() != rmask.Cols() {
		return none, &models.ShapeError{
			Op:     "detect_leaves",
			Reason: "root mask shape does not match the plate bounding box",
		}
	}

	rows := rmask.Rows()
	cols := rmask.Cols()

	// Restrict the root mask to the vertical band where seeds can appear.
	bandLo := int(lo * float64(rows))
	bandHi := int(math.Ceil(hi * float64(rows)))
	if bandHi > rows {
		bandHi = rows
	}
	if bandHi <= bandLo {
		bandHi = bandLo + 1
	}

	band := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	defer band.Close()
	src := rmask.Region(image.Rect(0, bandLo, cols, bandHi))
	dst := band.Region(image.Rect(0, bandLo, cols, bandHi))
	src.CopyTo(&dst)
	src.Close()
	dst.Close()

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()
	n := gocv.ConnectedComponentsWithStats(band, &labels, &stats, &centroids)

	// Collect candidate components large enough to be a seed region.
	minArea := int(math.Ceil(opts.RootMinRadius * opts.RootMinRadius))
	var candidates []int
	var xs, weights []float64
	for i := 1; i < n; i++ {
		area := int(stats.GetIntAt(i, int(gocv.CCStatArea)))
		if area < minArea {
			continue
		}
		candidates = append(candidates, i)
		xs = append(xs, centroids.GetDoubleAt(i, 0))
		weights = append(weights, float64(area))
	}
	if len(candidates) == 0 {
		return none, &models.ShapeError{
			Op:     "detect_leaves",
			Reason: "no seed-sized root region in the leaf band",
		}
	}

	// Group the candidates into the expected number of plants along the
	// horizontal axis.
	k := opts.PlantNumber
	if k > len(candidates) {
		k = len(candidates)
	}
	centers := kmeans1D(xs, weights, k)
	if opts.Sort {
		sort.Float64s(centers)
	}

	// plantOf[label] maps a component label to its 1-indexed plant.
	plantOf := make(map[int]uint8, len(candidates))
	for i, comp := range candidates {
		plantOf[comp] = uint8(nearestCenter(centers, xs[i]) + 1)
	}

	seedMap := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	for r := bandLo; r < bandHi; r++ {
		for c := 0; c < cols; c++ {
			if plant, ok := plantOf[int(labels.GetIntAt(r, c))]; ok {
				seedMap.SetUCharAt(r, c, plant)
			}
		}
	}

	out := models.SerializableMask{
		Mat: seedMap,
		Policy: models.SerializationPolicy{
			Format: "png",
			DType:  "uint8",
			Scale:  255 / float64(opts.PlantNumber),
		},
	}
	return out, nil
}
