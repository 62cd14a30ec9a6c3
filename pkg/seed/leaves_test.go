package seed

import (
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// twoPlantScene builds a 100x80 root mask with two vertical root stripes
// starting at the top, plus a matching uncropped image and bounding box.
func twoPlantScene() (rmask, img gocv.Mat, bbox models.BoundingBox) {
	rmask = gocv.Zeros(100, 80, gocv.MatTypeCV8UC1)
	for r := 0; r < 100; r++ {
		for _, c := range []int{20, 21, 60, 61} {
			rmask.SetUCharAt(r, c, 1)
		}
	}
	img = gocv.Zeros(100, 80, gocv.MatTypeCV8UC1)
	bbox = models.BoundingBox{RowStart: 0, RowEnd: 100, ColStart: 0, ColEnd: 80}
	return rmask, img, bbox
}

// TestDetectLeavesTwoPlants verifies that two stripes yield two seeds
// ordered left-to-right, restricted to the leaf band.
func TestDetectLeavesTwoPlants(t *testing.T) {
	rmask, img, bbox := twoPlantScene()
	defer rmask.Close()
	defer img.Close()

	opts := DefaultLeavesOptions()
	opts.PlantNumber = 2

	seedMap, err := DetectLeaves(rmask, img, bbox, opts)
	if err != nil {
		t.Fatalf("DetectLeaves failed: %v", err)
	}
	defer seedMap.Close()

	if seedMap.Mat.Rows() != rmask.Rows() || seedMap.Mat.Cols() != rmask.Cols() {
		t.Errorf("Expected seed map to share the root mask shape")
	}

	if got := seedMap.Mat.GetUCharAt(5, 20); got != 1 {
		t.Errorf("Expected left stripe to be plant 1, got %d", got)
	}
	if got := seedMap.Mat.GetUCharAt(5, 60); got != 2 {
		t.Errorf("Expected right stripe to be plant 2, got %d", got)
	}

	// Label 0 everywhere below the leaf band, and no label above
	// plant_number anywhere.
	for r := 0; r < seedMap.Mat.Rows(); r++ {
		for c := 0; c < seedMap.Mat.Cols(); c++ {
			v := seedMap.Mat.GetUCharAt(r, c)
			if v > 2 {
				t.Fatalf("Found label %d above plant_number at (%d,%d)", v, r, c)
			}
			if r >= 20 && v != 0 {
				t.Fatalf("Found seed label below the leaf band at (%d,%d)", r, c)
			}
		}
	}

	if math.Abs(seedMap.Policy.Scale-127.5) > 1e-9 {
		t.Errorf("Expected policy scale 255/2, got %f", seedMap.Policy.Scale)
	}
}

// TestDetectLeavesSinglePlant verifies that both stripes collapse into one
// seed group when a single plant is expected.
func TestDetectLeavesSinglePlant(t *testing.T) {
	rmask, img, bbox := twoPlantScene()
	defer rmask.Close()
	defer img.Close()

	seedMap, err := DetectLeaves(rmask, img, bbox, DefaultLeavesOptions())
	if err != nil {
		t.Fatalf("DetectLeaves failed: %v", err)
	}
	defer seedMap.Close()

	for _, c := range []int{20, 60} {
		if got := seedMap.Mat.GetUCharAt(5, c); got != 1 {
			t.Errorf("Expected stripe at col %d to be plant 1, got %d", c, got)
		}
	}
	if seedMap.Policy.Scale != 255 {
		t.Errorf("Expected policy scale 255 for one plant, got %f", seedMap.Policy.Scale)
	}
}

// TestDetectLeavesNoCandidates verifies that an empty leaf band raises a
// ShapeError.
func TestDetectLeavesNoCandidates(t *testing.T) {
	rmask := gocv.Zeros(100, 80, gocv.MatTypeCV8UC1)
	defer rmask.Close()
	// Root material exists only below the default leaf band.
	for r := 50; r < 100; r++ {
		rmask.SetUCharAt(r, 40, 1)
	}
	img := gocv.Zeros(100, 80, gocv.MatTypeCV8UC1)
	defer img.Close()
	bbox := models.BoundingBox{RowStart: 0, RowEnd: 100, ColStart: 0, ColEnd: 80}

	_, err := DetectLeaves(rmask, img, bbox, DefaultLeavesOptions())
	var shapeErr *models.ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Expected ShapeError, got %v", err)
	}
}

// TestDetectLeavesParameterValidation verifies the ValueError cases.
func TestDetectLeavesParameterValidation(t *testing.T) {
	rmask, img, bbox := twoPlantScene()
	defer rmask.Close()
	defer img.Close()

	cases := []struct {
		name string
		mod  func(*LeavesOptions)
	}{
		{"zero plants", func(o *LeavesOptions) { o.PlantNumber = 0 }},
		{"plants beyond one byte", func(o *LeavesOptions) { o.PlantNumber = 256 }},
		{"zero radius", func(o *LeavesOptions) { o.RootMinRadius = 0 }},
		{"inverted band", func(o *LeavesOptions) { o.LeafHeight = [2]float64{0.5, 0.2} }},
		{"band above one", func(o *LeavesOptions) { o.LeafHeight = [2]float64{0.5, 1.2} }},
	}

	for _, tc := range cases {
		opts := DefaultLeavesOptions()
		tc.mod(&opts)
		_, err := DetectLeaves(rmask, img, bbox, opts)
		var valueErr *models.ValueError
		if !errors.As(err, &valueErr) {
			t.Errorf("%s: expected ValueError, got %v", tc.name, err)
		}
	}
}

// TestKmeans1D verifies the horizontal grouping of seed candidates.
func TestKmeans1D(t *testing.T) {
	xs := []float64{10, 12, 50, 52}
	w := []float64{1, 1, 1, 1}

	centers := kmeans1D(xs, w, 2)
	if len(centers) != 2 {
		t.Fatalf("Expected 2 centers, got %d", len(centers))
	}
	if math.Abs(centers[0]-11) > 1e-6 || math.Abs(centers[1]-51) > 1e-6 {
		t.Errorf("Expected centers [11 51], got %v", centers)
	}

	single := kmeans1D(xs, w, 1)
	if math.Abs(single[0]-31) > 1e-6 {
		t.Errorf("Expected single center 31, got %v", single)
	}
}
