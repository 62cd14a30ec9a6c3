package rootimage

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// twoClusterMask builds a mask with a 60-pixel cluster and a 4-pixel
// cluster.
func twoClusterMask() gocv.Mat {
	mask := gocv.Zeros(30, 30, gocv.MatTypeCV8UC1)
	for r := 2; r < 8; r++ {
		for c := 2; c < 12; c++ {
			mask.SetUCharAt(r, c, 255)
		}
	}
	for r := 20; r < 22; r++ {
		for c := 20; c < 22; c++ {
			mask.SetUCharAt(r, c, 255)
		}
	}
	return mask
}

// TestCleanMaskRemovesSmallClusters verifies that components below the
// minimum dimension are discarded and larger ones kept.
func TestCleanMaskRemovesSmallClusters(t *testing.T) {
	mask := twoClusterMask()
	defer mask.Close()

	cleaned, err := CleanMask(mask, 50)
	if err != nil {
		t.Fatalf("CleanMask failed: %v", err)
	}
	defer cleaned.Close()

	if got := gocv.CountNonZero(cleaned); got != 60 {
		t.Errorf("Expected 60 surviving pixels, got %d", got)
	}
	if got := cleaned.GetUCharAt(20, 20); got != 0 {
		t.Errorf("Expected small cluster to be removed, got %d", got)
	}
	if got := cleaned.GetUCharAt(4, 4); got != 255 {
		t.Errorf("Expected large cluster to survive, got %d", got)
	}
}

// TestCleanMaskZeroDisables verifies that minDim = 0 performs no filtering.
func TestCleanMaskZeroDisables(t *testing.T) {
	mask := twoClusterMask()
	defer mask.Close()

	cleaned, err := CleanMask(mask, 0)
	if err != nil {
		t.Fatalf("CleanMask failed: %v", err)
	}
	defer cleaned.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(mask, cleaned, &diff)
	if gocv.CountNonZero(diff) != 0 {
		t.Errorf("Expected minDim=0 to leave the mask untouched")
	}
}

// TestCleanMaskNegative verifies parameter validation.
func TestCleanMaskNegative(t *testing.T) {
	mask := gocv.Zeros(5, 5, gocv.MatTypeCV8UC1)
	defer mask.Close()

	_, err := CleanMask(mask, -1)
	var valueErr *models.ValueError
	if !errors.As(err, &valueErr) {
		t.Fatalf("Expected ValueError, got %v", err)
	}
}
