// Package rootimage segments root material from petri-plate photographs.
// It implements the segment_image stage of the analysis pipeline: crop to
// the plate bounding box, smooth within the plate, remove the background,
// binarize, and clean small pixel clusters.
package rootimage

import (
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// maskFloor is the smallest denominator allowed when normalizing the
// smoothed image by the smoothed plate mask, preventing division blow-up
// at the mask edges.
const maskFloor = 1.0 / 1024.0 // 2^-10

var log = logrus.WithField("component", "rootimage")

// SegmentConfig holds the pipeline-facing parameters of SegmentImage.
type SegmentConfig struct {
	// RootMaxRadius is the characteristic root radius in pixels. It sizes
	// the background-removal structuring element and the number of erosion
	// iterations applied to the plate mask border band.
	RootMaxRadius int
}

// SegmentOptions holds the full direct-call parameter set of SegmentImage.
// The embedded SegmentConfig is the subset exposed at pipeline level; the
// remaining fields are only settable by direct call.
type SegmentOptions struct {
	SegmentConfig

	// MinDimension is the minimum connected-component pixel count to keep
	// in the root mask. Zero disables cluster cleaning.
	MinDimension int

	// Smooth is the Gaussian smoothing sigma applied within the plate
	// before background removal. Zero disables smoothing.
	Smooth float64

	// Verbose enables stage-progress reporting.
	Verbose bool
}

// DefaultSegmentOptions returns the parameter defaults of the original
// pipeline definition.
func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		SegmentConfig: SegmentConfig{RootMaxRadius: 15},
		MinDimension:  50,
		Smooth:        1,
	}
}

// SegmentImage computes the binary root mask of a plate photograph.
//
// img is the grayscale input image and pmask an intensity map whose maximum
// value marks the plate interior. The returned mask is cropped to the plate
// bounding box, shares its shape with the cropped plate mask, and is false
// everywhere outside the plate. The bounding box must be propagated to
// downstream stages so they can re-crop the original image consistently.
//
// The inputs are not mutated; all work happens on crop copies. The caller
// must Close the returned mask.
func SegmentImage(img, pmask gocv.Mat, opts SegmentOptions) (models.SerializableMask, models.BoundingBox, error) {
	var none models.SerializableMask

	if opts.RootMaxRadius < 1 {
		return none, models.BoundingBox{}, &models.ValueError{
			Param: "root_max_radius", Value: opts.RootMaxRadius,
			Reason: "root radius must be a positive pixel count",
		}
	}
	if opts.MinDimension < 0 {
		return none, models.BoundingBox{}, &models.ValueError{
			Param: "min_dimension", Value: opts.MinDimension,
			Reason: "minimum cluster dimension cannot be negative",
		}
	}
	if opts.Smooth < 0 {
		return none, models.BoundingBox{}, &models.ValueError{
			Param: "smooth", Value: opts.Smooth,
			Reason: "smoothing sigma cannot be negative",
		}
	}
	if img.Rows() != pmask.Rows() || img.Cols() != pmask.Cols() {
		return none, models.BoundingBox{}, &models.ShapeError{
			Op:     "segment_image",
			Reason: "image and plate mask shapes differ",
		}
	}

	// The plate region is wherever the mask reaches its maximum value.
	plate := BinarizeByMax(pmask)
	defer plate.Close()

	bbox, err := MaskBoundingBox(plate)
	if err != nil {
		return none, models.BoundingBox{}, err
	}

	// Crop both arrays; everything below runs in cropped coordinates.
	plateCrop := cropClone(plate, bbox)
	defer plateCrop.Close()

	crop := cropClone(img, bbox)
	defer crop.Close()
	work := gocv.NewMat()
	defer work.Close()
	crop.ConvertTo(&work, gocv.MatTypeCV32F)

	if opts.Smooth > 0 {
		report(opts.Verbose, "smooth image inside plate")
		smoothInsidePlate(work, plateCrop, opts.Smooth)
	}

	report(opts.Verbose, "remove background")
	cleared, err := RemoveBackground(work, opts.RootMaxRadius)
	if err != nil {
		return none, models.BoundingBox{}, err
	}
	defer cleared.Close()

	// Background removal is unreliable near the plate edge: discard the
	// border band by zeroing everything outside the eroded plate mask.
	kernel := gocv.GetStructuringElement(gocv.MorphCross, image.Pt(3, 3))
	defer kernel.Close()
	eroded := gocv.NewMat()
	defer eroded.Close()
	gocv.ErodeWithParams(plateCrop, &eroded, kernel, image.Pt(-1, -1),
		opts.RootMaxRadius, int(gocv.BorderConstant))

	inner := gocv.Zeros(cleared.Rows(), cleared.Cols(), gocv.MatTypeCV32F)
	defer inner.Close()
	cleared.CopyToWithMask(&inner, eroded)

	report(opts.Verbose, "segment binary mask")
	rmask := SegmentRootPixels(inner)
	defer rmask.Close()
	// The root mask may never extend outside the (uneroded) plate.
	gocv.BitwiseAnd(rmask, plateCrop, &rmask)

	if opts.MinDimension > 0 {
		report(opts.Verbose, "clean small pixel clusters")
		cleaned, err := CleanMask(rmask, opts.MinDimension)
		if err != nil {
			return none, models.BoundingBox{}, err
		}
		cleaned.CopyTo(&rmask)
		cleaned.Close()
	}

	// Store logical 0/1 values; the policy maps them to 0/255 intensities.
	logical := gocv.NewMat()
	rmask.ConvertToWithParams(&logical, gocv.MatTypeCV8UC1, 1.0/255.0, 0)

	out := models.SerializableMask{
		Mat: logical,
		Policy: models.SerializationPolicy{
			Format: "png",
			DType:  "uint8",
			Scale:  255,
		},
	}
	return out, bbox, nil
}

// smoothInsidePlate overwrites the pixels of img (CV32F, modified in place)
// that lie inside the plate mask with a mask-normalized Gaussian blur.
// Pixels outside the plate keep their original values. Normalizing by the
// blurred mask keeps intensities unbiased near the plate boundary, where a
// plain blur would mix in the zeroed outside region.
func smoothInsidePlate(img, plate gocv.Mat, sigma float64) {
	plateF := gocv.NewMat()
	defer plateF.Close()
	plate.ConvertToWithParams(&plateF, gocv.MatTypeCV32F, 1.0/255.0, 0)

	masked := gocv.NewMat()
	defer masked.Close()
	gocv.Multiply(img, plateF, &masked)

	num := gocv.NewMat()
	defer num.Close()
	gocv.GaussianBlur(masked, &num, image.Point{}, sigma, sigma, gocv.BorderDefault)

	den := gocv.NewMat()
	defer den.Close()
	gocv.GaussianBlur(plateF, &den, image.Point{}, sigma, sigma, gocv.BorderDefault)

	floor := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(maskFloor, 0, 0, 0),
		den.Rows(), den.Cols(), gocv.MatTypeCV32F)
	defer floor.Close()
	gocv.Max(den, floor, &den)

	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.Divide(num, den, &smooth)

	smooth.CopyToWithMask(&img, plate)
}

// report writes stage progress when verbose output is requested.
func report(verbose bool, msg string) {
	if verbose {
		log.Info(msg)
	}
}
