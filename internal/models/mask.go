package models

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// BoundingBox is a pair of half-open index ranges describing the minimal
// axis-aligned rectangle enclosing all true pixels of a mask. Rows and
// columns use image coordinates with the origin at the top-left corner.
type BoundingBox struct {
	// RowStart is the first row inside the box
	RowStart int

	// RowEnd is one past the last row inside the box
	RowEnd int

	// ColStart is the first column inside the box
	ColStart int

	// ColEnd is one past the last column inside the box
	ColEnd int
}

// Rect converts the bounding box to an image.Rectangle, which is the form
// expected by Mat.Region.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.ColStart, b.RowStart, b.ColEnd, b.RowEnd)
}

// Height returns the number of rows covered by the box.
func (b BoundingBox) Height() int {
	return b.RowEnd - b.RowStart
}

// Width returns the number of columns covered by the box.
func (b BoundingBox) Width() int {
	return b.ColEnd - b.ColStart
}

// Empty reports whether the box covers no pixels.
func (b BoundingBox) Empty() bool {
	return b.Height() <= 0 || b.Width() <= 0
}

// SerializationPolicy describes how a logical mask is encoded into a
// storable pixel format. It is attached to a mask when a stage produces a
// persisted artifact and is never mutated afterwards.
type SerializationPolicy struct {
	// Format is the output encoding, e.g. "png" for a lossless bitmap
	Format string

	// DType is the storage pixel type, e.g. "uint8"
	DType string

	// Scale is the linear factor applied when converting logical values
	// (boolean 0/1 or a plant index 1..N) into pixel intensities
	Scale float64
}

// SerializableMask bundles a logical mask with its serialization policy.
// The Mat holds logical values: 0/1 for a boolean mask, 0..N for a label
// map. The caller owns the Mat and must Close it.
type SerializableMask struct {
	Mat    gocv.Mat
	Policy SerializationPolicy
}

// Encode applies the serialization policy and returns a new 8-bit Mat with
// intensity round(value * Scale). The caller must Close the result.
func (m SerializableMask) Encode() gocv.Mat {
	out := gocv.NewMat()
	m.Mat.ConvertToWithParams(&out, gocv.MatTypeCV8UC1, float32(m.Policy.Scale), 0)
	return out
}

// Save encodes the mask and writes it to path. The extension should match
// the policy format.
func (m SerializableMask) Save(path string) error {
	encoded := m.Encode()
	defer encoded.Close()
	if ok := gocv.IMWrite(path, encoded); !ok {
		return fmt.Errorf("failed to write mask to %s", path)
	}
	return nil
}

// Close releases the underlying pixel buffer.
func (m *SerializableMask) Close() error {
	return m.Mat.Close()
}
