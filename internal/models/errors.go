package models

import "fmt"

// ShapeError reports a mask or image whose shape does not satisfy an
// operation's requirements, such as a plate mask with no true pixels.
type ShapeError struct {
	Op     string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ValueError reports an invalid parameter value, such as a negative radius.
type ValueError struct {
	Param  string
	Value  interface{}
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid %s=%v: %s", e.Param, e.Value, e.Reason)
}
