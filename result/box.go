package result

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedBox is returned when a box has a zero or negative width or
// height, or a coordinate that is not a finite number
var ErrMalformedBox = errors.New("malformed box")

// Box is an axis aligned bounding box in pixel coordinates.  A Box created
// with NewBox always satisfies X1 < X2 and Y1 < Y2.
type Box struct {
	// X1 is the coordinate of the boxes left edge
	X1 float32 `json:"x1" yaml:"x1"`
	// Y1 is the coordinate of the boxes top edge
	Y1 float32 `json:"y1" yaml:"y1"`
	// X2 is the coordinate of the boxes right edge
	X2 float32 `json:"x2" yaml:"x2"`
	// Y2 is the coordinate of the boxes bottom edge
	Y2 float32 `json:"y2" yaml:"y2"`
}

// Point is a 2D coordinate in pixel space
type Point struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
}

// NewBox returns a Box for the given corner coordinates or ErrMalformedBox
// if the box would have no area
func NewBox(x1, y1, x2, y2 float32) (Box, error) {

	for _, v := range [4]float32{x1, y1, x2, y2} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Box{}, fmt.Errorf("%w: non finite coordinate in (%v %v %v %v)",
				ErrMalformedBox, x1, y1, x2, y2)
		}
	}

	if x2 <= x1 || y2 <= y1 {
		return Box{}, fmt.Errorf("%w: (%v %v %v %v) has no area",
			ErrMalformedBox, x1, y1, x2, y2)
	}

	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}, nil
}

// Width returns the width of the box
func (b Box) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the height of the box
func (b Box) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns the pixel area of the box, or zero for a degenerate box
func (b Box) Area() float32 {
	return max(0, b.Width()) * max(0, b.Height())
}

// Center returns the center point of the box
func (b Box) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Translate returns the box shifted by the given offset.  Used to move a box
// from a tile's local coordinates into the coordinates of the source image.
func (b Box) Translate(dx, dy float32) Box {
	return Box{
		X1: b.X1 + dx,
		Y1: b.Y1 + dy,
		X2: b.X2 + dx,
		Y2: b.Y2 + dy,
	}
}

// Intersection returns the pixel area of overlap between two boxes
func Intersection(a, b Box) float32 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	return (x2 - x1) * (y2 - y1)
}

// Union returns the combined pixel area covered by two boxes
func Union(a, b Box) float32 {
	return a.Area() + b.Area() - Intersection(a, b)
}

// IoU computes the Intersection-over-Union of two boxes.  Boxes that do not
// intersect have an IoU of zero.
func IoU(a, b Box) float32 {

	inter := Intersection(a, b)

	if inter == 0 {
		return 0
	}

	union := a.Area() + b.Area() - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}

// OverlapRatio returns the intersection area divided by the area of the
// smaller box.  A small box fully inside a larger one has a ratio of 1.0 even
// though their IoU may be close to zero.
func OverlapRatio(a, b Box) float32 {

	inter := Intersection(a, b)

	if inter == 0 {
		return 0
	}

	smallest := min(a.Area(), b.Area())

	if smallest <= 0 {
		return 0
	}

	return inter / smallest
}
