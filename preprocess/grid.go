package preprocess

import (
	"errors"
	"fmt"
	"image"

	"github.com/swdee/go-detfusion/result"
)

// ErrInvalidGridConfig is returned when an image can not be partitioned with
// the requested grid size
var ErrInvalidGridConfig = errors.New("invalid grid config")

// Tile defines a cell of the image grid in the coordinates of the source image
type Tile struct {
	// X is the coordinate of the tiles left edge
	X int
	// Y is the coordinate of the tiles top edge
	Y int
	// X2 is the coordinate of the tiles right edge (exclusive)
	X2 int
	// Y2 is the coordinate of the tiles bottom edge (exclusive)
	Y2 int
	// Row is the grid row of the tile, counting from the top
	Row int
	// Col is the grid column of the tile, counting from the left
	Col int
}

// Grid partitions an image of the given width and height into n x n tiles
// returned in row-major order.  Each cell has the base size width/n x
// height/n, with the last row and column absorbing any remainder pixels so
// the tiles cover the image exactly once.
func Grid(width, height, n int) ([]Tile, error) {

	if n <= 0 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid size %d for image %dx%d",
			ErrInvalidGridConfig, n, width, height)
	}

	if n > width || n > height {
		return nil, fmt.Errorf("%w: grid size %d leaves empty tiles for image %dx%d",
			ErrInvalidGridConfig, n, width, height)
	}

	cellH := height / n
	cellW := width / n

	tiles := make([]Tile, 0, n*n)

	for i := 0; i < n; i++ {
		y := i * cellH
		y2 := (i + 1) * cellH

		if i == n-1 {
			y2 = height
		}

		for j := 0; j < n; j++ {
			x := j * cellW
			x2 := (j + 1) * cellW

			if j == n-1 {
				x2 = width
			}

			tiles = append(tiles, Tile{
				X: x, Y: y, X2: x2, Y2: y2,
				Row: i, Col: j,
			})
		}
	}

	return tiles, nil
}

// Width returns the width of the tile
func (t Tile) Width() int {
	return t.X2 - t.X
}

// Height returns the height of the tile
func (t Tile) Height() int {
	return t.Y2 - t.Y
}

// Rect returns the tile as an image.Rectangle
func (t Tile) Rect() image.Rectangle {
	return image.Rect(t.X, t.Y, t.X2, t.Y2)
}

// Box returns the tile extent as a result.Box
func (t Tile) Box() result.Box {
	return result.Box{
		X1: float32(t.X),
		Y1: float32(t.Y),
		X2: float32(t.X2),
		Y2: float32(t.Y2),
	}
}

// GridPos returns the grid position of the tile
func (t Tile) GridPos() result.GridPos {
	return result.GridPos{Row: t.Row, Col: t.Col}
}

// ToGlobal remaps a box from the tile's local coordinates into the
// coordinates of the source image
func (t Tile) ToGlobal(b result.Box) result.Box {
	return b.Translate(float32(t.X), float32(t.Y))
}
