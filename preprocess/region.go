package preprocess

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// TileRegion returns the part of the source image covered by the tile.  The
// returned Mat shares pixel data with src and must be closed by the caller
// when no error is returned.
func TileRegion(src gocv.Mat, t Tile) (gocv.Mat, error) {

	bounds := image.Rect(0, 0, src.Cols(), src.Rows())

	if !t.Rect().In(bounds) || t.Rect().Empty() {
		return gocv.Mat{}, fmt.Errorf("%w: tile (%d %d %d %d) outside image %dx%d",
			ErrInvalidGridConfig, t.X, t.Y, t.X2, t.Y2, src.Cols(), src.Rows())
	}

	return src.Region(t.Rect()), nil
}

// Contrast defines a linear brightness and contrast adjustment used to create
// a preprocessing variant of the source image, computed as
// dst = |src*Alpha + Beta| saturated to 8 bits
type Contrast struct {
	// Alpha is the gain applied to each pixel
	Alpha float64 `mapstructure:"alpha" yaml:"alpha"`
	// Beta is the offset added to each pixel after the gain
	Beta float64 `mapstructure:"beta" yaml:"beta"`
}

// DefaultContrast returns the contrast adjustment used for aerial pasture
// images: a gain of 1.5 and an offset of 30
func DefaultContrast() Contrast {
	return Contrast{
		Alpha: 1.5,
		Beta:  30,
	}
}

// Apply writes the contrast adjusted copy of src into dst
func (c Contrast) Apply(src gocv.Mat, dst *gocv.Mat) error {

	if src.Empty() {
		return fmt.Errorf("contrast adjustment of empty image")
	}

	gocv.ConvertScaleAbs(src, dst, c.Alpha, c.Beta)

	return nil
}
