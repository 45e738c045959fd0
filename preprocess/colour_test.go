package preprocess

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-detfusion/result"
	"gocv.io/x/gocv"
)

var (
	white = gocv.NewScalar(255, 255, 255, 0)
	brown = color.RGBA{R: 139, G: 69, B: 19, A: 255}
)

// newPasture returns a white image with brown rectangles drawn on it
func newPasture(width, height int, rects ...image.Rectangle) gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(white, height, width, gocv.MatTypeCV8UC3)

	for _, r := range rects {
		gocv.Rectangle(&img, r, brown, -1)
	}

	return img
}

func TestColourSegmenterFindsSpots(t *testing.T) {

	img := newPasture(300, 300,
		// cow sized spot
		image.Rect(50, 50, 90, 80),
		// too large
		image.Rect(150, 150, 260, 260),
		// too elongated
		image.Rect(20, 200, 80, 210),
	)
	defer img.Close()

	seg := NewColourSegmenter(DefaultColourParams())

	dets, err := seg.Detect(context.Background(), img, "colour", 0)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	// filled rectangles include their end point
	assert.Equal(t, result.Box{X1: 50, Y1: 50, X2: 91, Y2: 81}, dets[0].Box)
	assert.Equal(t, float32(0.5), dets[0].Probability)
	assert.Equal(t, 21, dets[0].Class)
}

func TestColourSegmenterEmptyScene(t *testing.T) {

	img := newPasture(120, 80)
	defer img.Close()

	dets, err := NewColourSegmenter(DefaultColourParams()).Detect(context.Background(), img, "colour", 0)
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestColourSegmenterCancelled(t *testing.T) {

	img := newPasture(120, 80)
	defer img.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewColourSegmenter(DefaultColourParams()).Detect(ctx, img, "colour", 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTileRegion(t *testing.T) {

	img := newPasture(100, 60, image.Rect(50, 30, 60, 40))
	defer img.Close()

	tiles, err := Grid(100, 60, 2)
	require.NoError(t, err)

	region, err := TileRegion(img, tiles[3])
	require.NoError(t, err)
	defer region.Close()

	assert.Equal(t, 50, region.Cols())
	assert.Equal(t, 30, region.Rows())

	// the brown square sits at the top left corner of the last tile
	px := region.GetVecbAt(0, 0)
	assert.Equal(t, []uint8{19, 69, 139}, []uint8{px[0], px[1], px[2]})

	_, err = TileRegion(img, Tile{X: 90, Y: 0, X2: 120, Y2: 10})
	require.ErrorIs(t, err, ErrInvalidGridConfig)
}

func TestContrastApply(t *testing.T) {

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 10, 200, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer img.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	require.NoError(t, DefaultContrast().Apply(img, &dst))

	// 100*1.5+30=180, 10*1.5+30=45, 200*1.5+30=330 saturates to 255
	px := dst.GetVecbAt(2, 2)
	assert.Equal(t, []uint8{180, 45, 255}, []uint8{px[0], px[1], px[2]})

	empty := gocv.NewMat()
	defer empty.Close()

	require.Error(t, DefaultContrast().Apply(empty, &dst))
}
