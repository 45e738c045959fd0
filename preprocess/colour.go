package preprocess

import (
	"context"
	"fmt"

	"github.com/swdee/go-detfusion/result"
	"gocv.io/x/gocv"
)

// HSVRange is an inclusive range of HSV values as used by OpenCV, where Hue
// is 0 to 180 and Saturation and Value are 0 to 255
type HSVRange struct {
	Lower [3]float64 `mapstructure:"lower" yaml:"lower"`
	Upper [3]float64 `mapstructure:"upper" yaml:"upper"`
}

// ColourParams defines the parameters for the colour segmentation heuristic
type ColourParams struct {
	// Ranges are the HSV ranges that are combined into the object mask
	Ranges []HSVRange `mapstructure:"ranges" yaml:"ranges"`
	// MinArea is the contour area a region must exceed to be reported
	MinArea float64 `mapstructure:"min_area" yaml:"min_area"`
	// MaxArea is the contour area a region must stay under to be reported
	MaxArea float64 `mapstructure:"max_area" yaml:"max_area"`
	// MinAspect and MaxAspect bound the width/height ratio of the region's
	// bounding box (exclusive)
	MinAspect float64 `mapstructure:"min_aspect" yaml:"min_aspect"`
	MaxAspect float64 `mapstructure:"max_aspect" yaml:"max_aspect"`
	// Confidence is the fixed confidence score given to every region
	Confidence float32 `mapstructure:"confidence" yaml:"confidence"`
	// Class is the class ID assigned to every region
	Class int `mapstructure:"class" yaml:"class"`
}

// DefaultColourParams returns parameters tuned to find brown and black
// cattle in aerial images of pasture
func DefaultColourParams() ColourParams {
	return ColourParams{
		Ranges: []HSVRange{
			// brown
			{Lower: [3]float64{10, 50, 20}, Upper: [3]float64{20, 255, 200}},
			{Lower: [3]float64{0, 50, 20}, Upper: [3]float64{10, 255, 200}},
			// dark
			{Lower: [3]float64{0, 0, 0}, Upper: [3]float64{180, 255, 80}},
		},
		MinArea:    100,
		MaxArea:    5000,
		MinAspect:  0.5,
		MaxAspect:  2.0,
		Confidence: 0.5,
		Class:      21,
	}
}

// ColourSegmenter is a non-model detector that reports regions of the image
// matching configured colour ranges.  It satisfies the same Detect signature
// as a model adapter so it can be run as an ordinary detection pass.
type ColourSegmenter struct {
	Params ColourParams
}

// NewColourSegmenter returns a ColourSegmenter using the given parameters
func NewColourSegmenter(p ColourParams) *ColourSegmenter {
	return &ColourSegmenter{
		Params: p,
	}
}

// Detect segments the BGR image region by colour and returns the bounding box
// of each contour that passes the area and aspect ratio filters.  The variant
// and threshold arguments are ignored, every region is reported with the
// configured Confidence.
func (c *ColourSegmenter) Detect(ctx context.Context, region gocv.Mat,
	variant string, threshold float32) ([]result.RawDetection, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if region.Empty() {
		return nil, fmt.Errorf("colour segmentation of empty image")
	}

	if len(c.Params.Ranges) == 0 {
		return []result.RawDetection{}, nil
	}

	hsv := gocv.NewMat()
	defer hsv.Close()

	gocv.CvtColor(region, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.Zeros(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8UC1)
	defer mask.Close()

	part := gocv.NewMat()
	defer part.Close()

	// combine the mask of each colour range
	for _, r := range c.Params.Ranges {
		lower := gocv.NewScalar(r.Lower[0], r.Lower[1], r.Lower[2], 0)
		upper := gocv.NewScalar(r.Upper[0], r.Upper[1], r.Upper[2], 0)

		gocv.InRangeWithScalar(hsv, lower, upper, &part)
		gocv.BitwiseOr(mask, part, &mask)
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	dets := make([]result.RawDetection, 0)

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		area := gocv.ContourArea(contour)

		if area <= c.Params.MinArea || area >= c.Params.MaxArea {
			continue
		}

		rect := gocv.BoundingRect(contour)

		if rect.Dy() <= 0 {
			continue
		}

		aspect := float64(rect.Dx()) / float64(rect.Dy())

		if aspect <= c.Params.MinAspect || aspect >= c.Params.MaxAspect {
			continue
		}

		dets = append(dets, result.RawDetection{
			Box: result.Box{
				X1: float32(rect.Min.X),
				Y1: float32(rect.Min.Y),
				X2: float32(rect.Max.X),
				Y2: float32(rect.Max.Y),
			},
			Probability: c.Params.Confidence,
			Class:       c.Params.Class,
		})
	}

	return dets, nil
}
