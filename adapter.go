package detfusion

import (
	"context"

	"github.com/swdee/go-detfusion/result"
	"gocv.io/x/gocv"
)

// Adapter is the boundary to an object detector.  Detect runs the detector
// variant on the image region at the given confidence threshold and returns
// the objects found in the region's own coordinates.  When nothing is found
// an empty slice and nil error must be returned.
//
// Failures should wrap ErrAdapterUnavailable when the variant could not be
// loaded, or ErrAdapterInference for a failed request; other errors are
// treated as ErrAdapterInference.  Implementations should return promptly
// once ctx is done, the engine stops waiting on the call at that point and
// the region must not be used after Detect returns.
type Adapter interface {
	Detect(ctx context.Context, region gocv.Mat, variant string,
		threshold float32) ([]result.RawDetection, error)
}

// AdapterFunc allows an ordinary function to be used as an Adapter
type AdapterFunc func(ctx context.Context, region gocv.Mat, variant string,
	threshold float32) ([]result.RawDetection, error)

// Detect calls f(ctx, region, variant, threshold)
func (f AdapterFunc) Detect(ctx context.Context, region gocv.Mat, variant string,
	threshold float32) ([]result.RawDetection, error) {
	return f(ctx, region, variant, threshold)
}
