package detfusion

import (
	"errors"

	"github.com/swdee/go-detfusion/preprocess"
	"github.com/swdee/go-detfusion/result"
)

var (
	// ErrConfiguration is returned before any detection pass runs when the
	// engine configuration can not be used
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidGridConfig is returned when the image can not be tiled with
	// the configured grid size
	ErrInvalidGridConfig = preprocess.ErrInvalidGridConfig
	// ErrAdapterUnavailable is returned by an Adapter when the detector for a
	// variant could not be loaded or initialised
	ErrAdapterUnavailable = errors.New("adapter unavailable")
	// ErrAdapterInference is returned by an Adapter when a single detection
	// request failed
	ErrAdapterInference = errors.New("adapter inference error")
	// ErrMalformedBox is the reason a proposal without area is dropped
	ErrMalformedBox = result.ErrMalformedBox
	// ErrEmptyImage is returned when the image to process has no pixels
	ErrEmptyImage = errors.New("empty image")
)
