package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-detfusion/result"
	"gocv.io/x/gocv"
)

// Letterbox scales an image region to a fixed detector input size whilst
// maintaining its aspect, padding the remaining border, and maps boxes found
// in the scaled image back to the region
type Letterbox struct {
	// srcWidth is the width of the source region
	srcWidth int
	// srcHeight is the height of the source region
	srcHeight int
	// dstWidth is the width to scale to
	dstWidth int
	// dstHeight is the height to scale to
	dstHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewLetterbox returns a Letterbox for scaling a srcWidth x srcHeight region
// to dstWidth x dstHeight.  The Letterbox must be closed after use.
func NewLetterbox(srcWidth, srcHeight, dstWidth, dstHeight int) (*Letterbox, error) {

	if srcWidth <= 0 || srcHeight <= 0 || dstWidth <= 0 || dstHeight <= 0 {
		return nil, fmt.Errorf("invalid letterbox %dx%d to %dx%d",
			srcWidth, srcHeight, dstWidth, dstHeight)
	}

	l := &Letterbox{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		tempMat:   gocv.NewMat(),
	}

	l.preCalc()

	return l, nil
}

// Close frees memory allocated during resize process
func (l *Letterbox) Close() error {
	return l.tempMat.Close()
}

// preCalc the scaling factors for source and destination Mats
func (l *Letterbox) preCalc() {

	l.resizeW = l.dstWidth
	l.resizeH = l.dstHeight

	scaleW := float32(l.dstWidth) / float32(l.srcWidth)
	scaleH := float32(l.dstHeight) / float32(l.srcHeight)
	l.scale = scaleH

	if scaleW < scaleH {
		l.scale = scaleW
		l.resizeH = max(1, int(float32(l.srcHeight)*l.scale))
	} else {
		l.resizeW = max(1, int(float32(l.srcWidth)*l.scale))
	}

	l.yPad = (l.dstHeight - l.resizeH) / 2
	l.xPad = (l.dstWidth - l.resizeW) / 2
}

// Resize scales src into dst, padding the border with colour c
func (l *Letterbox) Resize(src gocv.Mat, dst *gocv.Mat, c color.RGBA) {

	gocv.Resize(src, &l.tempMat, image.Pt(l.resizeW, l.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(l.tempMat, dst, l.yPad, l.dstHeight-l.resizeH-l.yPad,
		l.xPad, l.dstWidth-l.resizeW-l.xPad, gocv.BorderConstant, c)
}

// ToSource maps a box in the letterboxed image to the source region, clipped
// to the region bounds
func (l *Letterbox) ToSource(b result.Box) result.Box {

	conv := func(v float32, pad int, limit int) float32 {
		v = (v - float32(pad)) / l.scale
		return min(max(v, 0), float32(limit))
	}

	return result.Box{
		X1: conv(b.X1, l.xPad, l.srcWidth),
		Y1: conv(b.Y1, l.yPad, l.srcHeight),
		X2: conv(b.X2, l.xPad, l.srcWidth),
		Y2: conv(b.Y2, l.yPad, l.srcHeight),
	}
}

// ScaleFactor returns the scale factor used in letterbox resize
func (l *Letterbox) ScaleFactor() float32 {
	return l.scale
}

// XPad returns the x padding used in letterbox resize
func (l *Letterbox) XPad() int {
	return l.xPad
}

// YPad returns the y padding used in letterbox resize
func (l *Letterbox) YPad() int {
	return l.yPad
}
