package result

// Builder assembles Detection records for a single image
type Builder struct {
	// width of the source image in pixels
	width int
	// height of the source image in pixels
	height int
	idGen  *IDGenerator
}

// NewBuilder returns a Builder for an image of the given dimensions.  Zero
// dimensions are allowed, in which case normalized coordinates and the area
// fraction are reported as zero.
func NewBuilder(width, height int) *Builder {
	return &Builder{
		width:  width,
		height: height,
		idGen:  NewIDGenerator(),
	}
}

// Build returns the Detection record for a proposal that survived suppression
func (b *Builder) Build(p Proposal) Detection {

	w := p.Box.Width()
	h := p.Box.Height()
	area := w * h

	d := Detection{
		ID:          b.idGen.GetNext(),
		Box:         p.Box,
		Probability: p.Probability,
		Class:       p.Class,
		ClassName:   p.ClassName,
		Provenance:  p.Provenance,
		Width:       w,
		Height:      h,
		Center:      p.Box.Center(),
		Area:        area,
		Normalized: Box{
			X1: ratio(p.Box.X1, b.width),
			Y1: ratio(p.Box.Y1, b.height),
			X2: ratio(p.Box.X2, b.width),
			Y2: ratio(p.Box.Y2, b.height),
		},
	}

	if p.Provenance.Tile != nil {
		tile := *p.Provenance.Tile
		d.Provenance.Tile = &tile
	}

	if imgArea := float32(b.width) * float32(b.height); imgArea > 0 {
		d.AreaFraction = area / imgArea
	}

	return d
}

// BuildAll returns Detection records for the proposals in the order given
func (b *Builder) BuildAll(accepted []Proposal) []Detection {

	dets := make([]Detection, 0, len(accepted))

	for _, p := range accepted {
		dets = append(dets, b.Build(p))
	}

	return dets
}

// ratio divides v by the image dimension, guarding against a zero dimension
func ratio(v float32, dim int) float32 {
	if dim <= 0 {
		return 0
	}
	return v / float32(dim)
}
