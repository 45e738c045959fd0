package result

// RawDetection is a single object returned by a detector for the image region
// it was given.  The Box is in the coordinate space of that region.
type RawDetection struct {
	// Box is the bounding box of the object in region local coordinates
	Box Box
	// Probability is the confidence score of the object detected
	Probability float32
	// Class is the class ID the detector assigned to the object
	Class int
}

// GridPos is the row and column of a tile in the image grid
type GridPos struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// Provenance records which detection pass produced an object
type Provenance struct {
	// Model is the detector variant identifier the pass invoked
	Model string `json:"model" yaml:"model"`
	// Threshold is the confidence threshold the detector was run at
	Threshold float32 `json:"threshold" yaml:"threshold"`
	// Technique is the label of the technique used, eg: "full" or "tiled"
	Technique string `json:"technique" yaml:"technique"`
	// Pass is the index of the pass in the enumerated pass sequence
	Pass int `json:"pass" yaml:"pass"`
	// Tile is the grid position of the tile for tiled passes, nil otherwise
	Tile *GridPos `json:"tile,omitempty" yaml:"tile,omitempty"`
}

// Proposal is a candidate object in the global coordinates of the source
// image waiting on class filtering and suppression
type Proposal struct {
	Box         Box
	Probability float32
	Class       int
	// ClassName is the canonical class name, set by the class filter
	ClassName  string
	Provenance Provenance
	// Seq is the position of the proposal in the output of its pass
	Seq int
}

// Detection is the canonical record of an object that survived suppression.
// All derived fields are computed once by the Builder.
type Detection struct {
	// ID is a unique ID assigned to the detection within its image
	ID int64 `json:"id" yaml:"id"`
	// Box is the bounding box in source image pixel coordinates
	Box Box `json:"box" yaml:"box"`
	// Probability is the confidence score of the object detected
	Probability float32 `json:"probability" yaml:"probability"`
	// Class is the class ID of the object
	Class int `json:"class" yaml:"class"`
	// ClassName is the canonical name of the class
	ClassName  string     `json:"class_name" yaml:"class_name"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
	Width      float32    `json:"width" yaml:"width"`
	Height     float32    `json:"height" yaml:"height"`
	Center     Point      `json:"center" yaml:"center"`
	// Area is the pixel area of the box
	Area float32 `json:"area" yaml:"area"`
	// AreaFraction is Area divided by the total image area, from 0 to 1
	AreaFraction float32 `json:"area_fraction" yaml:"area_fraction"`
	// Normalized is the box with X coordinates divided by the image width
	// and Y coordinates divided by the image height
	Normalized Box `json:"normalized" yaml:"normalized"`
}
