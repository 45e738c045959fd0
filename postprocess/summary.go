package postprocess

import (
	"github.com/swdee/go-detfusion/result"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the proposals gathered for an image and the detections
// that remained after suppression
type Summary struct {
	// Raw is the number of proposals gathered from all passes
	Raw int `json:"raw" yaml:"raw"`
	// Filtered is the number of proposals that passed the class filter
	Filtered int `json:"filtered" yaml:"filtered"`
	// Final is the number of detections after suppression
	Final int `json:"final" yaml:"final"`
	// ByClass is the number of filtered proposals per class name
	ByClass map[string]int `json:"by_class" yaml:"by_class"`
	// ByTechnique is the number of raw proposals per pass technique
	ByTechnique map[string]int `json:"by_technique" yaml:"by_technique"`
	// Confidence statistics of the filtered proposals, zero when empty
	MinConfidence  float64 `json:"min_confidence" yaml:"min_confidence"`
	MaxConfidence  float64 `json:"max_confidence" yaml:"max_confidence"`
	MeanConfidence float64 `json:"mean_confidence" yaml:"mean_confidence"`
	// MeanArea is the mean pixel area of the final detections
	MeanArea float64 `json:"mean_area" yaml:"mean_area"`
}

// Summarise builds the Summary for the raw pool, the class filtered pool and
// the final detections of an image
func Summarise(raw, filtered []result.Proposal, final []result.Detection) Summary {

	s := Summary{
		Raw:         len(raw),
		Filtered:    len(filtered),
		Final:       len(final),
		ByClass:     make(map[string]int),
		ByTechnique: make(map[string]int),
	}

	for _, p := range raw {
		s.ByTechnique[p.Provenance.Technique]++
	}

	if len(filtered) > 0 {
		conf := make([]float64, len(filtered))

		for i, p := range filtered {
			conf[i] = float64(p.Probability)
			s.ByClass[p.ClassName]++
		}

		s.MinConfidence = floats.Min(conf)
		s.MaxConfidence = floats.Max(conf)
		s.MeanConfidence = stat.Mean(conf, nil)
	}

	if len(final) > 0 {
		areas := make([]float64, len(final))

		for i, d := range final {
			areas[i] = float64(d.Area)
		}

		s.MeanArea = stat.Mean(areas, nil)
	}

	return s
}
