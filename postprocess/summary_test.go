package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/swdee/go-detfusion/result"
)

func TestSummarise(t *testing.T) {

	raw := []result.Proposal{
		{Probability: 0.2, Class: 0, Provenance: result.Provenance{Technique: "full"}},
		{Probability: 0.4, Class: 21, Provenance: result.Provenance{Technique: "full"}},
		{Probability: 0.8, Class: 21, Provenance: result.Provenance{Technique: "tiled"}},
	}

	filtered := []result.Proposal{
		{Probability: 0.4, Class: 21, ClassName: "cow"},
		{Probability: 0.8, Class: 21, ClassName: "cow"},
	}

	final := []result.Detection{
		{Area: 100},
		{Area: 300},
	}

	s := Summarise(raw, filtered, final)

	assert.Equal(t, 3, s.Raw)
	assert.Equal(t, 2, s.Filtered)
	assert.Equal(t, 2, s.Final)
	assert.Equal(t, map[string]int{"full": 2, "tiled": 1}, s.ByTechnique)
	assert.Equal(t, map[string]int{"cow": 2}, s.ByClass)
	assert.InDelta(t, 0.4, s.MinConfidence, 1e-6)
	assert.InDelta(t, 0.8, s.MaxConfidence, 1e-6)
	assert.InDelta(t, 0.6, s.MeanConfidence, 1e-6)
	assert.InDelta(t, 200, s.MeanArea, 1e-6)
}

func TestSummariseEmpty(t *testing.T) {

	s := Summarise(nil, nil, nil)

	assert.Zero(t, s.Raw)
	assert.Zero(t, s.MinConfidence)
	assert.Zero(t, s.MeanArea)
	assert.Empty(t, s.ByClass)
}
