package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-detfusion/result"
)

func proposal(x1, y1, x2, y2, prob float32, pass, seq int) result.Proposal {
	return result.Proposal{
		Box:         result.Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Probability: prob,
		Class:       21,
		Provenance:  result.Provenance{Pass: pass},
		Seq:         seq,
	}
}

func mustSuppressor(t *testing.T, p SuppressParams) *Suppressor {
	t.Helper()
	s, err := NewSuppressor(p)
	require.NoError(t, err)
	return s
}

func TestSuppressParamsValidate(t *testing.T) {

	tests := []struct {
		name   string
		params SuppressParams
		valid  bool
	}{
		{"iou", SuppressParams{Policy: PolicyIoU, Threshold: 0.3}, true},
		{"overlap_upper_bound", SuppressParams{Policy: PolicyOverlapRatio, Threshold: 1}, true},
		{"zero_threshold", SuppressParams{Policy: PolicyIoU, Threshold: 0}, false},
		{"threshold_above_one", SuppressParams{Policy: PolicyIoU, Threshold: 1.1}, false},
		{"unknown_policy", SuppressParams{Policy: "area", Threshold: 0.3}, false},
		{"negative_max", SuppressParams{Policy: PolicyIoU, Threshold: 0.3, MaxDetections: -1}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSuppressGreedyPriority(t *testing.T) {

	pool := []result.Proposal{
		proposal(2, 2, 102, 102, 0.3, 0, 0),
		proposal(0, 0, 100, 100, 0.9, 1, 0),
		proposal(1, 1, 101, 101, 0.8, 2, 0),
	}

	keep := mustSuppressor(t, SuppressParams{Policy: PolicyIoU, Threshold: 0.5}).Suppress(pool)

	require.Len(t, keep, 1)
	assert.Equal(t, float32(0.9), keep[0].Probability)
}

func TestSuppressOutputDescendingConfidence(t *testing.T) {

	pool := []result.Proposal{
		proposal(0, 0, 10, 10, 0.4, 0, 0),
		proposal(100, 100, 110, 110, 0.7, 0, 1),
		proposal(200, 200, 210, 210, 0.55, 1, 0),
	}

	keep := mustSuppressor(t, SuppressParams{Policy: PolicyIoU, Threshold: 0.3}).Suppress(pool)

	require.Len(t, keep, 3)
	assert.Equal(t, []float32{0.7, 0.55, 0.4},
		[]float32{keep[0].Probability, keep[1].Probability, keep[2].Probability})
}

func TestSuppressPolicyDivergence(t *testing.T) {

	pool := []result.Proposal{
		proposal(0, 0, 100, 100, 0.9, 0, 0),
		proposal(10, 10, 20, 20, 0.6, 0, 1),
	}

	iou := mustSuppressor(t, SuppressParams{Policy: PolicyIoU, Threshold: 0.3}).Suppress(pool)
	assert.Len(t, iou, 2)

	ratio := mustSuppressor(t, SuppressParams{Policy: PolicyOverlapRatio, Threshold: 0.3}).Suppress(pool)
	require.Len(t, ratio, 1)
	assert.Equal(t, float32(0.9), ratio[0].Probability)
}

func TestSuppressTieBreakByPass(t *testing.T) {

	// identical confidence, the earlier pass must win regardless of input order
	pool := []result.Proposal{
		proposal(1, 1, 51, 51, 0.5, 3, 0),
		proposal(0, 0, 50, 50, 0.5, 1, 1),
		proposal(2, 2, 52, 52, 0.5, 1, 0),
	}

	keep := mustSuppressor(t, SuppressParams{Policy: PolicyIoU, Threshold: 0.3}).Suppress(pool)

	require.Len(t, keep, 1)
	assert.Equal(t, 1, keep[0].Provenance.Pass)
	assert.Equal(t, 0, keep[0].Seq)
}

func TestSuppressIdempotent(t *testing.T) {

	pool := []result.Proposal{
		proposal(0, 0, 50, 50, 0.4, 0, 0),
		proposal(5, 5, 55, 55, 0.35, 0, 1),
		proposal(0, 0, 50, 50, 0.4, 1, 0),
		proposal(300, 300, 340, 330, 0.2, 2, 0),
		proposal(305, 302, 341, 333, 0.2, 1, 1),
	}
	orig := append([]result.Proposal(nil), pool...)

	s := mustSuppressor(t, SuppressParams{Policy: PolicyOverlapRatio, Threshold: 0.2})

	first := s.Suppress(pool)
	second := s.Suppress(pool)

	assert.Equal(t, first, second)
	assert.Equal(t, orig, pool, "input pool must not be modified")

	// suppressing an already suppressed set changes nothing
	assert.Equal(t, first, s.Suppress(first))
}

func TestSuppressClassAware(t *testing.T) {

	a := proposal(0, 0, 100, 100, 0.9, 0, 0)
	b := proposal(0, 0, 100, 100, 0.8, 0, 1)
	b.Class = 19

	agnostic := mustSuppressor(t, SuppressParams{Policy: PolicyIoU, Threshold: 0.3}).
		Suppress([]result.Proposal{a, b})
	assert.Len(t, agnostic, 1)

	aware := mustSuppressor(t, SuppressParams{Policy: PolicyIoU, Threshold: 0.3, ClassAware: true}).
		Suppress([]result.Proposal{a, b})
	assert.Len(t, aware, 2)
}

func TestSuppressMaxDetections(t *testing.T) {

	pool := []result.Proposal{
		proposal(0, 0, 10, 10, 0.9, 0, 0),
		proposal(20, 20, 30, 30, 0.8, 0, 1),
		proposal(40, 40, 50, 50, 0.7, 0, 2),
	}

	keep := mustSuppressor(t, SuppressParams{Policy: PolicyIoU, Threshold: 0.3, MaxDetections: 2}).Suppress(pool)

	require.Len(t, keep, 2)
	assert.Equal(t, float32(0.8), keep[1].Probability)
}

func TestSuppressEmptyPool(t *testing.T) {

	keep := mustSuppressor(t, SuppressParams{Policy: PolicyIoU, Threshold: 0.3}).Suppress(nil)
	assert.Empty(t, keep)
}
