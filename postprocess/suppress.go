package postprocess

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/swdee/go-detfusion/result"
)

// Policy is the overlap metric used to decide if two boxes are duplicates
type Policy string

const (
	// PolicyIoU compares boxes by Intersection-over-Union
	PolicyIoU Policy = "iou"
	// PolicyOverlapRatio compares boxes by the intersection area divided by
	// the area of the smaller box, which also suppresses small boxes nested
	// inside larger ones
	PolicyOverlapRatio Policy = "overlap-ratio"
)

// ParsePolicy returns the Policy for the given name
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyIoU, PolicyOverlapRatio:
		return Policy(s), nil
	}

	return "", fmt.Errorf("unknown suppression policy %q", s)
}

// Metric returns the overlap of two boxes under the policy
func (p Policy) Metric(a, b result.Box) float32 {
	if p == PolicyOverlapRatio {
		return result.OverlapRatio(a, b)
	}
	return result.IoU(a, b)
}

// SuppressParams defines the parameters used for duplicate suppression
type SuppressParams struct {
	// Policy is the overlap metric to compare boxes with
	Policy Policy `mapstructure:"policy" yaml:"policy"`
	// Threshold is the overlap value in the range (0, 1] above which a lower
	// confidence box is discarded as a duplicate
	Threshold float32 `mapstructure:"threshold" yaml:"threshold"`
	// ClassAware restricts suppression to boxes of the same class.  When false
	// boxes of any class suppress each other.
	ClassAware bool `mapstructure:"class_aware" yaml:"class_aware"`
	// MaxDetections is the maximum number of boxes kept, 0 for no limit
	MaxDetections int `mapstructure:"max_detections" yaml:"max_detections"`
}

// Validate checks the suppression parameters
func (p SuppressParams) Validate() error {

	if _, err := ParsePolicy(string(p.Policy)); err != nil {
		return err
	}

	if !(p.Threshold > 0 && p.Threshold <= 1) {
		return fmt.Errorf("suppression threshold %v outside (0, 1]", p.Threshold)
	}

	if p.MaxDetections < 0 {
		return fmt.Errorf("max detections %d is negative", p.MaxDetections)
	}

	return nil
}

// Suppressor removes duplicate proposals with greedy confidence-first
// selection
type Suppressor struct {
	Params SuppressParams
}

// NewSuppressor returns a Suppressor for the given parameters
func NewSuppressor(p SuppressParams) (*Suppressor, error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Suppressor{
		Params: p,
	}, nil
}

// Sort orders proposals by descending probability.  Equal probabilities are
// ordered by the pass that produced them, earliest first, then by their
// position within that pass, so the ordering does not depend on the order in
// which concurrent passes completed.
func Sort(pool []result.Proposal) {
	slices.SortStableFunc(pool, func(a, b result.Proposal) int {
		if c := cmp.Compare(b.Probability, a.Probability); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Provenance.Pass, b.Provenance.Pass); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

// Suppress returns the proposals kept after duplicate suppression in
// descending confidence order.  A proposal is discarded when its overlap with
// any already kept proposal exceeds the threshold.  The given pool is not
// modified.
func (s *Suppressor) Suppress(pool []result.Proposal) []result.Proposal {

	sorted := slices.Clone(pool)
	Sort(sorted)

	keep := make([]result.Proposal, 0, len(sorted))

	for _, cand := range sorted {
		if s.Params.MaxDetections > 0 && len(keep) >= s.Params.MaxDetections {
			break
		}

		duplicate := false

		for _, kept := range keep {
			if s.Params.ClassAware && cand.Class != kept.Class {
				continue
			}

			if s.Params.Policy.Metric(cand.Box, kept.Box) > s.Params.Threshold {
				duplicate = true
				break
			}
		}

		if !duplicate {
			keep = append(keep, cand)
		}
	}

	return keep
}
