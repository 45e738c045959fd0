package detfusion

import (
	"fmt"

	"github.com/swdee/go-detfusion/preprocess"
	"github.com/swdee/go-detfusion/result"
)

// Technique labels how a detection pass prepares the image region
type Technique string

const (
	// TechniqueFull runs the detector on the whole image
	TechniqueFull Technique = "full"
	// TechniqueTiled runs the detector on one grid tile
	TechniqueTiled Technique = "tiled"
	// TechniqueContrast runs the detector on a contrast enhanced image
	TechniqueContrast Technique = "contrast-enhanced"
	// TechniqueHeuristic runs colour segmentation instead of a detector
	TechniqueHeuristic Technique = "colour-segmentation"
)

// HeuristicVariant is the variant identifier of the colour segmentation pass
const HeuristicVariant = "colour"

// Pass is a single unit of detection work
type Pass struct {
	// Index is the position of the pass in the enumerated sequence, earlier
	// passes win confidence ties during suppression
	Index     int       `json:"index" yaml:"index"`
	Variant   string    `json:"variant" yaml:"variant"`
	Threshold float32   `json:"threshold" yaml:"threshold"`
	Technique Technique `json:"technique" yaml:"technique"`
	// Tile is the region of the image for tiled passes, nil for passes run
	// on the whole image
	Tile *preprocess.Tile `json:"tile,omitempty" yaml:"tile,omitempty"`
}

// String returns a short description of the pass for logging
func (p Pass) String() string {
	if p.Tile != nil {
		return fmt.Sprintf("#%d %s@%v %s[%d,%d]", p.Index, p.Variant, p.Threshold,
			p.Technique, p.Tile.Row, p.Tile.Col)
	}
	return fmt.Sprintf("#%d %s@%v %s", p.Index, p.Variant, p.Threshold, p.Technique)
}

// Provenance returns the provenance tag for proposals produced by the pass
func (p Pass) Provenance() result.Provenance {

	prov := result.Provenance{
		Model:     p.Variant,
		Threshold: p.Threshold,
		Technique: string(p.Technique),
		Pass:      p.Index,
	}

	if p.Tile != nil {
		pos := p.Tile.GridPos()
		prov.Tile = &pos
	}

	return prov
}

// Enumerate returns the detection passes for an image of the given size.
// The sequence is ordered by variant, then threshold, in configuration order
// and for each pair lists the full image pass, the tile passes in row-major
// order, then the contrast enhanced pass.  The colour segmentation pass, if
// enabled, is last.  The same configuration and size always produce the same
// sequence.
func Enumerate(cfg Config, width, height int) ([]Pass, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var tiles []preprocess.Tile

	if cfg.Techniques.Tiled {
		var err error
		tiles, err = preprocess.Grid(width, height, cfg.Techniques.GridSize)

		if err != nil {
			return nil, err
		}
	}

	passes := make([]Pass, 0)

	add := func(p Pass) {
		p.Index = len(passes)
		passes = append(passes, p)
	}

	if cfg.Techniques.modelPasses() {
		for _, variant := range cfg.Variants {
			for _, threshold := range cfg.Thresholds {

				if cfg.Techniques.Full {
					add(Pass{Variant: variant, Threshold: threshold, Technique: TechniqueFull})
				}

				if cfg.Techniques.Tiled {
					for i := range tiles {
						add(Pass{
							Variant:   variant,
							Threshold: threshold,
							Technique: TechniqueTiled,
							Tile:      &tiles[i],
						})
					}
				}

				if cfg.Techniques.Contrast {
					add(Pass{Variant: variant, Threshold: threshold, Technique: TechniqueContrast})
				}
			}
		}
	}

	if cfg.Techniques.Heuristic {
		add(Pass{
			Variant:   HeuristicVariant,
			Threshold: cfg.Heuristic.Confidence,
			Technique: TechniqueHeuristic,
		})
	}

	return passes, nil
}
