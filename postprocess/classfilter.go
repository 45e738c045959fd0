package postprocess

import (
	"fmt"
	"slices"

	"github.com/swdee/go-detfusion/result"
)

// ClassMode defines how the class filter treats classes without a known name
type ClassMode string

const (
	// ClassStrict keeps only classes of interest that have a known name
	ClassStrict ClassMode = "strict"
	// ClassBroad keeps every class of interest, deriving a name for classes
	// missing from the name lookup
	ClassBroad ClassMode = "broad"
)

// ClassFilter restricts a proposal pool to the classes of interest and
// assigns each surviving proposal its canonical class name
type ClassFilter struct {
	mode     ClassMode
	interest map[int]struct{}
	names    map[int]string
}

// NewClassFilter returns a ClassFilter for the given class IDs of interest.
// names maps class IDs to their canonical names and may be nil.
func NewClassFilter(mode ClassMode, ids []int, names map[int]string) (*ClassFilter, error) {

	if mode != ClassStrict && mode != ClassBroad {
		return nil, fmt.Errorf("unknown class mode %q", mode)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("no classes of interest given")
	}

	f := &ClassFilter{
		mode:     mode,
		interest: make(map[int]struct{}, len(ids)),
		names:    make(map[int]string, len(names)),
	}

	for _, id := range ids {
		f.interest[id] = struct{}{}
	}

	for id, name := range names {
		f.names[id] = name
	}

	if mode == ClassStrict && len(f.Unnamed()) == len(f.interest) {
		return nil, fmt.Errorf("strict class mode without a name for any class of interest %v", f.Classes())
	}

	return f, nil
}

// Unnamed returns the sorted class IDs of interest with no name in the
// lookup.  In strict mode these classes are never kept.
func (f *ClassFilter) Unnamed() []int {

	var ids []int

	for _, id := range f.Classes() {
		if f.names[id] == "" {
			ids = append(ids, id)
		}
	}

	return ids
}

// Name returns the canonical name of the class and whether the class is
// kept by the filter
func (f *ClassFilter) Name(class int) (string, bool) {

	if _, ok := f.interest[class]; !ok {
		return "", false
	}

	if name, ok := f.names[class]; ok && name != "" {
		return name, true
	}

	if f.mode == ClassStrict {
		return "", false
	}

	return DerivedClassName(class), true
}

// Apply returns a new pool containing only proposals of interest, in their
// input order, with ClassName set.  Geometry and confidence are untouched.
func (f *ClassFilter) Apply(pool []result.Proposal) []result.Proposal {

	kept := make([]result.Proposal, 0, len(pool))

	for _, p := range pool {
		name, ok := f.Name(p.Class)

		if !ok {
			continue
		}

		p.ClassName = name
		kept = append(kept, p)
	}

	return kept
}

// Classes returns the sorted class IDs of interest
func (f *ClassFilter) Classes() []int {

	ids := make([]int, 0, len(f.interest))

	for id := range f.interest {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// DerivedClassName returns the generic name used for a class ID that has no
// entry in the name lookup
func DerivedClassName(class int) string {
	return fmt.Sprintf("class_%d", class)
}
