// Package index groups the measures of a score by fingerprint.
//
// An Index is built in one pass by Analyze and never changes afterwards. A
// new score gets a new Index; there is no way to update one in place.
package index

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/fingerprint"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
)

var (
	ErrNilScore             = errors.New("score is nil")
	ErrNilMeasure           = errors.New("score contains a nil measure")
	ErrInvalidMeasureNumber = errors.New("measure number must be at least 1")
	ErrDuplicateMeasure     = errors.New("duplicate measure number")
)

// Group is a set of identical measures, ascending by number.
type Group struct {
	Fingerprint fingerprint.Fingerprint
	Measures    []int
}

// Size is the number of measures in the group.
func (g Group) Size() int { return len(g.Measures) }

// Index maps measures to fingerprints and fingerprints back to measures.
type Index struct {
	measureToFingerprint  map[int]fingerprint.Fingerprint
	fingerprintToMeasures map[fingerprint.Fingerprint][]int
	// order keeps fingerprints in first-seen order so Groups is stable
	order    []fingerprint.Fingerprint
	measures []int
}

// Analyze fingerprints every measure of s in ascending measure-number order.
func Analyze(s *score.Score) (*Index, error) {
	if s == nil {
		return nil, ErrNilScore
	}

	measures := make([]*score.Measure, 0, len(s.Measures))
	for i, m := range s.Measures {
		if m == nil {
			return nil, fmt.Errorf("measure at position %d: %w", i, ErrNilMeasure)
		}
		if m.Number < 1 {
			return nil, fmt.Errorf("measure at position %d has number %d: %w", i, m.Number, ErrInvalidMeasureNumber)
		}
		measures = append(measures, m)
	}
	sort.SliceStable(measures, func(i, j int) bool { return measures[i].Number < measures[j].Number })

	idx := &Index{
		measureToFingerprint:  make(map[int]fingerprint.Fingerprint, len(measures)),
		fingerprintToMeasures: make(map[fingerprint.Fingerprint][]int),
		measures:              make([]int, 0, len(measures)),
	}
	for _, m := range measures {
		if _, dup := idx.measureToFingerprint[m.Number]; dup {
			return nil, fmt.Errorf("measure %d: %w", m.Number, ErrDuplicateMeasure)
		}
		fp := fingerprint.Measure(m)
		idx.measureToFingerprint[m.Number] = fp
		if _, seen := idx.fingerprintToMeasures[fp]; !seen {
			idx.order = append(idx.order, fp)
		}
		idx.fingerprintToMeasures[fp] = append(idx.fingerprintToMeasures[fp], m.Number)
		idx.measures = append(idx.measures, m.Number)
	}
	return idx, nil
}

// Fingerprint returns the fingerprint recorded for measure m.
func (idx *Index) Fingerprint(m int) (fingerprint.Fingerprint, bool) {
	if idx == nil {
		return "", false
	}
	fp, ok := idx.measureToFingerprint[m]
	return fp, ok
}

// Group returns a copy of the measures sharing fp, or nil if fp is unknown.
func (idx *Index) Group(fp fingerprint.Fingerprint) []int {
	if idx == nil {
		return nil
	}
	return slices.Clone(idx.fingerprintToMeasures[fp])
}

// GroupOf returns the group containing measure m.
func (idx *Index) GroupOf(m int) []int {
	fp, ok := idx.Fingerprint(m)
	if !ok {
		return nil
	}
	return idx.Group(fp)
}

// MeasureCount is the number of indexed measures.
func (idx *Index) MeasureCount() int {
	if idx == nil {
		return 0
	}
	return len(idx.measureToFingerprint)
}

// GroupCount is the number of distinct fingerprints.
func (idx *Index) GroupCount() int {
	if idx == nil {
		return 0
	}
	return len(idx.fingerprintToMeasures)
}

// Measures lists the indexed measure numbers in ascending order.
func (idx *Index) Measures() []int {
	if idx == nil {
		return nil
	}
	return slices.Clone(idx.measures)
}

// Groups lists every group ordered by its first measure.
func (idx *Index) Groups() []Group {
	if idx == nil {
		return nil
	}
	groups := make([]Group, 0, len(idx.order))
	for _, fp := range idx.order {
		groups = append(groups, Group{Fingerprint: fp, Measures: idx.Group(fp)})
	}
	return groups
}

// Repeated lists the groups with more than one member.
func (idx *Index) Repeated() []Group {
	var out []Group
	for _, g := range idx.Groups() {
		if g.Size() > 1 {
			out = append(out, g)
		}
	}
	return out
}
