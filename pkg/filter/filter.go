// Package filter provides spot filters applied between joining and gap filling
package filter

import (
	"iter"
	"math"
	"slices"

	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/core"
)

// SpotFilter narrows a stream of alignment spots. Filters are lazy and never
// add spots to the stream.
type SpotFilter interface {
	Filter(spots iter.Seq[*core.AlignmentSpotProperty]) iter.Seq[*core.AlignmentSpotProperty]
}

// Apply runs f over spots and collects the survivors.
func Apply(f SpotFilter, spots []*core.AlignmentSpotProperty) []*core.AlignmentSpotProperty {
	return slices.Collect(f.Filter(slices.Values(spots)))
}

// keep yields the spots for which pred holds.
func keep(spots iter.Seq[*core.AlignmentSpotProperty], pred func(*core.AlignmentSpotProperty) bool) iter.Seq[*core.AlignmentSpotProperty] {
	return func(yield func(*core.AlignmentSpotProperty) bool) {
		for s := range spots {
			if pred(s) && !yield(s) {
				return
			}
		}
	}
}

// PeakCountFilter keeps spots matched in at least Threshold files.
type PeakCountFilter struct {
	Threshold float64
}

// NewPeakCountFilter creates a filter with an absolute file-count threshold.
func NewPeakCountFilter(threshold float64) *PeakCountFilter {
	return &PeakCountFilter{Threshold: threshold}
}

func (f *PeakCountFilter) Filter(spots iter.Seq[*core.AlignmentSpotProperty]) iter.Seq[*core.AlignmentSpotProperty] {
	return keep(spots, func(s *core.AlignmentSpotProperty) bool {
		return float64(s.DetectedCount()) >= f.Threshold
	})
}

// QcFilter keeps spots that are present in every QC file.
type QcFilter struct {
	qcFileIDs []int
}

// NewQcFilter collects the QC files of a project.
func NewQcFilter(files []core.AnalysisFile) *QcFilter {
	f := &QcFilter{}
	for _, file := range files {
		if file.Type == core.FileTypeQC {
			f.qcFileIDs = append(f.qcFileIDs, file.ID)
		}
	}
	return f
}

func (f *QcFilter) Filter(spots iter.Seq[*core.AlignmentSpotProperty]) iter.Seq[*core.AlignmentSpotProperty] {
	return keep(spots, func(s *core.AlignmentSpotProperty) bool {
		for _, id := range f.qcFileIDs {
			if !s.AlignedPeakProperties[id].IsPresent() {
				return false
			}
		}
		return true
	})
}

// DetectedNumberFilter keeps spots detected in at least a fraction of the
// files of some sample class.
type DetectedNumberFilter struct {
	classes    map[string][]int
	thresholds map[string]int
	order      []string
}

// NewDetectedNumberFilter groups files by class. The threshold of a class is
// floor(classSize * fraction), with fraction in [0, 1].
func NewDetectedNumberFilter(files []core.AnalysisFile, fraction float64) *DetectedNumberFilter {
	f := &DetectedNumberFilter{
		classes:    make(map[string][]int),
		thresholds: make(map[string]int),
	}
	for _, file := range files {
		if _, ok := f.classes[file.Class]; !ok {
			f.order = append(f.order, file.Class)
		}
		f.classes[file.Class] = append(f.classes[file.Class], file.ID)
	}
	for class, ids := range f.classes {
		f.thresholds[class] = int(math.Floor(float64(len(ids)) * fraction))
	}
	return f
}

func (f *DetectedNumberFilter) Filter(spots iter.Seq[*core.AlignmentSpotProperty]) iter.Seq[*core.AlignmentSpotProperty] {
	return keep(spots, func(s *core.AlignmentSpotProperty) bool {
		for _, class := range f.order {
			n := 0
			for _, id := range f.classes[class] {
				if s.AlignedPeakProperties[id].IsPresent() {
					n++
				}
			}
			if n >= f.thresholds[class] {
				return true
			}
		}
		return false
	})
}

// CompositeFilter chains filters in order. An empty chain passes every spot.
type CompositeFilter struct {
	filters []SpotFilter
}

// NewCompositeFilter creates a chain of filters.
func NewCompositeFilter(filters ...SpotFilter) *CompositeFilter {
	return &CompositeFilter{filters: filters}
}

func (f *CompositeFilter) Filter(spots iter.Seq[*core.AlignmentSpotProperty]) iter.Seq[*core.AlignmentSpotProperty] {
	for _, inner := range f.filters {
		spots = inner.Filter(spots)
	}
	return spots
}

// FromParameter builds the chain run right after joining: peak count, then
// QC presence and per-class detection when enabled.
func FromParameter(param *config.Parameter, files []core.AnalysisFile) *CompositeFilter {
	threshold := param.PeakCountFilter / 100 * float64(len(files))
	filters := []SpotFilter{NewPeakCountFilter(threshold)}
	if param.QcAtLeastFilter {
		filters = append(filters, NewQcFilter(files))
	}
	if param.NPercentDetectedInOneGroup > 0 {
		filters = append(filters, NewDetectedNumberFilter(files, param.NPercentDetectedInOneGroup/100))
	}
	return NewCompositeFilter(filters...)
}
