package filter

import (
	"iter"

	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/core"
)

// BlankFilter removes spots whose sample signal does not exceed the blank
// signal by the configured fold change.
type BlankFilter struct {
	blankIDs  []int
	sampleIDs []int

	mode          config.BlankFiltering
	foldChange    float64
	keepRefMatch  bool
	keepSuggested bool
	tagOnly       bool
}

// NewBlankFilter reads the blank settings of param. Sample intensity comes
// from files of type Sample, blank intensity from files of type Blank.
func NewBlankFilter(files []core.AnalysisFile, param *config.Parameter) *BlankFilter {
	f := &BlankFilter{
		mode:          param.BlankFiltering,
		foldChange:    param.FoldChangeForBlankFiltering,
		keepRefMatch:  param.IsKeepRefMatchedMetaboliteFeatures,
		keepSuggested: param.IsKeepSuggestedMetaboliteFeatures,
		tagOnly:       param.IsKeepRemovableFeaturesAndAssignedTagForChecking,
	}
	for _, file := range files {
		switch file.Type {
		case core.FileTypeBlank:
			f.blankIDs = append(f.blankIDs, file.ID)
		case core.FileTypeSample:
			f.sampleIDs = append(f.sampleIDs, file.ID)
		}
	}
	return f
}

// Filter drops blank-like spots unless a keep flag retains them. In tag
// mode blank-like spots pass with IsBlankFiltered set.
func (f *BlankFilter) Filter(spots iter.Seq[*core.AlignmentSpotProperty]) iter.Seq[*core.AlignmentSpotProperty] {
	if len(f.blankIDs) == 0 || len(f.sampleIDs) == 0 {
		return spots
	}
	return func(yield func(*core.AlignmentSpotProperty) bool) {
		for s := range spots {
			if f.IsBlankLike(s) && !f.retained(s) {
				if !f.tagOnly {
					continue
				}
				s.IsBlankFiltered = true
			}
			if !yield(s) {
				return
			}
		}
	}
}

func (f *BlankFilter) retained(s *core.AlignmentSpotProperty) bool {
	return (f.keepRefMatch && s.IsReferenceMatched()) ||
		(f.keepSuggested && s.IsAnnotationSuggested())
}

// IsBlankLike reports whether sample/blankAve falls below the fold change.
// Absent slots contribute zero height.
func (f *BlankFilter) IsBlankLike(s *core.AlignmentSpotProperty) bool {
	blankAve := 0.0
	for _, id := range f.blankIDs {
		blankAve += s.AlignedPeakProperties[id].PeakHeightTop
	}
	blankAve /= float64(len(f.blankIDs))
	if blankAve <= 0 {
		return false
	}

	var sample float64
	switch f.mode {
	case config.SampleAveOverBlankAve:
		for _, id := range f.sampleIDs {
			sample += s.AlignedPeakProperties[id].PeakHeightTop
		}
		sample /= float64(len(f.sampleIDs))
	default:
		for _, id := range f.sampleIDs {
			sample = max(sample, s.AlignedPeakProperties[id].PeakHeightTop)
		}
	}
	return sample/blankAve < f.foldChange
}
