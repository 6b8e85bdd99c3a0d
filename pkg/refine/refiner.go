// Package refine turns joined and gap-filled spots into the final alignment:
// duplicate identifications and near-duplicate spots are removed, blank
// features filtered, IDs assigned and related spots linked into peak groups.
package refine

import (
	"github.com/ChrisMcGann/msalign/internal/monitoring"
	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/core"
	"github.com/ChrisMcGann/msalign/pkg/filter"
)

// Linker populates the relations between spots after IDs are assigned.
type Linker interface {
	SetLinks(spots []*core.AlignmentSpotProperty)
}

// LcLinker links by abundance correlation, identified features and
// representative features, then assigns peak groups.
type LcLinker struct {
	Files                []core.AnalysisFile
	CorrelationThreshold float64
	CorrelationRtMargin  float64
	MinFiles             int
}

func (l *LcLinker) SetLinks(spots []*core.AlignmentSpotProperty) {
	AssignLinksByIonAbundanceCorrelations(spots, l.Files, l.CorrelationThreshold, l.CorrelationRtMargin, l.MinFiles)
	AssignLinksByIdentifiedIonFeatures(spots)
	AssignLinksByRepresentativeIonFeatures(spots)
	AssignPutativePeakgroupIDs(spots)
}

// ImLinker links parents like LcLinker. Drift children join their parent's group.
type ImLinker struct {
	LcLinker
}

func (l *ImLinker) SetLinks(spots []*core.AlignmentSpotProperty) {
	l.LcLinker.SetLinks(spots)
	for _, s := range spots {
		for _, c := range s.AlignmentDriftSpotFeatures {
			c.PeakCharacter.PeakGroupID = s.PeakCharacter.PeakGroupID
		}
	}
}

// Refiner runs the refinement steps in a fixed order.
type Refiner struct {
	Param   *config.Parameter
	Files   []core.AnalysisFile
	Cleaner Cleaner
	Linker  Linker
}

// NewLcRefiner creates a refiner for LC-MS data.
func NewLcRefiner(param *config.Parameter, files []core.AnalysisFile) *Refiner {
	return &Refiner{
		Param:   param,
		Files:   files,
		Cleaner: &LcCleaner{MzTol: param.Ms1AlignmentTolerance, RtTol: param.RetentionTimeAlignmentTolerance},
		Linker: &LcLinker{
			Files:                files,
			CorrelationThreshold: param.CorrelationThreshold,
			CorrelationRtMargin:  param.CorrelationRtMargin,
			MinFiles:             param.MinFilesForCorrelation,
		},
	}
}

// NewImRefiner creates a refiner for LC-IM-MS data.
func NewImRefiner(param *config.Parameter, files []core.AnalysisFile) *Refiner {
	r := NewLcRefiner(param, files)
	r.Cleaner = &ImCleaner{LcCleaner: *r.Cleaner.(*LcCleaner), DriftTol: param.DriftTimeAlignmentTolerance}
	r.Linker = &ImLinker{LcLinker: *r.Linker.(*LcLinker)}
	return r
}

// Refine returns the surviving spots and, in the same order, the
// MasterAlignmentID each one had at join time.
func (r *Refiner) Refine(spots []*core.AlignmentSpotProperty) ([]*core.AlignmentSpotProperty, []int) {
	Deduplicate(spots, r.Param.OnlyReportTopHitInMspSearch, r.Param.OnlyReportTopHitInTextDBSearch)

	cleaned := r.Cleaner.Clean(spots)
	monitoring.Logf("refine: %d of %d spots left after cleaning", len(cleaned), len(spots))

	if r.Param.IsRemoveFeatureBasedOnBlankPeakHeightFoldChange {
		n := len(cleaned)
		cleaned = filter.Apply(filter.NewBlankFilter(r.Files, r.Param), cleaned)
		monitoring.Logf("refine: blank filter removed %d spots", n-len(cleaned))
	}

	SetAlignmentID(cleaned)
	r.Linker.SetLinks(cleaned)
	PostProcess(cleaned, r.Param.Mode())

	idMapping := make([]int, len(cleaned))
	for i, s := range cleaned {
		idMapping[i] = s.MasterAlignmentID
	}
	return cleaned, idMapping
}

// SetAlignmentID numbers spots densely in their current order. Drift children
// are numbered within their parent.
func SetAlignmentID(spots []*core.AlignmentSpotProperty) {
	for i, s := range spots {
		s.AlignmentID = i
		s.ParentAlignmentID = -1
		for j, c := range s.AlignmentDriftSpotFeatures {
			c.AlignmentID = j
			c.ParentAlignmentID = i
		}
	}
}
