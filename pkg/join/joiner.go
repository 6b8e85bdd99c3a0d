// Package join matches per-file peak detections against a master peak list
// and builds one alignment spot per master peak.
package join

import (
	"context"
	"fmt"

	"github.com/ChrisMcGann/msalign/internal/monitoring"
	"github.com/ChrisMcGann/msalign/pkg/core"
)

// Accessor supplies the detected peaks of an analysis file.
type Accessor interface {
	GetPeaks(ctx context.Context, file core.AnalysisFile) ([]*core.ChromatogramPeakFeature, error)
}

// PeakJoiner joins detections of all files into alignment spots.
type PeakJoiner struct {
	Comparer Comparer
	// MergeMaster adds detections of non-reference files that match no
	// master entry to the master list.
	MergeMaster bool
}

// NewPeakJoiner creates a joiner for the given comparer.
func NewPeakJoiner(comparer Comparer, mergeMaster bool) *PeakJoiner {
	return &PeakJoiner{Comparer: comparer, MergeMaster: mergeMaster}
}

// Join returns one spot per master peak with one slot per file. An empty
// file list or an unknown reference file yields no spots.
func (j *PeakJoiner) Join(ctx context.Context, files []core.AnalysisFile, referenceID int, accessor Accessor) ([]*core.AlignmentSpotProperty, error) {
	spots, _, _, err := j.join(ctx, files, referenceID, accessor)
	return spots, err
}

// join also returns the master list and the loaded detections for callers
// that join a second axis.
func (j *PeakJoiner) join(ctx context.Context, files []core.AnalysisFile, referenceID int, accessor Accessor) (
	[]*core.AlignmentSpotProperty, []*core.ChromatogramPeakFeature, [][]*core.ChromatogramPeakFeature, error) {
	if len(files) == 0 {
		return nil, nil, nil, nil
	}

	refIdx := -1
	for i, f := range files {
		if f.ID == referenceID {
			refIdx = i
			break
		}
	}
	if refIdx < 0 {
		monitoring.Logf("join: reference file %d not in project, no spots produced", referenceID)
		return nil, nil, nil, nil
	}

	peaksByFile := make([][]*core.ChromatogramPeakFeature, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		peaks, err := accessor.GetPeaks(ctx, f)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load peaks of %s: %w", f.Name, err)
		}
		peaksByFile[i] = peaks
	}

	master := j.masterList(peaksByFile, refIdx)
	monitoring.Logf("join: %d master peaks (reference %s)", len(master), files[refIdx].Name)

	spots := make([]*core.AlignmentSpotProperty, len(master))
	for i := range master {
		spots[i] = core.NewAlignmentSpot(i, files)
	}
	for i, f := range files {
		alignPeaksToMaster(j.Comparer, spots, master, peaksByFile[i], f)
	}

	return spots, master, peaksByFile, nil
}

// masterList seeds the master list from the reference file and, with
// MergeMaster, extends it with novel peaks of the other files in file order.
func (j *PeakJoiner) masterList(peaksByFile [][]*core.ChromatogramPeakFeature, refIdx int) []*core.ChromatogramPeakFeature {
	master := make([]*core.ChromatogramPeakFeature, len(peaksByFile[refIdx]))
	copy(master, peaksByFile[refIdx])
	if !j.MergeMaster {
		return master
	}
	for i, peaks := range peaksByFile {
		if i == refIdx {
			continue
		}
		master = MergeChromatogramPeaks(j.Comparer, master, peaks)
	}
	return master
}

// MergeChromatogramPeaks appends every target that equals no master entry.
func MergeChromatogramPeaks(comparer Comparer, masters, targets []*core.ChromatogramPeakFeature) []*core.ChromatogramPeakFeature {
	n := len(masters)
	for _, target := range targets {
		exists := false
		for _, m := range masters[:n] {
			if comparer.Equals(m, target) {
				exists = true
				break
			}
		}
		if !exists {
			masters = append(masters, target)
		}
	}
	return masters
}

// alignPeaksToMaster assigns each target to the best-scoring master within
// tolerance whose recorded best it beats. A later target with a higher score
// replaces an earlier one; targets that match nothing are dropped.
func alignPeaksToMaster(comparer Comparer, spots []*core.AlignmentSpotProperty, masters, targets []*core.ChromatogramPeakFeature, file core.AnalysisFile) {
	maxMatches := make([]float64, len(masters))
	for _, target := range targets {
		matchIdx := -1
		matchFactor := 0.0
		for i, m := range masters {
			if !comparer.Equals(m, target) {
				continue
			}
			factor := comparer.GetSimilarity(m, target)
			if factor > maxMatches[i] && (matchIdx < 0 || factor > matchFactor) {
				matchIdx = i
				matchFactor = factor
			}
		}
		if matchIdx < 0 {
			continue
		}
		maxMatches[matchIdx] = matchFactor
		spots[matchIdx].AlignedPeakProperties[file.ID] = core.NewDetectedPeak(target, file.ID, file.Name, matchIdx)
	}
}
