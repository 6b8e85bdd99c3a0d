package join

import (
	"context"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// ImJoiner joins ion-mobility data: RT-level peaks are joined first, then the
// drift children of the peaks matched in each spot are joined on drift time.
type ImJoiner struct {
	Parent *PeakJoiner
	Drift  Comparer
}

// NewImJoiner creates a joiner for ion-mobility data.
func NewImJoiner(parent, drift Comparer, mergeMaster bool) *ImJoiner {
	return &ImJoiner{Parent: NewPeakJoiner(parent, mergeMaster), Drift: drift}
}

// Join returns RT-level spots whose AlignmentDriftSpotFeatures hold the
// drift-level spots, each with one slot per file.
func (j *ImJoiner) Join(ctx context.Context, files []core.AnalysisFile, referenceID int, accessor Accessor) ([]*core.AlignmentSpotProperty, error) {
	spots, master, peaksByFile, err := j.Parent.join(ctx, files, referenceID, accessor)
	if err != nil || len(spots) == 0 {
		return spots, err
	}

	byID := make([]map[int]*core.ChromatogramPeakFeature, len(files))
	for i, peaks := range peaksByFile {
		byID[i] = make(map[int]*core.ChromatogramPeakFeature, len(peaks))
		for _, p := range peaks {
			byID[i][p.PeakID] = p
		}
	}

	for si, spot := range spots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matched := make([]*core.ChromatogramPeakFeature, len(files))
		for i := range files {
			slot := &spot.AlignedPeakProperties[files[i].ID]
			if slot.IsPresent() {
				matched[i] = byID[i][slot.PeakID]
			}
		}

		driftMaster := make([]*core.ChromatogramPeakFeature, len(master[si].DriftChromFeatures))
		copy(driftMaster, master[si].DriftChromFeatures)
		if j.Parent.MergeMaster {
			for _, parent := range matched {
				if parent != nil && parent != master[si] {
					driftMaster = MergeChromatogramPeaks(j.Drift, driftMaster, parent.DriftChromFeatures)
				}
			}
		}

		children := make([]*core.AlignmentSpotProperty, len(driftMaster))
		for k := range driftMaster {
			children[k] = core.NewAlignmentSpot(k, files)
		}
		for i, parent := range matched {
			if parent == nil {
				continue
			}
			alignPeaksToMaster(j.Drift, children, driftMaster, parent.DriftChromFeatures, files[i])
		}
		spot.AlignmentDriftSpotFeatures = children
	}

	return spots, nil
}
