package align

import (
	"context"
	"fmt"

	"github.com/ChrisMcGann/msalign/pkg/core"
	"github.com/ChrisMcGann/msalign/pkg/writer/snippet"
)

// serialize merges the per-file staging files into one snippet file with a
// spot record for every refined spot and drift child. idMapping[i] is the
// join-time ID of refined[i]; keys is the record order of the staging files.
func (a *Aligner) serialize(ctx context.Context, refined []*core.AlignmentSpotProperty, idMapping []int, keys []stageKey, stageDir string) error {
	staged := make([]map[stageKey]snippet.ChromatogramPeakInfo, len(a.Files))
	for i, f := range a.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := readStage(stagePath(stageDir, f.ID), keys)
		if err != nil {
			return fmt.Errorf("failed to read staged chromatograms of %s: %w", f.Name, err)
		}
		staged[i] = m
	}

	w, err := snippet.Create(a.SnippetPath)
	if err != nil {
		return err
	}
	peaksOf := func(key stageKey) []snippet.ChromatogramPeakInfo {
		peaks := make([]snippet.ChromatogramPeakInfo, len(staged))
		for i := range staged {
			peaks[i] = staged[i][key]
		}
		return peaks
	}

	for i, s := range refined {
		master := idMapping[i]
		err := w.WriteSpot(snippet.ChromatogramSpotInfo{
			AlignmentID:       s.AlignmentID,
			ParentAlignmentID: -1,
			Axis:              core.ChromXTypeRT,
			Peaks:             peaksOf(stageKey{master: master, child: -1}),
		})
		for _, c := range s.AlignmentDriftSpotFeatures {
			if err != nil {
				break
			}
			err = w.WriteSpot(snippet.ChromatogramSpotInfo{
				AlignmentID:       c.AlignmentID,
				ParentAlignmentID: s.AlignmentID,
				Axis:              core.ChromXTypeDrift,
				Peaks:             peaksOf(stageKey{master: master, child: c.MasterAlignmentID}),
			})
		}
		if err != nil {
			w.Close()
			return fmt.Errorf("failed to write chromatogram snippets: %w", err)
		}
	}
	return w.Close()
}

func readStage(path string, keys []stageKey) (map[stageKey]snippet.ChromatogramPeakInfo, error) {
	r, err := snippet.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	m := make(map[stageKey]snippet.ChromatogramPeakInfo, len(keys))
	for _, key := range keys {
		p, err := r.ReadPeak()
		if err != nil {
			return nil, err
		}
		m[key] = p
	}
	return m, nil
}
