package align

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/msalign/pkg/chromatogram"
	"github.com/ChrisMcGann/msalign/pkg/core"
	"github.com/ChrisMcGann/msalign/pkg/gapfill"
	"github.com/ChrisMcGann/msalign/pkg/writer/snippet"
)

// fileResult holds the final slots of one file, indexed like the spots.
type fileResult struct {
	fileID int
	slots  []core.AlignmentChromPeakFeature
	drift  [][]core.AlignmentChromPeakFeature // [spot][child]
}

// stageKey addresses a staged chromatogram by the join-time IDs of a spot and
// of its drift child; child is -1 for the spot itself.
type stageKey struct {
	master int
	child  int
}

// stageKeys lists the records of a staging file in write order.
func stageKeys(spots []*core.AlignmentSpotProperty) []stageKey {
	var keys []stageKey
	for _, s := range spots {
		keys = append(keys, stageKey{master: s.MasterAlignmentID, child: -1})
		for _, c := range s.AlignmentDriftSpotFeatures {
			keys = append(keys, stageKey{master: s.MasterAlignmentID, child: c.MasterAlignmentID})
		}
	}
	return keys
}

func stagePath(dir string, fileID int) string {
	return filepath.Join(dir, fmt.Sprintf("file_%d.eic", fileID))
}

// collect gap fills every file concurrently. Spots are only read here; the
// returned results are applied by the caller.
func (a *Aligner) collect(ctx context.Context, spots []*core.AlignmentSpotProperty, stageDir string) ([]fileResult, error) {
	results := make([]fileResult, len(a.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.Param.NumThreads, 1))
	for i, f := range a.Files {
		g.Go(func() error {
			r, err := a.collectFile(gctx, f, spots, stageDir)
			if err != nil {
				return fmt.Errorf("failed to gap fill %s: %w", f.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Aligner) collectFile(ctx context.Context, file core.AnalysisFile, spots []*core.AlignmentSpotProperty, stageDir string) (fileResult, error) {
	res := fileResult{fileID: file.ID}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	provider, err := a.Providers.Create(file)
	if err != nil {
		return res, fmt.Errorf("failed to open raw data: %w", err)
	}
	spectra, err := provider.LoadMs1Spectrums(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load spectra: %w", err)
	}

	var w *snippet.Writer
	if stageDir != "" {
		if w, err = snippet.Create(stagePath(stageDir, file.ID)); err != nil {
			return res, err
		}
	}
	if err := a.fillFile(ctx, &res, spectra, spots, w); err != nil {
		if w != nil {
			w.Close()
		}
		return res, err
	}
	if w != nil {
		if err := w.Close(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (a *Aligner) fillFile(ctx context.Context, res *fileResult, spectra []core.RawSpectrum, spots []*core.AlignmentSpotProperty, w *snippet.Writer) error {
	force := a.Param.IsForceInsertForGapFilling
	lc := gapfill.NewLcStrategy(a.Param)
	filler := gapfill.NewFiller(lc, force)

	res.slots = make([]core.AlignmentChromPeakFeature, len(spots))
	if a.IonMobility {
		res.drift = make([][]core.AlignmentChromPeakFeature, len(spots))
	}

	for k, spot := range spots {
		if err := ctx.Err(); err != nil {
			return err
		}

		slot := spot.AlignedPeakProperties[res.fileID]
		if !slot.IsPresent() {
			slot = filler.Fill(spectra, spot, res.fileID)
		}
		res.slots[k] = slot
		if w != nil {
			if err := w.WritePeak(peakInfo(lc, spectra, spot, res.fileID, &slot)); err != nil {
				return fmt.Errorf("failed to stage chromatogram: %w", err)
			}
		}

		if !a.IonMobility {
			continue
		}
		// Children are searched inside the parent's RT range in this file
		im := gapfill.NewImStrategy(a.Param, slot.ChromXsLeft.RT, slot.ChromXsRight.RT)
		childFiller := gapfill.NewFiller(im, force)
		res.drift[k] = make([]core.AlignmentChromPeakFeature, len(spot.AlignmentDriftSpotFeatures))
		for j, c := range spot.AlignmentDriftSpotFeatures {
			cs := c.AlignedPeakProperties[res.fileID]
			if !cs.IsPresent() {
				cs = childFiller.Fill(spectra, c, res.fileID)
			}
			res.drift[k][j] = cs
			if w != nil {
				if err := w.WritePeak(peakInfo(im, spectra, c, res.fileID, &cs)); err != nil {
					return fmt.Errorf("failed to stage chromatogram: %w", err)
				}
			}
		}
	}
	return nil
}

// peakInfo extracts the chromatogram of spot in one file around the position
// expected from all present slots.
func peakInfo(s gapfill.Strategy, spectra []core.RawSpectrum, spot *core.AlignmentSpotProperty, fileID int, slot *core.AlignmentChromPeakFeature) snippet.ChromatogramPeakInfo {
	var present []*core.AlignmentChromPeakFeature
	for i := range spot.AlignedPeakProperties {
		if p := &spot.AlignedPeakProperties[i]; p.IsPresent() {
			present = append(present, p)
		}
	}
	var peaks []core.ChromatogramPeak
	if len(present) > 0 {
		peaks = s.Peaks(spectra, s.Center(present), s.PeakWidth(present))
	}
	// Keep one peak width of context on each side of the slot.
	if l, r := slot.ChromXsLeft.Value(), slot.ChromXsRight.Value(); r > l {
		peaks = chromatogram.Window(peaks, l-(r-l), r+(r-l))
	}
	return snippet.NewPeakInfo(fileID, s.AxisType(), slot, peaks)
}

func apply(spots []*core.AlignmentSpotProperty, results []fileResult) {
	for _, r := range results {
		for k, slot := range r.slots {
			spots[k].AlignedPeakProperties[r.fileID] = slot
		}
		for k, children := range r.drift {
			for j, cs := range children {
				spots[k].AlignmentDriftSpotFeatures[j].AlignedPeakProperties[r.fileID] = cs
			}
		}
	}
}
