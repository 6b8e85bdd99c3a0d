// Package chromatogram extracts ion chromatograms from raw spectra and smooths them.
package chromatogram

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// sameTime is the tolerance under which two scans share one axis position.
const sameTime = 1e-6

// ExtractRT builds the retention-time chromatogram of mz±tol from MS1 scans
// with start <= RT <= end. Scans at the same RT (drift frames of one ion
// mobility cycle) are accumulated into a single sample.
func ExtractRT(spectra []core.RawSpectrum, mz, tol, start, end float64) []core.ChromatogramPeak {
	var peaks []core.ChromatogramPeak
	var baseInt []float64

	for i := range spectra {
		s := &spectra[i]
		if s.MsLevel != 1 || s.RetentionTime < start {
			continue
		}
		if s.RetentionTime > end {
			break
		}

		sum, baseMz := s.SumIntensity(mz, tol)
		n := len(peaks)
		if n > 0 && math.Abs(peaks[n-1].Times.RT-s.RetentionTime) < sameTime {
			peaks[n-1].Intensity += sum
			if sum > baseInt[n-1] {
				baseInt[n-1] = sum
				peaks[n-1].Mass = baseMz
			}
			continue
		}

		peaks = append(peaks, core.ChromatogramPeak{
			ID:        n,
			Times:     core.ChromXs{RT: s.RetentionTime, Drift: s.DriftTime, Mz: baseMz, MainType: core.ChromXTypeRT},
			Mass:      baseMz,
			Intensity: sum,
		})
		baseInt = append(baseInt, sum)
	}

	return peaks
}

// ExtractDrift builds the drift-time chromatogram of mz±tol from MS1 scans
// inside the RT window [rtStart, rtEnd] and drift window [dtStart, dtEnd].
// Scans with the same drift time are accumulated.
func ExtractDrift(spectra []core.RawSpectrum, mz, tol, rtStart, rtEnd, dtStart, dtEnd float64) []core.ChromatogramPeak {
	type bin struct {
		drift, rt, intensity, baseMz, baseInt float64
	}
	bins := make(map[int64]*bin)

	for i := range spectra {
		s := &spectra[i]
		if s.MsLevel != 1 || s.RetentionTime < rtStart || s.RetentionTime > rtEnd {
			continue
		}
		if s.DriftTime < dtStart || s.DriftTime > dtEnd {
			continue
		}

		sum, baseMz := s.SumIntensity(mz, tol)
		key := int64(math.Round(s.DriftTime / sameTime))
		b, ok := bins[key]
		if !ok {
			b = &bin{drift: s.DriftTime, rt: s.RetentionTime, baseMz: baseMz, baseInt: -1}
			bins[key] = b
		}
		b.intensity += sum
		if sum > b.baseInt {
			b.baseInt = sum
			b.baseMz = baseMz
			b.rt = s.RetentionTime
		}
	}

	ordered := make([]*bin, 0, len(bins))
	for _, b := range bins {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].drift < ordered[j].drift
	})

	peaks := make([]core.ChromatogramPeak, len(ordered))
	for i, b := range ordered {
		peaks[i] = core.ChromatogramPeak{
			ID:        i,
			Times:     core.ChromXs{RT: b.rt, Drift: b.drift, Mz: b.baseMz, MainType: core.ChromXTypeDrift},
			Mass:      b.baseMz,
			Intensity: b.intensity,
		}
	}
	return peaks
}

// Window returns the samples whose main-axis value lies within [start, end].
// IDs are renumbered from zero.
func Window(peaks []core.ChromatogramPeak, start, end float64) []core.ChromatogramPeak {
	lo := sort.Search(len(peaks), func(i int) bool {
		return peaks[i].Times.Value() >= start
	})
	var out []core.ChromatogramPeak
	for i := lo; i < len(peaks) && peaks[i].Times.Value() <= end; i++ {
		p := peaks[i]
		p.ID = len(out)
		out = append(out, p)
	}
	return out
}
