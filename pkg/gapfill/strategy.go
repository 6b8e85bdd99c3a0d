package gapfill

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/msalign/pkg/chromatogram"
	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/core"
)

const (
	minRtWidth    = 0.2   // minutes
	minDriftWidth = 0.2   // milliseconds
	minMzTol      = 0.005 // Da
	windowFactor  = 1.5   // Extraction half-window in peak widths
)

// LcStrategy fills on the retention-time axis.
type LcStrategy struct {
	MzTol           float64
	RtTol           float64
	CenterMethod    config.CenterMethod
	SmoothingMethod config.SmoothingMethod
	SmoothingLevel  int
}

// NewLcStrategy reads the gap-filling settings of param.
func NewLcStrategy(param *config.Parameter) *LcStrategy {
	return &LcStrategy{
		MzTol:           math.Max(param.CentroidMs1Tolerance, minMzTol),
		RtTol:           param.RetentionTimeAlignmentTolerance,
		CenterMethod:    param.CenterMethod,
		SmoothingMethod: param.SmoothingMethod,
		SmoothingLevel:  param.SmoothingLevel,
	}
}

func (s *LcStrategy) Center(present []*core.AlignmentChromPeakFeature) core.ChromXs {
	rts := make([]float64, len(present))
	for i, p := range present {
		rts[i] = p.ChromXsTop.RT
	}
	c := core.NewRT(centerOf(rts, s.CenterMethod))
	c.Mz = highest(present).Mass
	return c
}

func (s *LcStrategy) PeakWidth(present []*core.AlignmentChromPeakFeature) float64 {
	return maxWidth(present, func(x core.ChromXs) float64 { return x.RT }, minRtWidth)
}

func (s *LcStrategy) Peaks(spectra []core.RawSpectrum, center core.ChromXs, width float64) []core.ChromatogramPeak {
	peaks := chromatogram.ExtractRT(spectra, center.Mz, s.MzTol, center.RT-windowFactor*width, center.RT+windowFactor*width)
	return chromatogram.Smooth(peaks, s.SmoothingMethod, s.SmoothingLevel)
}

func (s *LcStrategy) AxisTolerance() float64 { return s.RtTol }

func (s *LcStrategy) AxisType() core.ChromXType { return core.ChromXTypeRT }

// ImStrategy fills drift-time children. Spectra are restricted to the RT
// range of the parent peak in the file being filled.
type ImStrategy struct {
	LcStrategy
	DriftTol float64
	RtLeft   float64
	RtRight  float64
}

// NewImStrategy creates a drift strategy for a parent peak spanning
// [rtLeft, rtRight] in the file being filled.
func NewImStrategy(param *config.Parameter, rtLeft, rtRight float64) *ImStrategy {
	return &ImStrategy{
		LcStrategy: *NewLcStrategy(param),
		DriftTol:   param.DriftTimeAlignmentTolerance,
		RtLeft:     rtLeft,
		RtRight:    rtRight,
	}
}

func (s *ImStrategy) Center(present []*core.AlignmentChromPeakFeature) core.ChromXs {
	dts := make([]float64, len(present))
	for i, p := range present {
		dts[i] = p.ChromXsTop.Drift
	}
	c := core.NewDrift(centerOf(dts, s.CenterMethod))
	c.Mz = highest(present).Mass
	return c
}

func (s *ImStrategy) PeakWidth(present []*core.AlignmentChromPeakFeature) float64 {
	return maxWidth(present, func(x core.ChromXs) float64 { return x.Drift }, minDriftWidth)
}

func (s *ImStrategy) Peaks(spectra []core.RawSpectrum, center core.ChromXs, width float64) []core.ChromatogramPeak {
	if s.RtRight <= s.RtLeft {
		return nil
	}
	peaks := chromatogram.ExtractDrift(spectra, center.Mz, s.MzTol, s.RtLeft, s.RtRight,
		center.Drift-windowFactor*width, center.Drift+windowFactor*width)
	return chromatogram.Smooth(peaks, s.SmoothingMethod, s.SmoothingLevel)
}

func (s *ImStrategy) AxisTolerance() float64 { return s.DriftTol }

func (s *ImStrategy) AxisType() core.ChromXType { return core.ChromXTypeDrift }

func centerOf(values []float64, method config.CenterMethod) float64 {
	if method == config.CenterMedian {
		sort.Float64s(values)
		return stat.Quantile(0.5, stat.Empirical, values, nil)
	}
	return stat.Mean(values, nil)
}

// highest returns the present slot with the greatest height, first wins.
func highest(present []*core.AlignmentChromPeakFeature) *core.AlignmentChromPeakFeature {
	best := present[0]
	for _, p := range present[1:] {
		if p.PeakHeightTop > best.PeakHeightTop {
			best = p
		}
	}
	return best
}

func maxWidth(present []*core.AlignmentChromPeakFeature, axis func(core.ChromXs) float64, floor float64) float64 {
	w := floor
	for _, p := range present {
		w = math.Max(w, axis(p.ChromXsRight)-axis(p.ChromXsLeft))
	}
	return w
}
