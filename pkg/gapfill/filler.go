package gapfill

import (
	"github.com/ChrisMcGann/msalign/pkg/core"
)

// Strategy supplies the axis-specific parts of gap filling.
type Strategy interface {
	// Center returns the expected peak position, with Mz set to the m/z to extract.
	Center(present []*core.AlignmentChromPeakFeature) core.ChromXs
	PeakWidth(present []*core.AlignmentChromPeakFeature) float64
	Peaks(spectra []core.RawSpectrum, center core.ChromXs, width float64) []core.ChromatogramPeak
	AxisTolerance() float64
	AxisType() core.ChromXType
}

// Filler fills absent slots of a spot from raw spectra.
type Filler struct {
	Strategy      Strategy
	IsForceInsert bool
}

// NewFiller creates a filler for the given axis strategy.
func NewFiller(strategy Strategy, isForceInsert bool) *Filler {
	return &Filler{Strategy: strategy, IsForceInsert: isForceInsert}
}

// GapFill replaces the slot of fileID in place with the result of Fill.
func (f *Filler) GapFill(spectra []core.RawSpectrum, spot *core.AlignmentSpotProperty, fileID int) {
	spot.AlignedPeakProperties[fileID] = f.Fill(spectra, spot, fileID)
}

// Fill derives a new slot for fileID from the other files' present slots and
// the file's spectra. The slot always comes back with PeakID -2; when no peak
// is found its quantities are zeroed and its mass is -1. MasterPeakID is kept.
// The spot is not modified.
func (f *Filler) Fill(spectra []core.RawSpectrum, spot *core.AlignmentSpotProperty, fileID int) core.AlignmentChromPeakFeature {
	slot := spot.AlignedPeakProperties[fileID]
	slot.PeakID = core.PeakIDGapFilled

	var present []*core.AlignmentChromPeakFeature
	for i := range spot.AlignedPeakProperties {
		p := &spot.AlignedPeakProperties[i]
		if i != fileID && p.IsPresent() {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return f.empty(slot)
	}

	center := f.Strategy.Center(present)
	peaks := f.Strategy.Peaks(spectra, center, f.Strategy.PeakWidth(present))
	res, ok := Core(peaks, center.Value(), f.Strategy.AxisTolerance(), f.IsForceInsert)
	if !ok {
		return f.empty(slot)
	}

	slot.Mass = res.Top.Mass
	if slot.Mass <= 0 {
		slot.Mass = center.Mz
	}
	slot.ChromXsTop = res.Top.Times
	slot.ChromXsLeft = res.Left.Times
	slot.ChromXsRight = res.Right.Times
	slot.ChromScanIDTop = res.Top.ID
	slot.ChromScanIDLeft = res.Left.ID
	slot.ChromScanIDRight = res.Right.ID
	slot.PeakHeightTop = res.Top.Intensity
	slot.PeakHeightLeft = res.Left.Intensity
	slot.PeakHeightRight = res.Right.Intensity
	slot.PeakAreaAboveZero = res.AreaAboveZero
	slot.PeakAreaAboveBaseline = res.AreaAboveBaseline
	return slot
}

func (f *Filler) empty(slot core.AlignmentChromPeakFeature) core.AlignmentChromPeakFeature {
	zero := core.ChromXs{MainType: f.Strategy.AxisType()}
	slot.Mass = -1
	slot.ChromXsTop, slot.ChromXsLeft, slot.ChromXsRight = zero, zero, zero
	slot.ChromScanIDTop, slot.ChromScanIDLeft, slot.ChromScanIDRight = -1, -1, -1
	slot.PeakHeightTop, slot.PeakHeightLeft, slot.PeakHeightRight = 0, 0, 0
	slot.PeakAreaAboveZero, slot.PeakAreaAboveBaseline = 0, 0
	return slot
}
