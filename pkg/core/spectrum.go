// Package core provides the data model and validation logic shared by the
// alignment pipeline: raw spectra, chromatogram peaks, per-file detections and
// the alignment spots built from them.
package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// RawSpectrum is a single MS scan as delivered by a raw-data provider.
type RawSpectrum struct {
	Index         int // Position in the file's scan list
	ScanNumber    int
	MsLevel       int
	RetentionTime float64 // minutes
	DriftTime     float64 // milliseconds, 0 for non ion-mobility data
	Peaks         []SpectrumPeak
}

// SpectrumPeak is a single m/z, intensity pair of a raw spectrum.
type SpectrumPeak struct {
	Mz        float64
	Intensity float64
}

// ChromatogramPeak is one sample of an extracted chromatogram.
type ChromatogramPeak struct {
	ID        int // Index in the owning peak list
	Times     ChromXs
	Mass      float64
	Intensity float64
}

// ValidationError represents an error found during input validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a raw spectrum can be used for chromatogram extraction.
func (s *RawSpectrum) Validate() error {
	var errs []string

	if s.MsLevel <= 0 {
		errs = append(errs, "ms level must be positive")
	}
	if math.IsNaN(s.RetentionTime) || s.RetentionTime < 0 {
		errs = append(errs, "retention time must be non-negative")
	}
	if math.IsNaN(s.DriftTime) || s.DriftTime < 0 {
		errs = append(errs, "drift time must be non-negative")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.Mz) || math.IsInf(peak.Mz, 0) || peak.Mz <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) || peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   fmt.Sprintf("Scan %d", s.ScanNumber),
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *RawSpectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].Mz < s.Peaks[i-1].Mz {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *RawSpectrum) SortPeaks() {
	sort.Slice(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].Mz < s.Peaks[j].Mz
	})
}

// SumIntensity returns the summed intensity of peaks within mz±tol and the m/z
// of the most intense of them. Peaks must be sorted.
func (s *RawSpectrum) SumIntensity(mz, tol float64) (sum, basePeakMz float64) {
	start := sort.Search(len(s.Peaks), func(i int) bool {
		return s.Peaks[i].Mz >= mz-tol
	})
	maxInt := -1.0
	basePeakMz = mz
	for i := start; i < len(s.Peaks); i++ {
		p := s.Peaks[i]
		if p.Mz > mz+tol {
			break
		}
		sum += p.Intensity
		if p.Intensity > maxInt {
			maxInt = p.Intensity
			basePeakMz = p.Mz
		}
	}
	return sum, basePeakMz
}
