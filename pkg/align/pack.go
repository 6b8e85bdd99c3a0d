package align

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// SetRepresentativeProperties derives the aggregate values of a gap-filled
// spot from its slots. The representative file is the present slot with the
// highest peak, first wins. Only charge and adduct are taken over from its
// peak character; links are left to refinement.
func SetRepresentativeProperties(s *core.AlignmentSpotProperty) {
	peaks := s.AlignedPeakProperties
	if len(peaks) == 0 {
		return
	}

	heights := make([]float64, len(peaks))
	var masses, times []float64
	rep := -1
	for i := range peaks {
		p := &peaks[i]
		heights[i] = p.PeakHeightTop
		if p.Mass <= 0 { // gap filling found nothing
			continue
		}
		masses = append(masses, p.Mass)
		times = append(times, p.ChromXsTop.Value())
		if p.IsPresent() && (rep < 0 || p.PeakHeightTop > peaks[rep].PeakHeightTop) {
			rep = i
		}
	}
	s.HeightAverage = stat.Mean(heights, nil)
	s.HeightMin = floats.Min(heights)
	s.HeightMax = floats.Max(heights)
	if rep < 0 {
		return
	}

	r := &peaks[rep]
	s.RepresentativeFileID = r.FileID
	s.MassCenter = stat.Mean(masses, nil)
	s.TimesCenter = r.ChromXsTop.WithValue(stat.Mean(times, nil))
	s.PeakCharacter.Charge = r.PeakCharacter.Charge
	s.PeakCharacter.AdductName = r.PeakCharacter.AdductName

	if !s.IsUnknown() || s.IsManuallyModifiedForAnnotation {
		return
	}
	s.MspID, s.MspMatch = r.MspID, r.MspMatch
	s.TextDbID, s.TextDbMatch = r.TextDbID, r.TextDbMatch
	switch {
	case s.MspID >= 0 && s.MspMatch != nil:
		s.Name = s.MspMatch.Name
	case s.TextDbID >= 0 && s.TextDbMatch != nil:
		s.Name = s.TextDbMatch.Name
	}
}

// SetRelativeAmplitudes scales the HeightMax of every spot onto [0, 1] on a
// log2 scale spanning the smallest and largest positive HeightMax.
func SetRelativeAmplitudes(spots []*core.AlignmentSpotProperty) {
	var heights []float64
	for _, s := range spots {
		if s.HeightMax > 0 {
			heights = append(heights, s.HeightMax)
		}
	}
	lo, hi := 0.0, 0.0
	if len(heights) > 0 {
		lo, hi = floats.Min(heights), floats.Max(heights)
	}
	for _, s := range spots {
		s.RelativeAmplitudeValue = RelativeAmplitude(s.HeightMax, lo, hi)
	}
}

// RelativeAmplitude returns the log2 position of h between lo and hi, clamped
// to [0, 1]. Non-positive heights and an empty range give 0.
func RelativeAmplitude(h, lo, hi float64) float64 {
	if h <= 0 || lo <= 0 || hi <= lo {
		return 0
	}
	v := (math.Log2(h) - math.Log2(lo)) / (math.Log2(hi) - math.Log2(lo))
	return math.Min(math.Max(v, 0), 1)
}
