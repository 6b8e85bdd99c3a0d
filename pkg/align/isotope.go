package align

import (
	"cmp"
	"math"
	"slices"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// TrackIsotopes groups spots into labeled isotopologue series. Visiting spots
// by increasing m/z, every spot not yet claimed becomes a parent and claims,
// for k = 1..maxCount, the unclaimed spot nearest to
// mass + k*C13C12Diff/charge within mzTol and rtTol. A series stops at the
// first missing step. Parents point to themselves with weight 0.
func TrackIsotopes(spots []*core.AlignmentSpotProperty, mzTol, rtTol float64, maxCount int) {
	byMass := slices.Clone(spots)
	slices.SortStableFunc(byMass, func(a, b *core.AlignmentSpotProperty) int {
		return cmp.Compare(a.MassCenter, b.MassCenter)
	})
	for _, s := range byMass {
		s.IsotopeTrackingParentID = -1
		s.IsotopeTrackingWeightNumber = 0
	}

	for i, p := range byMass {
		if p.IsotopeTrackingParentID >= 0 {
			continue
		}
		p.IsotopeTrackingParentID = p.AlignmentID

		charge := float64(max(p.PeakCharacter.Charge, 1))
		for k := 1; k <= maxCount; k++ {
			target := p.MassCenter + float64(k)*core.C13C12Diff/charge
			q := nearestUnclaimed(byMass[i+1:], target, p.TimesCenter.RT, mzTol, rtTol)
			if q == nil {
				break
			}
			q.IsotopeTrackingParentID = p.AlignmentID
			q.IsotopeTrackingWeightNumber = k
		}
	}
}

func nearestUnclaimed(byMass []*core.AlignmentSpotProperty, target, rt, mzTol, rtTol float64) *core.AlignmentSpotProperty {
	start, _ := slices.BinarySearchFunc(byMass, target-mzTol, func(s *core.AlignmentSpotProperty, mz float64) int {
		return cmp.Compare(s.MassCenter, mz)
	})

	var best *core.AlignmentSpotProperty
	bestDiff := math.Inf(1)
	for _, q := range byMass[start:] {
		if q.MassCenter > target+mzTol {
			break
		}
		if q.IsotopeTrackingParentID >= 0 || math.Abs(q.TimesCenter.RT-rt) > rtTol {
			continue
		}
		if d := math.Abs(q.MassCenter - target); d < bestDiff {
			best, bestDiff = q, d
		}
	}
	return best
}
