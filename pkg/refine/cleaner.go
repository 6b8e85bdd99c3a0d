package refine

import (
	"cmp"
	"math"
	"slices"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// maxCleanRtTol caps the RT tolerance used to merge near-duplicate spots.
const maxCleanRtTol = 0.1

// Cleaner removes near-duplicate spots.
type Cleaner interface {
	Clean(spots []*core.AlignmentSpotProperty) []*core.AlignmentSpotProperty
}

// LcCleaner merges spots that share m/z and retention time. Spots identified
// against the MSP library are visited first by score, then text-database
// hits, then the rest by average height; a spot is dropped if an already kept
// spot lies within the m/z tolerance and half the RT tolerance.
type LcCleaner struct {
	MzTol float64
	RtTol float64
}

func (c *LcCleaner) Clean(spots []*core.AlignmentSpotProperty) []*core.AlignmentSpotProperty {
	return clean(spots, c.MzTol, math.Min(c.RtTol, maxCleanRtTol)*0.5, func(x core.ChromXs) float64 { return x.RT })
}

// ImCleaner cleans parents like LcCleaner, then the drift children of each
// surviving parent on the drift axis.
type ImCleaner struct {
	LcCleaner
	DriftTol float64
}

func (c *ImCleaner) Clean(spots []*core.AlignmentSpotProperty) []*core.AlignmentSpotProperty {
	kept := c.LcCleaner.Clean(spots)
	for _, s := range kept {
		s.AlignmentDriftSpotFeatures = clean(s.AlignmentDriftSpotFeatures, c.MzTol, c.DriftTol*0.5,
			func(x core.ChromXs) float64 { return x.Drift })
	}
	return kept
}

// clean returns the surviving spots sorted by MassCenter.
func clean(spots []*core.AlignmentSpotProperty, mzTol, axisTol float64, axis func(core.ChromXs) float64) []*core.AlignmentSpotProperty {
	var msp, text, rest []*core.AlignmentSpotProperty
	for _, s := range spots {
		switch {
		case s.MspID >= 0:
			msp = append(msp, s)
		case s.TextDbID >= 0:
			text = append(text, s)
		default:
			rest = append(rest, s)
		}
	}
	slices.SortStableFunc(msp, func(a, b *core.AlignmentSpotProperty) int {
		return cmp.Compare(scoreOf(b.MspMatch), scoreOf(a.MspMatch))
	})
	slices.SortStableFunc(text, func(a, b *core.AlignmentSpotProperty) int {
		return cmp.Compare(scoreOf(b.TextDbMatch), scoreOf(a.TextDbMatch))
	})
	slices.SortStableFunc(rest, func(a, b *core.AlignmentSpotProperty) int {
		return cmp.Compare(b.HeightAverage, a.HeightAverage)
	})

	byMass := func(a *core.AlignmentSpotProperty, mz float64) int { return cmp.Compare(a.MassCenter, mz) }

	var kept []*core.AlignmentSpotProperty
	for _, group := range [][]*core.AlignmentSpotProperty{msp, text, rest} {
		for _, s := range group {
			tol := core.ScaledMassTolerance(s.MassCenter, mzTol)
			lo, _ := slices.BinarySearchFunc(kept, s.MassCenter-tol, byMass)
			duplicate := false
			for _, k := range kept[lo:] {
				if k.MassCenter > s.MassCenter+tol {
					break
				}
				if math.Abs(axis(k.TimesCenter)-axis(s.TimesCenter)) <= axisTol {
					duplicate = true
					break
				}
			}
			if duplicate {
				continue
			}
			pos, _ := slices.BinarySearchFunc(kept, s.MassCenter, byMass)
			for pos < len(kept) && kept[pos].MassCenter == s.MassCenter {
				pos++
			}
			kept = slices.Insert(kept, pos, s)
		}
	}
	return kept
}
