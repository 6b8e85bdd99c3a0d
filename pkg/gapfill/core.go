// Package gapfill recovers peaks that peak picking missed in some files by
// searching the raw chromatogram around the position observed in the others.
package gapfill

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

const (
	forceInsertRadius = 5 // Max samples walked each side of a forced peak
	minSideWidth      = 2 // Min samples each side of a regular peak
)

// Result is a peak found on a chromatogram. Left, Top and Right keep the
// sample IDs of the peak list they came from.
type Result struct {
	Left, Top, Right  core.ChromatogramPeak
	AreaAboveZero     float64
	AreaAboveBaseline float64
}

// Core searches peaklist for the peak closest to center within axTol. When no
// local maximum qualifies and isForceInsert is set, a peak is built around
// the sample closest to center. The boolean is false when nothing was found.
func Core(peaklist []core.ChromatogramPeak, center, axTol float64, isForceInsert bool) (Result, bool) {
	n := len(peaklist)
	if n == 0 {
		return Result{}, false
	}

	start := sort.Search(n, func(i int) bool {
		return peaklist[i].Times.Value() >= center-axTol
	})

	var candidates []int
	closest, minDiff := -1, math.MaxFloat64
	for i := start; i < n; i++ {
		v := peaklist[i].Times.Value()
		if v > center+axTol {
			break
		}
		if d := math.Abs(v - center); d < minDiff {
			closest, minDiff = i, d
		}
		if isLocalMax(peaklist, i) {
			candidates = append(candidates, i)
		}
	}
	if closest < 0 {
		closest = nearest(peaklist, center, start)
	}

	var left, top, right int
	if len(candidates) == 0 {
		if !isForceInsert {
			return Result{}, false
		}
		top = closest
		left, right = top, top
		for j := top - 1; j >= 0 && top-j <= forceInsertRadius; j-- {
			if peaklist[j].Intensity > peaklist[j+1].Intensity {
				break
			}
			left = j
		}
		for j := top + 1; j < n && j-top <= forceInsertRadius; j++ {
			if peaklist[j].Intensity > peaklist[j-1].Intensity {
				break
			}
			right = j
		}
	} else {
		top = candidates[0]
		for _, c := range candidates[1:] {
			if math.Abs(peaklist[c].Times.Value()-center) < math.Abs(peaklist[top].Times.Value()-center) {
				top = c
			}
		}

		// The first minSideWidth samples each side are taken as they are, so
		// a flat top or a bump beside the apex does not end the walk.
		// isLocalMax keeps both margins inside the list.
		left, right = top-minSideWidth, top+minSideWidth
		for left > 0 && peaklist[left-1].Intensity < peaklist[left].Intensity {
			left--
		}
		for right < n-1 && peaklist[right+1].Intensity < peaklist[right].Intensity {
			right++
		}

		for j := left; j <= right; j++ {
			if peaklist[j].Intensity > peaklist[top].Intensity {
				top = j
			}
		}
	}

	zero, base := area(peaklist, left, right)
	return Result{
		Left:              peaklist[left],
		Top:               peaklist[top],
		Right:             peaklist[right],
		AreaAboveZero:     zero,
		AreaAboveBaseline: base,
	}, true
}

// isLocalMax tests sample i against two neighbors on each side. The sample
// must be the highest of the five and strictly above one direct neighbor, so
// either edge of a flat top qualifies and a shoulder does not hide the apex.
func isLocalMax(p []core.ChromatogramPeak, i int) bool {
	if i < 2 || i > len(p)-3 {
		return false
	}
	a, b, c, d, e := p[i-2].Intensity, p[i-1].Intensity, p[i].Intensity, p[i+1].Intensity, p[i+2].Intensity
	if c < a || c < b || c < d || c < e {
		return false
	}
	return b < c || d < c
}

// nearest returns the sample closest to center, given the insertion point i.
func nearest(p []core.ChromatogramPeak, center float64, i int) int {
	if i >= len(p) {
		return len(p) - 1
	}
	if i > 0 && center-p[i-1].Times.Value() < p[i].Times.Value()-center {
		return i - 1
	}
	return i
}

// area integrates [left, right] with the trapezoidal rule, above zero and
// above the straight line joining the two edges.
func area(p []core.ChromatogramPeak, left, right int) (aboveZero, aboveBaseline float64) {
	for i := left; i < right; i++ {
		aboveZero += (p[i].Intensity + p[i+1].Intensity) / 2 * (p[i+1].Times.Value() - p[i].Times.Value())
	}
	baseline := (p[left].Intensity + p[right].Intensity) / 2 * (p[right].Times.Value() - p[left].Times.Value())
	return aboveZero, math.Max(0, aboveZero-baseline)
}
