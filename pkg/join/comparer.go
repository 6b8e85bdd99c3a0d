package join

import (
	"math"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// Comparer decides whether a detection may belong to a master peak and how
// well it matches.
type Comparer interface {
	Equals(master, target *core.ChromatogramPeakFeature) bool
	GetSimilarity(master, target *core.ChromatogramPeakFeature) float64
}

// LcComparer matches peaks on m/z and retention time.
type LcComparer struct {
	MzTol float64
	RtTol float64
}

// Equals reports whether target lies within both tolerances of master.
func (c LcComparer) Equals(master, target *core.ChromatogramPeakFeature) bool {
	return math.Abs(master.Mass-target.Mass) <= c.MzTol &&
		math.Abs(master.ChromXsTop.RT-target.ChromXsTop.RT) <= c.RtTol
}

// GetSimilarity sums Gaussian similarities on both axes; 2 is a perfect match.
func (c LcComparer) GetSimilarity(master, target *core.ChromatogramPeakFeature) float64 {
	return gaussian(master.Mass-target.Mass, c.MzTol) +
		gaussian(master.ChromXsTop.RT-target.ChromXsTop.RT, c.RtTol)
}

// ImComparer matches drift-time children on m/z and drift time.
type ImComparer struct {
	MzTol    float64
	DriftTol float64
}

func (c ImComparer) Equals(master, target *core.ChromatogramPeakFeature) bool {
	return math.Abs(master.Mass-target.Mass) <= c.MzTol &&
		math.Abs(master.ChromXsTop.Drift-target.ChromXsTop.Drift) <= c.DriftTol
}

func (c ImComparer) GetSimilarity(master, target *core.ChromatogramPeakFeature) float64 {
	return gaussian(master.Mass-target.Mass, c.MzTol) +
		gaussian(master.ChromXsTop.Drift-target.ChromXsTop.Drift, c.DriftTol)
}

func gaussian(diff, tol float64) float64 {
	return math.Exp(-0.5 * (diff / tol) * (diff / tol))
}
