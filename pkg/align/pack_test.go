package align

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/core"
)

func TestRelativeAmplitude(t *testing.T) {
	tests := []struct {
		name      string
		h, lo, hi float64
		want      float64
	}{
		{"minimum", 10, 10, 1000, 0},
		{"maximum", 1000, 10, 1000, 1},
		{"log midpoint", 100, 10, 1000, 0.5},
		{"below range clamps", 1, 10, 1000, 0},
		{"above range clamps", 1e6, 10, 1000, 1},
		{"zero height", 0, 10, 1000, 0},
		{"negative height", -5, 10, 1000, 0},
		{"degenerate range", 10, 10, 10, 0},
		{"empty range", 10, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RelativeAmplitude(tt.h, tt.lo, tt.hi), 1e-12)
		})
	}
}

func TestSetRelativeAmplitudes(t *testing.T) {
	spots := []*core.AlignmentSpotProperty{
		{HeightMax: 4}, {HeightMax: 16}, {HeightMax: 0}, {HeightMax: 64},
	}
	SetRelativeAmplitudes(spots)
	assert.Equal(t, 0.0, spots[0].RelativeAmplitudeValue)
	assert.InDelta(t, 0.5, spots[1].RelativeAmplitudeValue, 1e-12)
	assert.Equal(t, 0.0, spots[2].RelativeAmplitudeValue)
	assert.Equal(t, 1.0, spots[3].RelativeAmplitudeValue)

	single := []*core.AlignmentSpotProperty{{HeightMax: 7}}
	SetRelativeAmplitudes(single)
	assert.Equal(t, 0.0, single[0].RelativeAmplitudeValue)
}

func TestSetRepresentativeProperties(t *testing.T) {
	files := sampleFiles(3)
	s := core.NewAlignmentSpot(0, files)

	p0 := &s.AlignedPeakProperties[0]
	p0.PeakID, p0.MasterPeakID = 1, 0
	p0.Mass, p0.ChromXsTop, p0.PeakHeightTop = 300.0, core.NewRT(3.0), 200
	p0.PeakCharacter.AdductName = "[M+Na]+"

	p1 := &s.AlignedPeakProperties[1]
	p1.PeakID, p1.MasterPeakID = 4, 0
	p1.Mass, p1.ChromXsTop, p1.PeakHeightTop = 300.002, core.NewRT(3.02), 800
	p1.PeakCharacter.AdductName = "[M+2H]2+"
	p1.PeakCharacter.Charge = 2
	p1.PeakCharacter.PeakLinks = []core.LinkedPeakFeature{{LinkedPeakID: 9, Character: core.LinkAdduct}}
	p1.MspID = 12
	p1.MspMatch = &core.MatchResult{Name: "glucose", TotalScore: 0.9}

	p2 := &s.AlignedPeakProperties[2] // failed gap fill
	p2.PeakID, p2.Mass = core.PeakIDGapFilled, -1

	SetRepresentativeProperties(s)

	assert.Equal(t, 1, s.RepresentativeFileID)
	assert.InDelta(t, 300.001, s.MassCenter, 1e-9)
	assert.InDelta(t, 3.01, s.TimesCenter.RT, 1e-9)
	assert.InDelta(t, (200.0+800.0)/3, s.HeightAverage, 1e-9)
	assert.Equal(t, 0.0, s.HeightMin)
	assert.Equal(t, 800.0, s.HeightMax)
	assert.Equal(t, 2, s.PeakCharacter.Charge)
	assert.Equal(t, "[M+2H]2+", s.PeakCharacter.AdductName)
	assert.Empty(t, s.PeakCharacter.PeakLinks, "links are not copied")
	assert.Equal(t, 12, s.MspID)
	assert.Equal(t, "glucose", s.Name)
}

func TestSetRepresentativePropertiesFirstMaxWins(t *testing.T) {
	s := core.NewAlignmentSpot(0, sampleFiles(2))
	for i := range s.AlignedPeakProperties {
		p := &s.AlignedPeakProperties[i]
		p.PeakID, p.MasterPeakID, p.Mass, p.PeakHeightTop = i, 0, 100, 50
	}
	SetRepresentativeProperties(s)
	assert.Equal(t, 0, s.RepresentativeFileID)
}

func TestTrackIsotopes(t *testing.T) {
	mk := func(id int, mz, rt float64, charge int) *core.AlignmentSpotProperty {
		s := core.NewAlignmentSpot(id, nil)
		s.AlignmentID = id
		s.MassCenter = mz
		s.TimesCenter = core.NewRT(rt)
		s.PeakCharacter.Charge = charge
		return s
	}
	base := mk(0, 200.0, 5.0, 1)
	m1 := mk(1, 200.0+core.C13C12Diff, 5.01, 1)
	m2 := mk(2, 200.0+2*core.C13C12Diff+0.004, 5.0, 1)
	m4 := mk(3, 200.0+4*core.C13C12Diff, 5.0, 1) // beyond the gap at k=3
	farRT := mk(4, 200.0+3*core.C13C12Diff, 7.0, 1)
	dbl := mk(5, 500.0, 2.0, 2)
	dblIso := mk(6, 500.0+core.C13C12Diff/2, 2.0, 1)

	spots := []*core.AlignmentSpotProperty{m4, dblIso, m2, base, farRT, dbl, m1}
	TrackIsotopes(spots, 0.015, 0.1, 5)

	assert.Equal(t, 0, base.IsotopeTrackingParentID)
	assert.Equal(t, 0, base.IsotopeTrackingWeightNumber)
	assert.Equal(t, 0, m1.IsotopeTrackingParentID)
	assert.Equal(t, 1, m1.IsotopeTrackingWeightNumber)
	assert.Equal(t, 0, m2.IsotopeTrackingParentID)
	assert.Equal(t, 2, m2.IsotopeTrackingWeightNumber)
	assert.Equal(t, 3, m4.IsotopeTrackingParentID, "series stops at the first missing step")
	assert.Equal(t, 4, farRT.IsotopeTrackingParentID)

	assert.Equal(t, 5, dbl.IsotopeTrackingParentID)
	assert.Equal(t, 5, dblIso.IsotopeTrackingParentID, "spacing divides by the parent's charge")
	assert.Equal(t, 1, dblIso.IsotopeTrackingWeightNumber)
}

func TestPack(t *testing.T) {
	param := config.DefaultParameter()
	param.IonMode = "Negative"
	spots := []*core.AlignmentSpotProperty{{HeightMax: 10}, {HeightMax: 100}}

	c := Pack(spots, sampleFiles(1), param)
	require.NotEmpty(t, c.RunID)
	assert.Equal(t, core.IonModeNegative, c.IonMode)
	assert.Equal(t, 2, c.TotalAlignmentSpotCount)
	assert.Equal(t, 1.0, spots[1].RelativeAmplitudeValue)
	assert.False(t, math.IsNaN(spots[0].RelativeAmplitudeValue))
}
