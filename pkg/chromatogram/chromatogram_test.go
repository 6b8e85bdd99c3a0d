package chromatogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/core"
)

func scan(rt, dt float64, peaks ...core.SpectrumPeak) core.RawSpectrum {
	return core.RawSpectrum{MsLevel: 1, RetentionTime: rt, DriftTime: dt, Peaks: peaks}
}

func TestExtractRT(t *testing.T) {
	spectra := []core.RawSpectrum{
		scan(0.9, 0, core.SpectrumPeak{Mz: 200.0, Intensity: 5}),
		scan(1.0, 0, core.SpectrumPeak{Mz: 200.001, Intensity: 10}, core.SpectrumPeak{Mz: 300, Intensity: 99}),
		scan(1.1, 10, core.SpectrumPeak{Mz: 200.002, Intensity: 20}),
		scan(1.1, 11, core.SpectrumPeak{Mz: 199.999, Intensity: 30}),
		{MsLevel: 2, RetentionTime: 1.15, Peaks: []core.SpectrumPeak{{Mz: 200, Intensity: 1000}}},
		scan(1.2, 0, core.SpectrumPeak{Mz: 200.5, Intensity: 40}),
		scan(1.5, 0, core.SpectrumPeak{Mz: 200.0, Intensity: 50}),
	}

	peaks := ExtractRT(spectra, 200.0, 0.01, 1.0, 1.2)
	require.Len(t, peaks, 3)

	assert.Equal(t, 10.0, peaks[0].Intensity)
	assert.Equal(t, 50.0, peaks[1].Intensity, "drift frames at one RT accumulate")
	assert.Equal(t, 199.999, peaks[1].Mass, "mass follows the most intense contribution")
	assert.Equal(t, 0.0, peaks[2].Intensity, "out-of-tolerance m/z contributes nothing")
	for i, p := range peaks {
		assert.Equal(t, i, p.ID)
		assert.Equal(t, core.ChromXTypeRT, p.Times.MainType)
	}
}

func TestExtractDrift(t *testing.T) {
	spectra := []core.RawSpectrum{
		scan(1.0, 20.0, core.SpectrumPeak{Mz: 400.0, Intensity: 10}),
		scan(1.0, 20.5, core.SpectrumPeak{Mz: 400.0, Intensity: 30}),
		scan(1.1, 20.0, core.SpectrumPeak{Mz: 400.0, Intensity: 5}),
		scan(1.1, 19.5, core.SpectrumPeak{Mz: 400.0, Intensity: 2}),
		scan(2.0, 20.0, core.SpectrumPeak{Mz: 400.0, Intensity: 1000}),
	}

	peaks := ExtractDrift(spectra, 400.0, 0.01, 0.9, 1.2, 19.0, 21.0)
	require.Len(t, peaks, 3)
	assert.Equal(t, []float64{19.5, 20.0, 20.5}, []float64{peaks[0].Times.Value(), peaks[1].Times.Value(), peaks[2].Times.Value()})
	assert.Equal(t, 15.0, peaks[1].Intensity)
	assert.Equal(t, core.ChromXTypeDrift, peaks[1].Times.MainType)
}

func TestWindow(t *testing.T) {
	var peaks []core.ChromatogramPeak
	for i := 0; i < 10; i++ {
		peaks = append(peaks, core.ChromatogramPeak{ID: i, Times: core.NewRT(float64(i)), Intensity: float64(i)})
	}
	w := Window(peaks, 2.5, 6)
	require.Len(t, w, 4)
	assert.Equal(t, 0, w[0].ID)
	assert.Equal(t, 3.0, w[0].Times.Value())
	assert.Equal(t, 6.0, w[3].Times.Value())
}

func TestSmoothPreservesConstant(t *testing.T) {
	var peaks []core.ChromatogramPeak
	for i := 0; i < 15; i++ {
		peaks = append(peaks, core.ChromatogramPeak{ID: i, Times: core.NewRT(float64(i)), Intensity: 100})
	}

	methods := []config.SmoothingMethod{
		config.SmoothingSimpleMovingAverage,
		config.SmoothingLinearWeightedMovingAverage,
		config.SmoothingBinomialFilter,
		config.SmoothingSavitzkyGolayFilter,
	}
	for _, m := range methods {
		t.Run(string(m), func(t *testing.T) {
			out := Smooth(peaks, m, 3)
			require.Len(t, out, len(peaks))
			for i, p := range out {
				assert.InDelta(t, 100.0, p.Intensity, 1e-9, "sample %d", i)
			}
		})
	}
}

func TestSmoothDoesNotMutateInput(t *testing.T) {
	peaks := []core.ChromatogramPeak{{Intensity: 0}, {Intensity: 100}, {Intensity: 0}}
	out := Smooth(peaks, config.SmoothingLinearWeightedMovingAverage, 1)

	assert.Equal(t, 100.0, peaks[1].Intensity)
	// Weights 1,2,1 over 0,100,0
	assert.InDelta(t, 50.0, out[1].Intensity, 1e-9)
	// Edge renormalised over weights 2,1
	assert.InDelta(t, 100.0/3, out[0].Intensity, 1e-9)
}

func TestSavitzkyGolayKeepsQuadratic(t *testing.T) {
	var peaks []core.ChromatogramPeak
	for i := 0; i < 11; i++ {
		x := float64(i - 5)
		peaks = append(peaks, core.ChromatogramPeak{ID: i, Intensity: 200 - x*x})
	}
	out := Smooth(peaks, config.SmoothingSavitzkyGolayFilter, 2)
	for i := 2; i < 9; i++ {
		assert.InDelta(t, peaks[i].Intensity, out[i].Intensity, 1e-9)
	}
}

func TestBinomialWeights(t *testing.T) {
	w := binomialWeights(2)
	want := []float64{1, 4, 6, 4, 1}
	for i := range want {
		if math.Abs(w[i]-want[i]) > 1e-12 {
			t.Errorf("weight %d = %f, want %f", i, w[i], want[i])
		}
	}
}
