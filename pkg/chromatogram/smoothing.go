package chromatogram

import (
	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/core"
)

// Smooth returns a smoothed copy of peaks. A level of 0 or an unknown
// method returns an unmodified copy.
func Smooth(peaks []core.ChromatogramPeak, method config.SmoothingMethod, level int) []core.ChromatogramPeak {
	out := make([]core.ChromatogramPeak, len(peaks))
	copy(out, peaks)
	if level <= 0 || len(peaks) == 0 {
		return out
	}

	switch method {
	case config.SmoothingSimpleMovingAverage:
		weights := make([]float64, 2*level+1)
		for i := range weights {
			weights[i] = 1
		}
		convolve(peaks, out, weights)
	case config.SmoothingLinearWeightedMovingAverage:
		convolve(peaks, out, linearWeights(level))
	case config.SmoothingBinomialFilter:
		convolve(peaks, out, binomialWeights(level))
	case config.SmoothingSavitzkyGolayFilter:
		savitzkyGolay(peaks, out, level)
	}
	return out
}

func linearWeights(level int) []float64 {
	w := make([]float64, 2*level+1)
	for k := -level; k <= level; k++ {
		d := k
		if d < 0 {
			d = -d
		}
		w[k+level] = float64(level + 1 - d)
	}
	return w
}

func binomialWeights(level int) []float64 {
	n := 2 * level
	w := make([]float64, n+1)
	w[0] = 1
	for k := 1; k <= n; k++ {
		w[k] = w[k-1] * float64(n-k+1) / float64(k)
	}
	return w
}

// convolve applies a symmetric kernel, renormalising over the samples that
// exist near the edges.
func convolve(in, out []core.ChromatogramPeak, weights []float64) {
	half := len(weights) / 2
	for i := range in {
		sum, norm := 0.0, 0.0
		for k := -half; k <= half; k++ {
			j := i + k
			if j < 0 || j >= len(in) {
				continue
			}
			w := weights[k+half]
			sum += w * in[j].Intensity
			norm += w
		}
		if norm > 0 {
			out[i].Intensity = sum / norm
		}
	}
}

// savitzkyGolay applies the quadratic/cubic smoothing filter of half width
// level. Edge samples that lack a full window keep their raw value.
func savitzkyGolay(in, out []core.ChromatogramPeak, level int) {
	m := float64(level)
	norm := (2*m - 1) * (2*m + 1) * (2*m + 3)
	coeff := make([]float64, 2*level+1)
	for k := -level; k <= level; k++ {
		kk := float64(k * k)
		coeff[k+level] = (3*(3*m*m+3*m-1) - 15*kk) / norm
	}

	for i := level; i < len(in)-level; i++ {
		sum := 0.0
		for k := -level; k <= level; k++ {
			sum += coeff[k+level] * in[i+k].Intensity
		}
		if sum < 0 {
			sum = 0
		}
		out[i].Intensity = sum
	}
}
