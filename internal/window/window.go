// Package window precomputes the DFT window functions spec.md §4.4 names.
// Generalised from the single Hann window the teacher's
// audio_extensions/morse/spectrum_analyzer.go hard-codes for its CW
// spectrum analyzer into the full set spec.md requires.
package window

import (
	"fmt"
	"math"

	"github.com/cwsl/swspectrometer/internal/config"
)

// Generate returns a precomputed window of length n for the given type.
// It is computed once at worker construction time (spec.md §4.4
// "Windowing ... precomputed once at worker init"); no per-iteration
// allocation happens in the hot loop.
func Generate(t config.WindowType, n int) ([]float64, error) {
	w := make([]float64, n)
	switch t {
	case config.WindowNone:
		for i := range w {
			w[i] = 1.0
		}
	case config.WindowCosine:
		for i := range w {
			w[i] = math.Sin(math.Pi * float64(i) / float64(n-1))
		}
	case config.WindowCosine2:
		for i := range w {
			s := math.Sin(math.Pi * float64(i) / float64(n-1))
			w[i] = s * s
		}
	case config.WindowHamming:
		for i := range w {
			w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		}
	case config.WindowHann:
		for i := range w {
			w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
		}
	case config.WindowBlackman:
		for i := range w {
			x := 2 * math.Pi * float64(i) / float64(n-1)
			w[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		}
	default:
		return nil, fmt.Errorf("window: unknown type %v", t)
	}
	return w, nil
}

// Apply multiplies samples by w in place, as the Worker inner loop does
// ("windowfct *= unpacked" in spec.md §4.4).
func Apply(samples, w []float64) {
	for i := range samples {
		samples[i] *= w[i]
	}
}

// Sum returns the sum of the window's coefficients, the windowsum term of
// the DC round-trip invariant of spec.md §8 ("len^2 * windowsum^2" for a
// rectangular window). No test in this repository calls it.
func Sum(w []float64) float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}
