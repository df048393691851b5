// Package dftpack is the thin wrapper around the "library providing a
// packed real-to-complex DFT" that spec.md §1 names as an out-of-scope
// external collaborator (the actual transform implementation is not part
// of the hard problem this repository solves). It is backed by
// gonum.org/v1/gonum/dsp/fourier, grounded in the teacher's own use of
// fourier.NewFFT/Coefficients for power-spectrum analysis
// (audio_extensions/morse/spectrum_analyzer.go).
package dftpack

import "gonum.org/v1/gonum/dsp/fourier"

// Real wraps a real-to-complex forward DFT of a fixed length n.
//
// gonum's fourier.FFT.Coefficients returns n/2+1 unnormalised complex
// coefficients with Im(coeffs[0]) == 0 and Im(coeffs[n/2]) == 0: DC and
// Nyquist are real-valued and land in their own bins rather than being
// packed into bin 0's imaginary part the way an in-place FFTW/IPP real
// transform would. Worker (spec.md §4.4) special-cases DC and Nyquist by
// reading Real(coeffs[0]) and Real(coeffs[n/2]) directly instead of
// unpacking bin 0 — functionally identical to spec.md's packed-layout
// description, adapted to the library's native layout.
type Real struct {
	fft *fourier.FFT
	n   int
}

// NewReal builds a Real transform for length n (must match fft_points).
func NewReal(n int) *Real {
	return &Real{fft: fourier.NewFFT(n), n: n}
}

// SSBPoints returns n/2 + 1, the single-sideband point count (spec.md
// glossary "SSB").
func (r *Real) SSBPoints() int { return r.n/2 + 1 }

// Transform computes the forward DFT of samples (length n) into dst
// (length SSBPoints(), reused/grown as gonum's Coefficients does).
func (r *Real) Transform(samples []float64, dst []complex128) []complex128 {
	return r.fft.Coefficients(dst, samples)
}

// Complex wraps a complex-to-complex forward DFT of a fixed length n,
// used by internal/pcal to finalise tone accumulators.
type Complex struct {
	fft *fourier.CmplxFFT
	n   int
}

// NewComplex builds a Complex transform for length n.
func NewComplex(n int) *Complex {
	return &Complex{fft: fourier.NewCmplxFFT(n), n: n}
}

// Len returns n.
func (c *Complex) Len() int { return c.n }

// Transform computes the forward DFT of seq (length n) into dst.
func (c *Complex) Transform(seq []complex128, dst []complex128) []complex128 {
	return c.fft.Coefficients(dst, seq)
}
