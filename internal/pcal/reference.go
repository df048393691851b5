package pcal

import (
	"math"
	"math/cmplx"

	"github.com/cwsl/swspectrometer/internal/dftpack"
)

// Reference is the direct-sum implementation of spec.md §4.3, used only
// by tests to cross-check the three fast extractors. It is deliberately
// the simplest possible correct algorithm: no rotator precomputation, no
// block folding, one complex multiply-accumulate per sample.
type Reference struct {
	nBins     int
	nTones    int
	spacingBin int
	offsetBin  int
	maxPeriod int64
	dphi      float64

	acc        []complex128
	sampleIdx  int64

	finalized bool
	total     int64
	dft       *dftpack.Complex
}

// NewReference builds the reference extractor for the given sampling,
// offset and spacing frequencies in Hz, producing nTones amplitudes.
func NewReference(fs, offsetHz, spacingHz float64, nTones int) *Reference {
	fsI := int64(math.Round(fs))
	offI := int64(math.Round(offsetHz))
	spI := int64(math.Round(spacingHz))
	nBins := int(fsI / gcdInt(spI, fsI))
	maxPeriod := fsI / gcdInt(offI, fsI)
	if maxPeriod == 0 {
		maxPeriod = 1
	}
	return &Reference{
		nBins:      nBins,
		nTones:     nTones,
		spacingBin: int(math.Floor(float64(nBins) * spacingHz / fs)),
		offsetBin:  int(math.Floor(float64(nBins) * offsetHz / fs)),
		maxPeriod:  maxPeriod,
		dphi:       -2 * math.Pi * offsetHz / fs,
		acc:        make([]complex128, nBins),
		dft:        dftpack.NewComplex(nBins),
	}
}

func (r *Reference) NumTones() int { return r.nTones }

func (r *Reference) ExtractAndIntegrate(samples []float64) bool {
	if r.finalized {
		return false
	}
	for _, v := range samples {
		phase := r.dphi * float64((r.sampleIdx)%r.maxPeriod)
		r.acc[int(r.sampleIdx%int64(r.nBins))] += cmplx.Exp(complex(0, phase)) * complex(v, 0)
		r.sampleIdx++
	}
	r.total += int64(len(samples))
	return true
}

func (r *Reference) AdjustSampleOffset(offset int) {
	r.sampleIdx += int64(offset)
}

func (r *Reference) GetFinalPCal(out []complex128) int64 {
	r.finalized = true
	seq := make([]complex128, r.nBins)
	copy(seq, r.acc)
	coeffs := r.dft.Transform(seq, nil)
	for k := 0; k < r.nTones && k < len(out); k++ {
		bin := (r.offsetBin + k*r.spacingBin) % r.nBins
		out[k] = coeffs[bin]
	}
	return r.total
}

func (r *Reference) Clear() {
	for i := range r.acc {
		r.acc[i] = 0
	}
	r.sampleIdx = 0
	r.finalized = false
	r.total = 0
}
