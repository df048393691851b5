package pcal

import "github.com/cwsl/swspectrometer/internal/dftpack"

// trivial implements the offset=0 variant of spec.md §4.3: a real
// accumulator of length nBins fed modulo nBins, finalised by a single
// complex-to-complex DFT and reading off the first nTones bins.
//
// spec.md describes a double-sized accumulator to absorb the modular wrap
// with one bulk vector add; this implementation indexes modulo nBins
// directly instead, which produces the identical accumulated values
// without needing the wrap-add step at finalisation.
type trivial struct {
	nBins  int
	nTones int
	acc    []float64
	index  int

	finalized bool
	total     int64
	dft       *dftpack.Complex
}

func newTrivial(nBins, nTones int) *trivial {
	return &trivial{
		nBins:  nBins,
		nTones: nTones,
		acc:    make([]float64, nBins),
		dft:    dftpack.NewComplex(nBins),
	}
}

func (t *trivial) NumTones() int { return t.nTones }

func (t *trivial) ExtractAndIntegrate(samples []float64) bool {
	if t.finalized {
		return false
	}
	pos := 0
	n := len(samples)
	for pos < n {
		room := t.nBins - t.index
		block := n - pos
		if block > room {
			block = room
		}
		for i := 0; i < block; i++ {
			t.acc[t.index+i] += samples[pos+i]
		}
		t.index = (t.index + block) % t.nBins
		pos += block
	}
	t.total += int64(n)
	return true
}

func (t *trivial) AdjustSampleOffset(offset int) {
	t.index = ((t.index+offset)%t.nBins + t.nBins) % t.nBins
}

func (t *trivial) GetFinalPCal(out []complex128) int64 {
	t.finalized = true
	seq := make([]complex128, t.nBins)
	for i, v := range t.acc {
		seq[i] = complex(v, 0)
	}
	coeffs := t.dft.Transform(seq, nil)
	for k := 0; k < t.nTones && k < len(out); k++ {
		out[k] = coeffs[k]
	}
	return t.total
}

func (t *trivial) Clear() {
	for i := range t.acc {
		t.acc[i] = 0
	}
	t.index = 0
	t.finalized = false
	t.total = 0
}
