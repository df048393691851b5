package pcal

import "github.com/cwsl/swspectrometer/internal/dftpack"

// implicitShift implements spec.md §4.3's offset!=0-but-bin-aligned
// variant: identical runtime cost to trivial (a real accumulator, no
// rotator), with the offset absorbed purely into which DFT bins are read
// out at finalisation.
type implicitShift struct {
	nBins      int
	nTones     int
	offsetBin  int
	spacingBin int
	acc        []float64
	index      int

	finalized bool
	total     int64
	dft       *dftpack.Complex
}

func newImplicitShift(nBins, nTones, offsetBin, spacingBin int) *implicitShift {
	return &implicitShift{
		nBins:      nBins,
		nTones:     nTones,
		offsetBin:  offsetBin,
		spacingBin: spacingBin,
		acc:        make([]float64, nBins),
		dft:        dftpack.NewComplex(nBins),
	}
}

func (e *implicitShift) NumTones() int { return e.nTones }

func (e *implicitShift) ExtractAndIntegrate(samples []float64) bool {
	if e.finalized {
		return false
	}
	pos := 0
	n := len(samples)
	for pos < n {
		room := e.nBins - e.index
		block := n - pos
		if block > room {
			block = room
		}
		for i := 0; i < block; i++ {
			e.acc[e.index+i] += samples[pos+i]
		}
		e.index = (e.index + block) % e.nBins
		pos += block
	}
	e.total += int64(n)
	return true
}

func (e *implicitShift) AdjustSampleOffset(offset int) {
	e.index = ((e.index+offset)%e.nBins + e.nBins) % e.nBins
}

func (e *implicitShift) GetFinalPCal(out []complex128) int64 {
	e.finalized = true
	seq := make([]complex128, e.nBins)
	for i, v := range e.acc {
		seq[i] = complex(v, 0)
	}
	coeffs := e.dft.Transform(seq, nil)
	for k := 0; k < e.nTones && k < len(out); k++ {
		bin := (e.offsetBin + k*e.spacingBin) % e.nBins
		out[k] = coeffs[bin]
	}
	return e.total
}

func (e *implicitShift) Clear() {
	for i := range e.acc {
		e.acc[i] = 0
	}
	e.index = 0
	e.finalized = false
	e.total = 0
}
