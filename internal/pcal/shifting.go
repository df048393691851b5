package pcal

import "github.com/cwsl/swspectrometer/internal/dftpack"

// shifting implements spec.md §4.3's general-offset variant: a complex
// accumulator fed through a precomputed rotator that derotates the tone
// comb back to baseband before folding into nBins bins.
//
// spec.md describes folding rotatorLen-sized blocks in sub-block sums for
// vectorised efficiency; this implementation accumulates sample-by-sample
// (bin = running sample index mod nBins, rotator phase = running sample
// index mod rotatorLen), which is the same sum performed one term at a
// time rather than partially pre-summed, and is exact regardless of
// whether nBins divides rotatorLen.
type shifting struct {
	nBins      int
	rotatorLen int
	nTones     int
	spacingBin int
	rotator    []complex128

	acc      []complex128
	rotIndex int
	binIndex int

	finalized bool
	total     int64
	dft       *dftpack.Complex
}

func newShifting(nBins, rotatorLen, nTones, spacingBin int, rotator []complex128) *shifting {
	return &shifting{
		nBins:      nBins,
		rotatorLen: rotatorLen,
		nTones:     nTones,
		spacingBin: spacingBin,
		rotator:    rotator,
		acc:        make([]complex128, nBins),
		dft:        dftpack.NewComplex(nBins),
	}
}

func (s *shifting) NumTones() int { return s.nTones }

func (s *shifting) ExtractAndIntegrate(samples []float64) bool {
	if s.finalized {
		return false
	}
	for _, v := range samples {
		s.acc[s.binIndex] += complex(v, 0) * s.rotator[s.rotIndex]
		s.rotIndex++
		if s.rotIndex == s.rotatorLen {
			s.rotIndex = 0
		}
		s.binIndex++
		if s.binIndex == s.nBins {
			s.binIndex = 0
		}
	}
	s.total += int64(len(samples))
	return true
}

func (s *shifting) AdjustSampleOffset(offset int) {
	s.rotIndex = ((s.rotIndex+offset)%s.rotatorLen + s.rotatorLen) % s.rotatorLen
	s.binIndex = ((s.binIndex+offset)%s.nBins + s.nBins) % s.nBins
}

func (s *shifting) GetFinalPCal(out []complex128) int64 {
	s.finalized = true
	seq := make([]complex128, s.nBins)
	copy(seq, s.acc)
	coeffs := s.dft.Transform(seq, nil)
	for k := 0; k < s.nTones && k < len(out); k++ {
		bin := (k * s.spacingBin) % s.nBins
		out[k] = coeffs[bin]
	}
	return s.total
}

func (s *shifting) Clear() {
	for i := range s.acc {
		s.acc[i] = 0
	}
	s.rotIndex = 0
	s.binIndex = 0
	s.finalized = false
	s.total = 0
}
