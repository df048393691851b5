// Package pcal implements the three phase-calibration tone extractors of
// spec.md §4.3 (Trivial, ImplicitShift, Shifting) plus a direct-sum
// Reference implementation used only by tests to cross-check them.
package pcal

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwsl/swspectrometer/internal/config"
	"github.com/cwsl/swspectrometer/internal/dftpack"
)

// Extractor is the shared contract all four implementations satisfy
// (spec.md §4.3).
type Extractor interface {
	// ExtractAndIntegrate accumulates samples. Returns false if this
	// extractor has already been finalised by GetFinalPCal.
	ExtractAndIntegrate(samples []float64) bool
	// AdjustSampleOffset resets the internal rotator/bin index to account
	// for a gap of offset samples before the next ExtractAndIntegrate.
	AdjustSampleOffset(offset int)
	// GetFinalPCal finalises (idempotently) and copies NumTones complex
	// amplitudes into out, returning the total sample count integrated
	// since the last Clear.
	GetFinalPCal(out []complex128) int64
	// Clear resets all accumulators and the finalised flag.
	Clear()
	// NumTones reports the fixed tone count this extractor produces.
	NumTones() int
}

func gcdInt(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// New implements the factory selection of spec.md §4.3: Trivial when
// offset is zero, ImplicitShift when the spacing's bin-period divides the
// offset's bin-period (nO % nP == 0), Shifting otherwise.
func New(s *config.Settings) (Extractor, error) {
	if s.PCalHarmonicsHz <= 0 {
		return nil, fmt.Errorf("pcal: PCalHarmonicsHz must be > 0")
	}
	nTones := s.PCalToneBins
	if nTones < 1 {
		return nil, fmt.Errorf("pcal: PCalToneBins must be >= 1")
	}
	fs := s.SamplingFreq
	fsI := int64(math.Round(fs))
	spI := int64(math.Round(s.PCalHarmonicsHz))
	nP := int(fsI / gcdInt(spI, fsI))

	if s.PCalOffsetHz == 0 {
		return newTrivial(nP, nTones), nil
	}

	offI := int64(math.Round(s.PCalOffsetHz))
	nO := int(fsI / gcdInt(offI, fsI))
	if nP != 0 && nO%nP == 0 {
		offsetBin := int(math.Floor(float64(nO) * s.PCalOffsetHz / fs))
		spacingBin := int(math.Floor(float64(nO) * s.PCalHarmonicsHz / fs))
		return newImplicitShift(nO, nTones, offsetBin, spacingBin), nil
	}

	spacingBin := int(math.Floor(float64(nP) * s.PCalHarmonicsHz / fs))
	rotator := buildRotator(nO, fs, s.PCalOffsetHz)
	return newShifting(nP, nO, nTones, spacingBin, rotator), nil
}

// buildRotator precomputes e^{i*2π*(-offset/fs)*n} for n in [0, rotatorLen).
func buildRotator(rotatorLen int, fs, offsetHz float64) []complex128 {
	r := make([]complex128, rotatorLen)
	dphi := -2 * math.Pi * offsetHz / fs
	for n := 0; n < rotatorLen; n++ {
		r[n] = cmplx.Exp(complex(0, dphi*float64(n)))
	}
	return r
}
