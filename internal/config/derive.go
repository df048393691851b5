package config

import (
	"fmt"
	"math"
)

// Derive fills every field in Settings' "derived" section from the run
// configuration, implementing the scheduling invariant of spec.md §3.
//
// Open-question resolution (recorded in DESIGN.md): spec.md §4.4's inner
// loop threshold "ffts_accumulated == core_overlapped_ffts" is treated as
// a per-(partial-or-full)-spectrum constant, CoreAveragedFFTs*OverlapFactor
// - (OverlapFactor-1) per spec.md §8 Testable Properties invariant 2 — i.e.
// overlap only happens within one non-overlapped averaging block, never
// carried across a spectrum-splitting boundary. This keeps CoreOverlappedFFTs
// exactly divisible across BuffersPerSpectrum partial runs and matches
// spec.md §8's concrete scenarios (which all use OverlapFactor=1, where the
// distinction vanishes).
func Derive(s *Settings) error {
	s.FFTSSBPoints = s.FFTPoints/2 + 1
	s.FFTOverlapPoints = s.FFTPoints / s.FFTOverlapFactor

	avg := int(math.Round(s.SamplingFreq * s.FFTIntegSeconds / float64(s.FFTPoints)))
	if avg < 1 {
		avg = 1
	}
	s.AveragedFFTs = avg

	s.RawBytesPerChannelSample = float64(s.BitsPerSample) * float64(s.SourceChannels) / 8.0
	s.RawFullFFTBytes = int(math.Round(float64(s.FFTPoints) * s.RawBytesPerChannelSample))
	s.RawOverlapBytes = int(math.Round(float64(s.FFTOverlapPoints) * s.RawBytesPerChannelSample))
	s.FFTBytesSSB = 4 * s.FFTSSBPoints
	s.FFTBytesXPol = 2 * s.FFTBytesSSB

	if err := deriveSchedule(s); err != nil {
		return err
	}

	s.PCalToneBins = 0
	if s.ExtractPCal {
		if s.PCalHarmonicsHz <= 0 {
			return fmt.Errorf("%w: PCalHarmonicsHz must be > 0 when ExtractPCal is set", ErrConfigInvalid)
		}
		s.PCalToneBins = int(math.Floor(s.BandwidthHz / s.PCalHarmonicsHz))
		if s.PCalToneBins < 1 {
			return fmt.Errorf("%w: PCalHarmonicsHz too large for BandwidthHz, zero tones", ErrConfigInvalid)
		}
		nBins, rotatorLen := pcalBinCounts(s.SamplingFreq, s.PCalOffsetHz, s.PCalHarmonicsHz)
		s.PCalRotatorLen = rotatorLen
		s.PCalPulsesPerFFT = s.FFTPoints / nBins
		if s.PCalPulsesPerFFT < 1 {
			s.PCalPulsesPerFFT = 1
		}
	}

	s.Dt = 1.0 / s.SamplingFreq
	s.Df = s.SamplingFreq / float64(s.FFTPoints)

	return nil
}

// deriveSchedule implements the spectrum-splitting / spectrum-packing
// invariant of spec.md §3.
//
// Open-question resolution (recorded in DESIGN.md): spec.md §3 words the
// selection as "the largest power-of-two k" with "(R·averaged_ffts/k) ≤
// B_max" — taken completely literally that inequality only gets EASIER to
// satisfy as k grows, so the "largest" such k is always averaged_ffts
// itself regardless of B_max, which would make B_max irrelevant and
// contradicts spec.md §8 scenario 6 (a specific B_max is chosen to force
// buffers_per_spectrum=4). original_source/src/swspectrometer.cpp (the
// system this spec was distilled from) computes the opposite quantity: the
// SMALLEST k (equivalently the LARGEST raw buffer not exceeding B_max per
// core) via a doubling search from a fully-split starting point. This
// implementation follows the original source's actual computation, which
// is also the only reading under which B_max has any effect.
func deriveSchedule(s *Settings) error {
	if s.NumCores < 1 {
		s.NumCores = 1
	}
	bMax := int(s.MaxSourceBufferMB*1_000_000) / 2 / s.NumCores
	if bMax < s.RawFullFFTBytes {
		return fmt.Errorf("%w: MaxSourceBufferMB too small to hold a single FFT window per core", ErrConfigInvalid)
	}

	R := s.RawFullFFTBytes
	total := R * s.AveragedFFTs

	if total > bMax {
		// Spectrum-splitting: start fully split (one raw-window per core
		// run) and grow the buffer by doubling for as long as it still
		// fits the per-core budget and the split count stays even.
		k := s.AveragedFFTs
		tent := R
		for k%2 == 0 && tent*2 <= bMax {
			tent *= 2
			k /= 2
		}
		s.BuffersPerSpectrum = k
		s.SpectraPerBuffer = 0
		s.CoreAveragedFFTs = s.AveragedFFTs / k
		s.RawBufSize = tent
	} else {
		// Spectrum-packing: grow spectra-per-buffer by doubling for as
		// long as it still fits the per-core budget.
		sp := 1
		tent := total
		for tent*2 <= bMax {
			tent *= 2
			sp *= 2
		}
		s.SpectraPerBuffer = sp
		s.BuffersPerSpectrum = 0
		s.CoreAveragedFFTs = s.AveragedFFTs
		s.RawBufSize = tent
	}
	// spec.md §8 Testable Properties invariant 2:
	// overlap_factor*averaged_ffts - (overlap_factor-1), matching
	// original_source/src/swspectrometer.cpp's
	// fft_overlap_factor*max_specffts_per_buffer - (fft_overlap_factor - 1).
	s.CoreOverlappedFFTs = s.CoreAveragedFFTs*s.FFTOverlapFactor - (s.FFTOverlapFactor - 1)

	if s.SpectraPerBuffer == 0 && s.BuffersPerSpectrum == 0 {
		return fmt.Errorf("%w: scheduling derivation produced neither packing nor splitting", ErrConfigInvalid)
	}
	if s.SpectraPerBuffer != 0 && s.BuffersPerSpectrum != 0 {
		return fmt.Errorf("%w: scheduling derivation violated the packing/splitting invariant", ErrConfigInvalid)
	}
	return nil
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

// pcalBinCounts returns (N_bins, rotator_len) per spec.md §4.3. Frequencies
// are rounded to the nearest Hz for the integer number theory, which holds
// exactly for the integer-Hz sampling/comb frequencies used in VLBI.
func pcalBinCounts(fs, offsetHz, spacingHz float64) (nBins, rotatorLen int) {
	fsI := int64(math.Round(fs))
	offI := int64(math.Round(offsetHz))
	spI := int64(math.Round(spacingHz))

	nP := fsI / gcdInt(spI, fsI)
	if offI == 0 {
		return int(nP), 0
	}
	nO := fsI / gcdInt(offI, fsI)
	if nP != 0 && nO%nP == 0 {
		// ImplicitShift: bin alignment holds, same accumulator length as Trivial.
		return int(nO), 0
	}
	// Shifting: general offset.
	return int(nP), int(nO)
}

// PCalBinCounts exposes pcalBinCounts to internal/pcal so the factory
// selection and the buffer sizing in this package never drift apart.
func PCalBinCounts(fs, offsetHz, spacingHz float64) (nBins, rotatorLen int) {
	return pcalBinCounts(fs, offsetHz, spacingHz)
}
