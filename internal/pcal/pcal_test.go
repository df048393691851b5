package pcal

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwsl/swspectrometer/internal/config"
)

func settingsFor(fs, offset, spacing float64, bw float64) *config.Settings {
	s := &config.Settings{
		SamplingFreq:    fs,
		PCalOffsetHz:    offset,
		PCalHarmonicsHz: spacing,
		BandwidthHz:     bw,
		ExtractPCal:     true,
	}
	s.PCalToneBins = int(math.Floor(bw / spacing))
	return s
}

func sumOfTones(fs float64, freqsHz []float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / fs
		v := 0.0
		for _, f := range freqsHz {
			v += math.Cos(2 * math.Pi * f * t)
		}
		out[i] = v
	}
	return out
}

func TestTrivialToneMagnitudesEqual(t *testing.T) {
	fs := 16e6
	s := settingsFor(fs, 0, 1e6, 7.5e6)
	ext, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	freqs := []float64{1e6, 2e6, 3e6, 4e6, 5e6, 6e6, 7e6}
	samples := sumOfTones(fs, freqs, 16384)
	if !ext.ExtractAndIntegrate(samples) {
		t.Fatal("ExtractAndIntegrate returned false")
	}
	out := make([]complex128, ext.NumTones())
	count := ext.GetFinalPCal(out)
	if count != int64(len(samples)) {
		t.Fatalf("count = %d, want %d", count, len(samples))
	}
	if ext.NumTones() != 7 {
		t.Fatalf("NumTones = %d, want 7", ext.NumTones())
	}
	// With a zero offset, tone k sits at k*spacing, so tone 0 is the DC bin,
	// where the input has no component; tones 1..6 carry the input cosines.
	mag1 := cmplx.Abs(out[1])
	if cmplx.Abs(out[0]) > 1e-6*mag1 {
		t.Fatalf("tone 0 (DC) magnitude %v, want ~0", cmplx.Abs(out[0]))
	}
	for k := 2; k < len(out); k++ {
		mag := cmplx.Abs(out[k])
		if math.Abs(mag-mag1) > 0.01*mag1 {
			t.Fatalf("tone %d magnitude %v differs from tone 1 %v by more than 1%%", k, mag, mag1)
		}
	}
}

func TestFinalizedExtractorRejectsFurtherInput(t *testing.T) {
	s := settingsFor(16e6, 0, 1e6, 7.5e6)
	ext, _ := New(s)
	ext.ExtractAndIntegrate(make([]float64, 1024))
	out := make([]complex128, ext.NumTones())
	ext.GetFinalPCal(out)
	if ext.ExtractAndIntegrate(make([]float64, 1024)) {
		t.Fatal("ExtractAndIntegrate returned true after finalisation")
	}
}

func TestClearResetsToZero(t *testing.T) {
	s := settingsFor(16e6, 0, 1e6, 7.5e6)
	ext, _ := New(s)
	ext.ExtractAndIntegrate(make([]float64, 2048))
	ext.Clear()
	out := make([]complex128, ext.NumTones())
	count := ext.GetFinalPCal(out)
	if count != 0 {
		t.Fatalf("count after Clear = %d, want 0", count)
	}
	for k, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want 0 after Clear", k, v)
		}
	}
}

func TestShiftingAgreesWithReference(t *testing.T) {
	// Note: spec.md §8 scenario 4 (fs=32MHz, offset=510kHz, spacing=1MHz)
	// actually satisfies the ImplicitShift bin-alignment condition of
	// §4.3's own factory rule (N_p=32 divides N_o=3200), despite being
	// labelled a "Shifting" example there. This test instead picks an
	// offset that genuinely fails the alignment check, to exercise the
	// Shifting code path the factory would otherwise never select for a
	// case this simple.
	fs := 32e6
	offset := 2048.0
	spacing := 1e6
	s := settingsFor(fs, offset, spacing, 3.5e6)
	ext, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ext.(*shifting); !ok {
		t.Fatalf("factory selected %T, want *shifting for this fs/offset/spacing", ext)
	}

	freqs := make([]float64, ext.NumTones())
	for k := range freqs {
		freqs[k] = offset + float64(k)*spacing
	}
	samples := sumOfTones(fs, freqs, 65536)

	ref := NewReference(fs, offset, spacing, ext.NumTones())

	half := len(samples) / 2
	ext.ExtractAndIntegrate(samples[:half])
	ext.AdjustSampleOffset(0)
	ext.ExtractAndIntegrate(samples[half:])

	ref.ExtractAndIntegrate(samples[:half])
	ref.AdjustSampleOffset(0)
	ref.ExtractAndIntegrate(samples[half:])

	fastOut := make([]complex128, ext.NumTones())
	refOut := make([]complex128, ref.NumTones())
	ext.GetFinalPCal(fastOut)
	ref.GetFinalPCal(refOut)

	for k := range fastOut {
		diff := cmplx.Abs(fastOut[k] - refOut[k])
		scale := cmplx.Abs(refOut[k])
		if scale < 1 {
			scale = 1
		}
		if diff > 1e-6*scale {
			t.Fatalf("tone %d: fast=%v ref=%v diff=%v", k, fastOut[k], refOut[k], diff)
		}
	}
}

func TestImplicitShiftSelectedWhenBinAligned(t *testing.T) {
	// fs=10MHz, spacing=1MHz -> N_p=10; offset=3MHz -> gcd(3MHz,10MHz)=1MHz -> N_o=10.
	// N_o % N_p == 0 (10%10==0), so the bin-alignment condition holds.
	s := settingsFor(10e6, 3e6, 1e6, 4.5e6)
	ext, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ext.(*implicitShift); !ok {
		t.Fatalf("factory selected %T, want *implicitShift", ext)
	}
}
