package worker

import (
	"testing"

	"github.com/cwsl/swspectrometer/internal/config"
)

func tinySettings() *config.Settings {
	return &config.Settings{
		NumSources:        1,
		SourceFormat:      config.FormatRawSigned,
		BitsPerSample:     8,
		SourceChannels:    1,
		WindowType:        config.WindowNone,
		FFTPoints:         8,
		FFTSSBPoints:      5,
		FFTOverlapFactor:  1,
		RawOverlapBytes:   8,
		RawFullFFTBytes:   8,
		CoreOverlappedFFTs: 1,
	}
}

func TestRunCompletesOneSpectrum(t *testing.T) {
	cfg := tinySettings()
	w, err := New(cfg, []int{0})
	if err != nil {
		t.Fatal(err)
	}

	raw := []byte{10, 20, 30, 40, 50, 60, 70, 80}
	auto := make([]complex128, 5)
	job := Job{
		Raw:     [][]byte{raw},
		Channel: []int{0},
		Auto:    [][]complex128{auto},
	}

	n := w.run(job)
	if n != 1 {
		t.Fatalf("spectraCompleted = %d, want 1", n)
	}
	nonZero := false
	for _, v := range auto {
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatal("expected at least one nonzero auto-spectrum bin")
	}
}

func TestRunHonorsOverlapFactorGreaterThanOne(t *testing.T) {
	// FFTOverlapFactor=2 over 2 averaged FFTs means
	// CoreOverlappedFFTs = 2*2 - 1 = 3 overlapped windows per spectrum
	// (spec.md §8 Testable Properties invariant 2), not the naive
	// product 2*2 = 4. 50% overlap (RawOverlapBytes=4 of an 8-byte
	// window) needs exactly 16 raw bytes for those 3 windows
	// (offsets 0, 4, 8) plus the hop past the spectrum.
	cfg := tinySettings()
	cfg.FFTOverlapFactor = 2
	cfg.RawOverlapBytes = 4
	cfg.CoreOverlappedFFTs = 3

	w, err := New(cfg, []int{0})
	if err != nil {
		t.Fatal(err)
	}

	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	auto := make([]complex128, 5)
	job := Job{
		Raw:     [][]byte{raw},
		Channel: []int{0},
		Auto:    [][]complex128{auto},
	}

	n := w.run(job)
	if n != 1 {
		t.Fatalf("spectraCompleted = %d, want 1 (got extra/fewer overlapped windows than 3)", n)
	}
}

func TestDispatchJoinProtocol(t *testing.T) {
	cfg := tinySettings()
	w, err := New(cfg, []int{0})
	if err != nil {
		t.Fatal(err)
	}
	w.Start()

	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	auto := make([]complex128, 5)
	job := Job{
		Raw:     [][]byte{raw},
		Channel: []int{0},
		Auto:    [][]complex128{auto},
	}

	w.Dispatch(job)
	n := w.Join()
	if n != 1 {
		t.Fatalf("Join returned %d, want 1", n)
	}
	w.Terminate()
}
