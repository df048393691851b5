package unpack

import "testing"

func TestRandomizeHeaderGapsFillsDetectedRun(t *testing.T) {
	// headerOffset=3, headerSamples=160 -> fanoutedFrameSamples = 20000*(160/160) = 20000.
	n := 3 + 160 + 50
	dst := make([]float64, n)
	for i := 0; i < 3; i++ {
		dst[i] = 1.0 // pre-header data, must be left untouched
	}
	for i := 3 + 160; i < n; i++ {
		dst[i] = 2.0 // post-header data, must be left untouched
	}
	// dst[3:163] is already zero, simulating the decoder's header gap.

	randomizeHeaderGaps(dst)

	for i := 0; i < 3; i++ {
		if dst[i] != 1.0 {
			t.Fatalf("dst[%d] = %v, want untouched 1.0", i, dst[i])
		}
	}
	for i := 3; i < 3+160; i++ {
		if dst[i] != 3.3359 && dst[i] != -3.3359 {
			t.Fatalf("dst[%d] = %v, want +/-3.3359", i, dst[i])
		}
	}
	for i := 3 + 160; i < n; i++ {
		if dst[i] != 2.0 {
			t.Fatalf("dst[%d] = %v, want untouched 2.0", i, dst[i])
		}
	}
}

func TestRandomizeHeaderGapsNoOpWithoutZeroRun(t *testing.T) {
	dst := []float64{1, 2, 3, 4, 5}
	want := append([]float64(nil), dst...)
	randomizeHeaderGaps(dst)
	for i := range dst {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want unchanged %v (no zero run present)", i, dst[i], want[i])
		}
	}
}

func TestRandomizeHeaderGapsRecurringFrames(t *testing.T) {
	// headerSamples=160 at offset 0 -> fanoutedFrameSamples=20000; a
	// second header-shaped run at the next frame boundary must also be
	// randomised even though it is never re-detected (detection runs
	// once against the first run only, per spec.md §4.2).
	n := 20000 + 160
	dst := make([]float64, n)
	for i := 160; i < 20000; i++ {
		dst[i] = 1.0
	}
	for i := 20000; i < n; i++ {
		dst[i] = 0 // decoder's second header run, left as zero like the first
	}

	randomizeHeaderGaps(dst)

	for i := 0; i < 160; i++ {
		if dst[i] != 3.3359 && dst[i] != -3.3359 {
			t.Fatalf("dst[%d] = %v, want +/-3.3359 (first header run)", i, dst[i])
		}
	}
	for i := 20000; i < n; i++ {
		if dst[i] != 3.3359 && dst[i] != -3.3359 {
			t.Fatalf("dst[%d] = %v, want +/-3.3359 (second header run)", i, dst[i])
		}
	}
}
