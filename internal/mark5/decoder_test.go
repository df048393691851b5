package mark5

import "testing"

func TestDecodeProducesNoZeroRunWithoutHeaderSamples(t *testing.T) {
	d, err := New(Format{Bits: 2, Channels: 2, Fanout: 1, HeaderSamples: 0})
	if err != nil {
		t.Fatal(err)
	}
	dst := make([][]float32, 2)
	dst[0] = make([]float32, 4)
	dst[1] = make([]float32, 4)
	payload := []byte{0xFF, 0xFF, 0xFF, 0xFF} // one sample per channel per byte
	n, err := d.Decode(payload, dst, 4)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}
	for i, v := range dst[0] {
		if v == 0 {
			t.Fatalf("dst[0][%d] = 0, want a nonzero decoded sample (no header gap configured)", i)
		}
	}
}

func TestDecodeZeroesHeaderRunPeriodically(t *testing.T) {
	// HeaderSamples=160 at fanout 1 -> fanoutedFrameSamples = 20000*(160/160) = 20000.
	// Request samples spanning the first two frame boundaries to confirm the
	// header run recurs rather than only appearing once at stream start.
	d, err := New(Format{Bits: 2, Channels: 2, Fanout: 1, HeaderSamples: 160})
	if err != nil {
		t.Fatal(err)
	}
	const want = 20000 + 160
	dst := make([][]float32, 2)
	dst[0] = make([]float32, want)
	dst[1] = make([]float32, want)
	payload := make([]byte, want) // 2-bit/2-channel: 1 sample per channel per byte
	for i := range payload {
		payload[i] = 0xFF // nonzero LUT entries everywhere the decoder doesn't force a zero
	}
	n, err := d.Decode(payload, dst, want)
	if err != nil {
		t.Fatal(err)
	}
	if n != want {
		t.Fatalf("n = %d, want %d", n, want)
	}
	for i := 0; i < 160; i++ {
		if dst[0][i] != 0 {
			t.Fatalf("dst[0][%d] = %v, want 0 (first frame's header run)", i, dst[0][i])
		}
	}
	if dst[0][160] == 0 {
		t.Fatal("dst[0][160] = 0, want a decoded sample past the first header run")
	}
	for i := 20000; i < 20000+160; i++ {
		if dst[0][i] != 0 {
			t.Fatalf("dst[0][%d] = %v, want 0 (second frame's header run)", i, dst[0][i])
		}
	}
}
