package unpack

import (
	"testing"

	"github.com/cwsl/swspectrometer/internal/config"
)

func TestChannelBitPositions(t *testing.T) {
	msbFirst := channelBitPositions(false)
	if msbFirst != [4]uint{6, 4, 2, 0} {
		t.Fatalf("MSB-first positions = %v", msbFirst)
	}
	lsbFirst := channelBitPositions(true)
	if lsbFirst != [4]uint{0, 2, 4, 6} {
		t.Fatalf("LSB-first positions = %v", lsbFirst)
	}
}

func TestLinear8SignedRoundTrip(t *testing.T) {
	u := &linear8{channels: 1, signed: true}
	src := []byte{0x00, 0x01, 0xff, 0x7f, 0x80, 0, 0, 0}
	dst := make([]float64, 8)
	n := u.Extract(src, dst, 8, 0)
	if n != 8 {
		t.Fatalf("n = %d, want 8", n)
	}
	if dst[0] != 0 || dst[1] != 1 || dst[2] != -1 || dst[3] != 127 || dst[4] != -128 {
		t.Fatalf("dst = %v", dst[:5])
	}
}

func TestLinear8Interleaved(t *testing.T) {
	u := &linear8{channels: 2, signed: false}
	// channel 0: 128,129 -> 0,1 ; channel 1: 0,255 -> -128,127
	src := []byte{128, 0, 129, 255, 0, 0, 0, 0}
	dst := make([]float64, 8)
	n := u.Extract(src, dst, 8, 0)
	if n != 4 {
		t.Fatalf("n = %d, want 4 (8 bytes / 2 channels)", n)
	}
	if dst[0] != 0 || dst[1] != 1 {
		t.Fatalf("channel 0 = %v", dst[:2])
	}
}

func TestTwoBitSingleChannelEmitsFourSamplesPerByte(t *testing.T) {
	u := newTwoBitSingleChannel(false) // MSB-first: bit positions 6,4,2,0
	// One byte packs 4 consecutive time samples of the single channel
	// (spec.md §4.2): field@6=10(+3.3359), field@4=01(-1.0),
	// field@2=11(-3.3359), field@0=00(+1.0).
	b := byte(0b10_01_11_00)
	dst := make([]float64, 8)
	n := u.Extract([]byte{b, b}, dst, 8, 0)
	if n != 8 {
		t.Fatalf("n = %d, want 8 (4 samples per byte * 2 bytes)", n)
	}
	want := []float64{3.3359, -1.0, -3.3359, 1.0, 3.3359, -1.0, -3.3359, 1.0}
	for i, w := range want {
		if dst[i] != w {
			t.Fatalf("dst[%d] = %v, want %v (dst=%v)", i, dst[i], w, dst)
		}
	}
}

func TestTwoBitSingleChannelHonorsCountLimit(t *testing.T) {
	u := newTwoBitSingleChannel(false)
	dst := make([]float64, 3)
	// count=3 is rounded down to a multiple of Granularity()=8, i.e. to 0,
	// so nothing is unpacked even though the source bytes hold 12 samples.
	n := u.Extract([]byte{0x00, 0x00, 0x00}, dst, 3, 0)
	if n != 0 {
		t.Fatalf("n = %d, want 0 (count=3 rounds down below Granularity=8)", n)
	}
}

func TestTwoBitMultiChannelIsolation(t *testing.T) {
	// 4 channels, MSB-first: bits 7:6=ch0, 5:4=ch1, 3:2=ch2, 1:0=ch3
	u0 := newTwoBitMulti(4, 0, false)
	u3 := newTwoBitMulti(4, 3, false)
	// ch0=10(+3.3359), ch1=00, ch2=00, ch3=01(-1.0) -> 1000 00 01 = 0x81
	b := byte(0b10_00_00_01)
	dst := make([]float64, 1)
	u0.Extract([]byte{b}, dst, 8, 0)
	if dst[0] != 3.3359 {
		t.Fatalf("ch0 = %v", dst[0])
	}
	u3.Extract([]byte{b}, dst, 8, 3)
	if dst[0] != -1.0 {
		t.Fatalf("ch3 = %v", dst[0])
	}
}

func TestTwoBitMultiStride(t *testing.T) {
	// 8 channels -> 2 groups of 4, one byte per group.
	u := newTwoBitMulti(8, 4, false) // channel 4 is group 1, position 6 within its byte
	src := []byte{0x00, 0x40, 0x00, 0x40} // group0,group1,group0,group1
	dst := make([]float64, 2)
	n := u.Extract(src, dst, 32, 4)
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if dst[0] != -1.0 || dst[1] != -1.0 {
		t.Fatalf("dst = %v", dst)
	}
}

func TestTwoBitDualChannelSeparatesChannels(t *testing.T) {
	// MSB-first positions {6,4,2,0}: channel 0 uses positions[0]=6 and
	// positions[2]=2; channel 1 uses positions[1]=4 and positions[3]=0.
	u0 := newTwoBitDualChannel(0, false)
	u1 := newTwoBitDualChannel(1, false)
	// field@6=10(+3.3359), field@4=01(-1.0), field@2=11(-3.3359), field@0=00(+1.0)
	b := byte(0b10_01_11_00)
	dst := make([]float64, 2)

	n := u0.Extract([]byte{b}, dst, 8, 0)
	if n != 2 || dst[0] != 3.3359 || dst[1] != -3.3359 {
		t.Fatalf("channel 0 = %v (n=%d)", dst, n)
	}
	n = u1.Extract([]byte{b}, dst, 8, 1)
	if n != 2 || dst[0] != -1.0 || dst[1] != 1.0 {
		t.Fatalf("channel 1 = %v (n=%d)", dst, n)
	}
}

func TestSelectFramedTwoBitTwoChannels(t *testing.T) {
	s := &config.Settings{SourceFormat: config.FormatMark5B, BitsPerSample: 2, SourceChannels: 2}
	u, err := Select(s, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.(*twoBitDualChannel); !ok {
		t.Fatalf("got %T, want *twoBitDualChannel", u)
	}
}

func TestSelectRejectsUnknownFormat(t *testing.T) {
	s := &config.Settings{SourceFormat: config.FormatUnknown}
	if _, err := Select(s, 0); err == nil {
		t.Fatal("expected error for FormatUnknown")
	}
}

func TestSelectRawSigned8Bit(t *testing.T) {
	s := &config.Settings{SourceFormat: config.FormatRawSigned, BitsPerSample: 8, SourceChannels: 1}
	u, err := Select(s, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.(*linear8); !ok {
		t.Fatalf("got %T, want *linear8", u)
	}
}

func TestSelectTwoBitOddChannelCountRejected(t *testing.T) {
	s := &config.Settings{SourceFormat: config.FormatRawSigned, BitsPerSample: 2, SourceChannels: 3}
	if _, err := Select(s, 0); err == nil {
		t.Fatal("expected error for non-1/non-multiple-of-4 channel count")
	}
}

func TestSelectRawTwoBitTwoChannelsStillRejected(t *testing.T) {
	// The 2-channel dual-sample layout is specific to the framed Mark5B/
	// VDIF/iBOB formats; raw 2-bit data has no such table entry.
	s := &config.Settings{SourceFormat: config.FormatRawSigned, BitsPerSample: 2, SourceChannels: 2}
	if _, err := Select(s, 0); err == nil {
		t.Fatal("expected error for raw 2-bit 2-channel data")
	}
}
