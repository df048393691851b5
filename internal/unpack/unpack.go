// Package unpack implements the format/channel/bit-width-indexed sample
// decoders of spec.md §4.2: linear 8/16-bit decoders, lookup-table 2-bit
// decoders, and the wrapper around the external data-replacement-format
// decoder (internal/mark5).
package unpack

import "github.com/cwsl/swspectrometer/internal/config"

// Unpacker converts a raw-byte chunk into real-valued float64 samples for
// one channel, scaled for DFT input. count is rounded down to the
// unpacker's granularity; it returns the number of samples actually
// written to dst.
type Unpacker interface {
	// Granularity returns the sample-count alignment this unpacker
	// requires (spec.md §4.2: "typically 8 samples").
	Granularity() int
	// Extract unpacks up to count samples (rounded down to Granularity)
	// of channel from src into dst, returning the count unpacked.
	Extract(src []byte, dst []float64, count int, channel int) int
}

// reversedSignMagnitude is the {00:+1.0, 01:-1.0, 10:+3.3359, 11:-3.3359}
// mapping of spec.md §4.2 ("2-bit mapping"), keyed by the 2-bit
// {magnitude,sign} field with bit 1 = magnitude, bit 0 = sign.
var reversedSignMagnitude = [4]float64{+1.0, -1.0, +3.3359, -3.3359}

// channelBitPositions returns, for channels 0..3 of a byte carrying 4
// channels, the right-shift at which each channel's 2-bit field starts
// (6 is the most significant pair). With lsbFirst false, the default
// (ChannelOrderIncreasing true), the order is MSB-first: 6,4,2,0; with
// lsbFirst true it is LSB-first: 0,2,4,6.
func channelBitPositions(lsbFirst bool) [4]uint {
	if lsbFirst {
		return [4]uint{0, 2, 4, 6}
	}
	return [4]uint{6, 4, 2, 0}
}

// Select returns the Unpacker matching (format, bits, channels) per the
// selection table of spec.md §4.2, first match wins.
func Select(s *config.Settings, channel int) (Unpacker, error) {
	return selectForFormat(s, channel)
}
