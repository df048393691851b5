package unpack

// linear8 decodes 8-bit raw samples, one or more interleaved channels.
type linear8 struct {
	channels int
	signed   bool
}

func (l *linear8) Granularity() int { return 8 }

func (l *linear8) Extract(src []byte, dst []float64, count int, channel int) int {
	count -= count % l.Granularity()
	n := 0
	for i := channel; n < count && i < len(src); i += l.channels {
		b := src[i]
		if l.signed {
			dst[n] = float64(int8(b))
		} else {
			dst[n] = float64(int(b) - 128)
		}
		n++
	}
	return n
}

// linear16 decodes 16-bit raw samples, little-endian, one or more
// interleaved channels.
//
// Open question (spec.md §9a): the original source carries commented-out
// endianness-swap code for 16-bit input. Lacking a test file to confirm,
// this implementation assumes little-endian, the overwhelmingly common
// recording-host byte order for the formats spec.md lists, and does not
// guess at a swap.
type linear16 struct {
	channels int
	signed   bool
}

func (l *linear16) Granularity() int { return 8 }

func (l *linear16) Extract(src []byte, dst []float64, count int, channel int) int {
	count -= count % l.Granularity()
	stride := 2 * l.channels
	n := 0
	for i := 2 * channel; n < count && i+1 < len(src); i += stride {
		word := uint16(src[i]) | uint16(src[i+1])<<8
		if l.signed {
			dst[n] = float64(int16(word))
		} else {
			dst[n] = float64(int(word) - 32768)
		}
		n++
	}
	return n
}
