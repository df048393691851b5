package unpack

import (
	mrand "math/rand/v2"

	"github.com/cwsl/swspectrometer/internal/config"
	"github.com/cwsl/swspectrometer/internal/mark5"
)

// externalDecoderCore wraps one internal/mark5.Decoder and runs exactly one
// Decode pass per raw buffer, keeping the decoded output of every channel.
// The decoder operates on the whole frame, not per channel; each channel's
// Unpacker nonetheless builds its own core (see
// newExternalDecoderUnpacker), so cores are not shared across channels.
type externalDecoderCore struct {
	dec      *mark5.Decoder
	channels int
	chunk    int

	lastSrc  *byte
	lastLen  int
	bufs     [][]float32
	produced int
}

func newExternalDecoderCore(s *config.Settings) (*externalDecoderCore, error) {
	fanout := s.DataReplacementFanout
	if fanout < 1 {
		fanout = 1
	}
	f := mark5.Format{
		Bits:     s.BitsPerSample,
		Channels: s.SourceChannels,
		Fanout:   fanout,
		// mark5access's header run is 160 samples at fanout 1, scaling
		// linearly with fanout (160@1:1, 320@1:2, 640@1:4 per
		// original_source/mark5access/debug/mk5access_testcase.c).
		HeaderSamples: 160 * fanout,
	}
	dec, err := mark5.New(f)
	if err != nil {
		return nil, err
	}
	return &externalDecoderCore{
		dec:      dec,
		channels: s.SourceChannels,
		chunk:    mark5.MaxChunkBytes,
		bufs:     make([][]float32, s.SourceChannels),
	}, nil
}

// ensureDecoded decodes src into c.bufs unless it already holds the result
// for this exact src slice (same backing array, same length), chunking
// each Decode call to mark5.MaxChunkBytes per spec.md §4.2.
func (c *externalDecoderCore) ensureDecoded(src []byte, samplesWanted int) error {
	var srcPtr *byte
	if len(src) > 0 {
		srcPtr = &src[0]
	}
	if c.lastSrc == srcPtr && c.lastLen == len(src) {
		return nil
	}
	for ch := range c.bufs {
		if cap(c.bufs[ch]) < samplesWanted {
			c.bufs[ch] = make([]float32, samplesWanted)
		} else {
			c.bufs[ch] = c.bufs[ch][:samplesWanted]
		}
	}
	produced := 0
	off := 0
	for off < len(src) && produced < samplesWanted {
		end := off + c.chunk
		if end > len(src) {
			end = len(src)
		}
		dst := make([][]float32, c.channels)
		for ch := range dst {
			dst[ch] = c.bufs[ch][produced:]
		}
		n, err := c.dec.Decode(src[off:end], dst, samplesWanted-produced)
		if err != nil {
			return err
		}
		off = end
		if n == 0 {
			break
		}
		produced += n
	}
	c.produced = produced
	c.lastSrc = srcPtr
	c.lastLen = len(src)
	return nil
}

// externalChannelUnpacker exposes one channel of a shared
// externalDecoderCore as an Unpacker.
type externalChannelUnpacker struct {
	core    *externalDecoderCore
	channel int
}

func (u *externalChannelUnpacker) Granularity() int { return 8 }

func (u *externalChannelUnpacker) Extract(src []byte, dst []float64, count int, channel int) int {
	count -= count % u.Granularity()
	if count <= 0 {
		return 0
	}
	if err := u.core.ensureDecoded(src, count); err != nil {
		return 0
	}
	buf := u.core.bufs[u.channel]
	n := count
	if n > len(buf) {
		n = len(buf)
	}
	if n > u.core.produced {
		n = u.core.produced
	}
	for i := 0; i < n; i++ {
		dst[i] = float64(buf[i])
	}
	randomizeHeaderGaps(dst[:n])
	return n
}

// randomizeHeaderGaps implements spec.md §4.2's "Header-gap randomisation
// (MKIV/Mk5B only)": scan forward from the first non-zero sample to find
// headersamples (the run of zeros the decoder left), then replace every
// position whose distance from the run's start is less than headersamples
// modulo the fanouted frame period with a random ±3.3359 sample. Grounded
// directly on original_source/src/IA-32/DataUnpackers.cpp's
// MarkIVUnpacker::extract_samples, which performs this same scan-then-fill
// independently per channel on that channel's own decoded output, not on
// a single geometry shared across channels.
func randomizeHeaderGaps(dst []float64) {
	n := len(dst)
	headerOffset := 0
	for headerOffset < n && dst[headerOffset] != 0 {
		headerOffset++
	}
	if headerOffset >= n {
		return
	}
	headerSamples := 0
	for headerOffset+headerSamples < n && dst[headerOffset+headerSamples] == 0 {
		headerSamples++
	}
	if headerSamples == 0 {
		return
	}
	fanoutedFrameSamples := 20000 * (headerSamples / 160)
	if fanoutedFrameSamples <= 0 {
		return
	}
	for i := headerOffset; i < n; i++ {
		if (i-headerOffset)%fanoutedFrameSamples < headerSamples {
			dst[i] = randomHeaderFill()
		}
	}
}

// randomHeaderFill draws the "uniform random bit" spec.md §4.2 calls for,
// choosing the sign of the fixed-magnitude header fill value.
func randomHeaderFill() float64 {
	if mrand.IntN(2) == 0 {
		return 3.3359
	}
	return -3.3359
}

// newExternalDecoderUnpacker builds the Unpacker for one channel of a
// VLBA/MKIV/Mk5B data-replacement source. Each call constructs its own
// core (and thus its own Decoder); a worker's single raw buffer for such a
// source is therefore decoded once per channel rather than once overall.
// Select is called once per source (spec.md §4.2's UseFile1Channel/
// UseFile2Channel each name a single channel to extract), so in practice
// this only duplicates decode work when SourceChannels > 1 and more than
// one of those channels is ever requested from the same raw bytes, which
// the current Worker/Dispatcher never does. Recorded as a known
// simplification in DESIGN.md rather than plumbed through, since wiring
// real cross-channel sharing would require Select itself to take a shared
// core rather than a bare *config.Settings.
func newExternalDecoderUnpacker(s *config.Settings, channel int) (Unpacker, error) {
	core, err := newExternalDecoderCore(s)
	if err != nil {
		return nil, err
	}
	return &externalChannelUnpacker{core: core, channel: channel}, nil
}
