package unpack

import (
	"fmt"

	"github.com/cwsl/swspectrometer/internal/config"
)

// selectForFormat implements the Unpacker selection table of spec.md §4.2,
// first match wins: SourceFormat first, then BitsPerSample, then
// SourceChannels.
func selectForFormat(s *config.Settings, channel int) (Unpacker, error) {
	switch s.SourceFormat {
	case config.FormatRawSigned, config.FormatRawUnsigned:
		signed := s.SourceFormat == config.FormatRawSigned
		switch s.BitsPerSample {
		case 8:
			return &linear8{channels: s.SourceChannels, signed: signed}, nil
		case 16:
			return &linear16{channels: s.SourceChannels, signed: signed}, nil
		case 2:
			return selectTwoBit(s, channel)
		default:
			return nil, fmt.Errorf("%w: unsupported BitsPerSample %d for %s",
				config.ErrFormatUnsupported, s.BitsPerSample, s.SourceFormat)
		}

	case config.FormatMark5B, config.FormatVDIF, config.FormatIBOB:
		if s.BitsPerSample != 2 {
			return nil, fmt.Errorf("%w: %s is a framed 2-bit-only format, got %d bits",
				config.ErrFormatUnsupported, s.SourceFormat, s.BitsPerSample)
		}
		return selectFramedTwoBit(s, channel)

	case config.FormatVLBA, config.FormatMKIV, config.FormatMk5B:
		return newExternalDecoderUnpacker(s, channel)

	default:
		return nil, fmt.Errorf("%w: SourceFormat %s has no unpacker", config.ErrFormatUnsupported, s.SourceFormat)
	}
}

// selectTwoBit dispatches the single-channel vs multiple-of-4-channel 2-bit
// LUT decoders, shared by the raw and framed 2-bit format branches.
func selectTwoBit(s *config.Settings, channel int) (Unpacker, error) {
	switch {
	case s.SourceChannels == 1:
		return newTwoBitSingleChannel(s.ChannelsLSBFirst), nil
	case s.SourceChannels%4 == 0:
		return newTwoBitMulti(s.SourceChannels, channel, s.ChannelsLSBFirst), nil
	default:
		return nil, fmt.Errorf("%w: 2-bit %s requires 1 or a multiple-of-4 channel count, got %d",
			config.ErrFormatUnsupported, s.SourceFormat, s.SourceChannels)
	}
}

// selectFramedTwoBit extends selectTwoBit with the 2-channel Mark5B/VDIF/
// iBOB case spec.md §4.2 lists alongside 4/8/16 ("Channels 2/4/8/16"),
// which twoBitMulti's 4-lane group geometry cannot produce.
func selectFramedTwoBit(s *config.Settings, channel int) (Unpacker, error) {
	if s.SourceChannels == 2 {
		return newTwoBitDualChannel(channel, s.ChannelsLSBFirst), nil
	}
	return selectTwoBit(s, channel)
}
