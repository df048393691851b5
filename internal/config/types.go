// Package config parses the spectrometer INI file, derives every
// scheduling and sizing parameter described in spec.md §3, and writes the
// supplementary run manifest/diagnostics.
package config

import (
	"fmt"
	"strings"
)

// WindowType selects the window function applied before each DFT.
type WindowType int

const (
	WindowNone WindowType = iota
	WindowCosine
	WindowCosine2
	WindowHamming
	WindowHann
	WindowBlackman
)

func parseWindowType(s string) (WindowType, error) {
	switch normalizeKey(s) {
	case "none":
		return WindowNone, nil
	case "cosine":
		return WindowCosine, nil
	case "cosine2":
		return WindowCosine2, nil
	case "hamming":
		return WindowHamming, nil
	case "hann":
		return WindowHann, nil
	case "blackman":
		return WindowBlackman, nil
	default:
		return 0, fmt.Errorf("%w: WindowType %q", ErrConfigInvalid, s)
	}
}

// OutputFormat selects the sink's on-disk representation.
type OutputFormat int

const (
	SinkBinary OutputFormat = iota
	SinkASCII
)

func parseOutputFormat(s string) (OutputFormat, error) {
	switch normalizeKey(s) {
	case "binary":
		return SinkBinary, nil
	case "ascii":
		return SinkASCII, nil
	default:
		return 0, fmt.Errorf("%w: SinkFormat %q", ErrConfigInvalid, s)
	}
}

// InputFormat selects the Source/Unpacker variant family.
type InputFormat int

const (
	FormatUnknown InputFormat = iota - 1
	FormatRawSigned
	FormatRawUnsigned
	FormatMark5B
	FormatIBOB
	FormatVDIF
	FormatVLBA
	FormatMKIV
	FormatMk5B
	FormatMaxim
)

func (f InputFormat) String() string {
	switch f {
	case FormatRawSigned:
		return "RawSigned"
	case FormatRawUnsigned:
		return "RawUnsigned"
	case FormatMark5B:
		return "Mark5B"
	case FormatIBOB:
		return "iBOB"
	case FormatVDIF:
		return "VDIF"
	case FormatVLBA:
		return "VLBA"
	case FormatMKIV:
		return "MKIV"
	case FormatMk5B:
		return "Mk5B"
	case FormatMaxim:
		return "Maxim"
	default:
		return "Unknown"
	}
}

// DataReplacement reports whether bytes on disk are samples with header
// bits overwritten at a regular stride (spec.md §4.1/§4.2), requiring the
// unpack layer to randomise header gaps.
func (f InputFormat) DataReplacement() bool {
	switch f {
	case FormatVLBA, FormatMKIV, FormatMk5B:
		return true
	default:
		return false
	}
}

// Framed reports whether the format carries a fixed header+payload frame
// structure that Source.Read must parse (spec.md §4.1).
func (f InputFormat) Framed() bool {
	switch f {
	case FormatMark5B, FormatVDIF, FormatIBOB:
		return true
	default:
		return false
	}
}

// parseInputFormat is case-insensitive and prefix-matches the Mk5B family
// per spec.md §6 ("SourceFormat ... prefix-match for Mk5B family").
func parseInputFormat(s string) (InputFormat, error) {
	switch normalizeKey(s) {
	case "rawsigned":
		return FormatRawSigned, nil
	case "rawunsigned":
		return FormatRawUnsigned, nil
	case "mark5b":
		return FormatMark5B, nil
	case "ibob":
		return FormatIBOB, nil
	case "vdif":
		return FormatVDIF, nil
	case "vlba":
		return FormatVLBA, nil
	case "mkiv":
		return FormatMKIV, nil
	case "mk5b":
		return FormatMk5B, nil
	case "maxim":
		return FormatMaxim, fmt.Errorf("%w: Maxim format has no unpacker (spec.md §9 open question b)", ErrFormatUnsupported)
	default:
		// Mk5B-family names may carry a geometry suffix, e.g. "MKIV1_4".
		key := normalizeKey(s)
		switch {
		case strings.HasPrefix(key, "vlba"):
			return FormatVLBA, nil
		case strings.HasPrefix(key, "mkiv"):
			return FormatMKIV, nil
		case strings.HasPrefix(key, "mk5b"):
			return FormatMk5B, nil
		}
		return FormatUnknown, fmt.Errorf("%w: SourceFormat %q", ErrConfigInvalid, s)
	}
}
