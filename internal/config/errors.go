package config

import "errors"

// Error kinds from spec.md §7. Runtime code checks these with errors.Is;
// construct with fmt.Errorf("...: %w", ErrX) to attach context.
var (
	ErrConfigInvalid     = errors.New("config: invalid or missing key")
	ErrSourceOpenFailed  = errors.New("source: open failed")
	ErrFormatUnsupported = errors.New("unpack: no matching unpacker")
	ErrDecodeError       = errors.New("decode: external decoder refused frame")
	ErrIoError           = errors.New("io: partial read or write")
	ErrShortRead         = errors.New("io: short read")
)
