// Package source implements the Source contract of spec.md §4.1: opening a
// recording (file or network stream), skipping a leading number of
// sample-seconds, stripping per-frame headers for framed formats, and
// passing data-replacement bytes straight through for internal/unpack's
// external-decoder wrapper to handle. Grounded on
// original_source/src/DataSource.h's open/read/close/eof contract and the
// teacher's multicast RTP receive loop (audio.go).
package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/cwsl/swspectrometer/internal/buffer"
	"github.com/cwsl/swspectrometer/internal/config"
)

// Source is the spec.md §4.1 contract: Open once, Read repeatedly into a
// caller-owned Buffer, Close when done. EOF reports whether the last Read
// hit end of stream (after which Read keeps returning 0, io.EOF).
type Source interface {
	Open(uri string) error
	Read(buf *buffer.Buffer) (int, error)
	EOF() bool
	Close() error
}

// frameGeometry describes one framed format's header/payload byte layout
// (original_source/src/FileSource.cpp's sourceformat_uses_frames branch).
type frameGeometry struct {
	headerBytes  int
	payloadBytes int
}

func geometryFor(f config.InputFormat) (frameGeometry, bool) {
	switch f {
	case config.FormatMark5B:
		return frameGeometry{headerBytes: 16, payloadBytes: 10000}, true
	case config.FormatVDIF:
		return frameGeometry{headerBytes: 16, payloadBytes: 8000}, true
	case config.FormatIBOB:
		return frameGeometry{headerBytes: 4, payloadBytes: 4096}, true
	default:
		return frameGeometry{}, false
	}
}

// Open builds and opens the Source appropriate to uri and s.SourceFormat,
// applying s.SourceSkipSeconds (spec.md §4.1 "seconds-skip logic"). A
// "rtp://" URI (SPEC_FULL's live-capture addition) selects RTPSource over
// the multicast group named by the rest of the URI instead of a file;
// skip-seconds has no meaning on a live stream and is ignored for it.
func Open(s *config.Settings, uri string) (Source, error) {
	if addr, ok := strings.CutPrefix(uri, "rtp://"); ok {
		src := NewRTPSource(nil)
		if err := src.Open(addr); err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrSourceOpenFailed, err)
		}
		return src, nil
	}

	var src Source
	if geom, framed := geometryFor(s.SourceFormat); framed {
		src = &framedFileSource{geom: geom}
	} else {
		src = &plainFileSource{}
	}
	if err := src.Open(uri); err != nil {
		return nil, err
	}
	if s.SourceSkipSeconds > 0 {
		if err := skipSeconds(src, s); err != nil {
			src.Close()
			return nil, err
		}
	}
	return src, nil
}

// skipSeconds advances src past the byte count corresponding to
// s.SourceSkipSeconds seconds of samples, rounding up to whole frames for
// framed sources (original_source/src/FileSource.cpp's skip computation).
func skipSeconds(src Source, s *config.Settings) error {
	sampleBytes := s.RawBytesPerChannelSample * s.SamplingFreq * float64(s.SourceSkipSeconds)
	toSkip := int64(sampleBytes)
	if toSkip <= 0 {
		return nil
	}
	if fs, ok := src.(*framedFileSource); ok {
		// Read strips headers, so discard counts payload bytes only.
		frames := (toSkip + int64(fs.geom.payloadBytes) - 1) / int64(fs.geom.payloadBytes)
		toSkip = frames * int64(fs.geom.payloadBytes)
	}
	return discard(src, toSkip)
}

// discard reads and throws away exactly n bytes via a scratch Buffer,
// since Source exposes no seek primitive of its own (framed sources must
// still walk frame boundaries to strip headers correctly).
func discard(src Source, n int64) error {
	const maxChunk = int64(1 << 16)
	for n > 0 {
		want := maxChunk
		if want > n {
			want = n
		}
		scratch := buffer.New(int(want))
		got, err := src.Read(scratch)
		if err != nil && err != io.EOF {
			return fmt.Errorf("source: skip-seconds discard: %w", err)
		}
		if got == 0 {
			return nil
		}
		n -= int64(got)
	}
	return nil
}
