// Package sink implements the output writers of spec.md §4.6: Binary
// (contiguous little-endian float32), ASCII (one bin per line), Tee
// (fan-out), and the SPEC_FULL addition of a zstd-compressed binary sink
// via github.com/klauspost/compress, grounded on the teacher's use of that
// module for its own compressed WAV archival (audio_extensions).
package sink

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Sink accepts one fully-formed spectrum (or batch of spectra from a
// single packing-regime worker run) of complex128 SSB bins and writes it
// out. Write returns the number of spectra actually written.
type Sink interface {
	Write(spectra [][]complex128) (int, error)
	Close() error
}

// Binary writes raw little-endian float32 words contiguously: for each
// spectrum, Re(bin0), Re(bin1), ... Re(binN) (auto-spectra are already
// real-valued by construction; xpol spectra write Re,Im pairs via
// WriteXPol instead).
type Binary struct {
	w   io.WriteCloser
	buf *bufio.Writer
}

// NewBinary opens path for the auto-spectrum binary sink.
func NewBinary(path string) (*Binary, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: create %q: %w", path, err)
	}
	return &Binary{w: f, buf: bufio.NewWriter(f)}, nil
}

func (b *Binary) Write(spectra [][]complex128) (int, error) {
	for _, spec := range spectra {
		for _, c := range spec {
			if err := writeFloat32(b.buf, real(c)); err != nil {
				return 0, err
			}
		}
	}
	return len(spectra), nil
}

// WriteXPol writes (re,im) float32 pairs per bin, spec.md §6's
// `_xpol_swspec.bin` layout.
func (b *Binary) WriteXPol(spectra [][]complex128) (int, error) {
	for _, spec := range spectra {
		for _, c := range spec {
			if err := writeFloat32(b.buf, real(c)); err != nil {
				return 0, err
			}
			if err := writeFloat32(b.buf, imag(c)); err != nil {
				return 0, err
			}
		}
	}
	return len(spectra), nil
}

func (b *Binary) Close() error {
	if err := b.buf.Flush(); err != nil {
		return err
	}
	return b.w.Close()
}

// XPolBinary adapts Binary to the Sink interface's Write method for
// cross-pol and PCal output, where every bin must keep its imaginary part.
type XPolBinary struct {
	*Binary
}

// NewXPolBinary opens path for the cross-pol or PCal binary sink.
func NewXPolBinary(path string) (*XPolBinary, error) {
	b, err := NewBinary(path)
	if err != nil {
		return nil, err
	}
	return &XPolBinary{Binary: b}, nil
}

func (x *XPolBinary) Write(spectra [][]complex128) (int, error) {
	return x.Binary.WriteXPol(spectra)
}

func writeFloat32(w io.Writer, v float64) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
	_, err := w.Write(buf[:])
	return err
}

// ASCII writes one bin per line, Nyquist appended at the end of each
// spectrum's line run (spec.md §4.6).
type ASCII struct {
	w   io.WriteCloser
	buf *bufio.Writer
}

// NewASCII opens path for the ASCII sink.
func NewASCII(path string) (*ASCII, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: create %q: %w", path, err)
	}
	return &ASCII{w: f, buf: bufio.NewWriter(f)}, nil
}

func (a *ASCII) Write(spectra [][]complex128) (int, error) {
	for _, spec := range spectra {
		for _, c := range spec {
			if imag(c) == 0 {
				if _, err := fmt.Fprintf(a.buf, "%g\n", real(c)); err != nil {
					return 0, err
				}
			} else {
				if _, err := fmt.Fprintf(a.buf, "%g %g\n", real(c), imag(c)); err != nil {
					return 0, err
				}
			}
		}
	}
	return len(spectra), nil
}

func (a *ASCII) Close() error {
	if err := a.buf.Flush(); err != nil {
		return err
	}
	return a.w.Close()
}

// Tee fans out to several sinks; Write returns the maximum of its
// children's return values (spec.md §4.6).
type Tee struct {
	children []Sink
}

// NewTee builds a fan-out sink over children.
func NewTee(children ...Sink) *Tee { return &Tee{children: children} }

func (t *Tee) Write(spectra [][]complex128) (int, error) {
	max := 0
	for _, c := range t.children {
		n, err := c.Write(spectra)
		if err != nil {
			return max, err
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (t *Tee) Close() error {
	var firstErr error
	for _, c := range t.children {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CompressedBinary wraps Binary's byte layout in a zstd stream (SPEC_FULL
// domain addition; not named by spec.md, exercises
// github.com/klauspost/compress for long unattended integrations where
// raw float32 swspec files would otherwise be large).
type CompressedBinary struct {
	f   *os.File
	zw  *zstd.Encoder
	buf *bufio.Writer
}

// NewCompressedBinary opens path and wraps it in a zstd encoder.
func NewCompressedBinary(path string) (*CompressedBinary, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: create %q: %w", path, err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sink: zstd writer: %w", err)
	}
	return &CompressedBinary{f: f, zw: zw, buf: bufio.NewWriter(zw)}, nil
}

func (c *CompressedBinary) Write(spectra [][]complex128) (int, error) {
	for _, spec := range spectra {
		for _, v := range spec {
			if err := writeFloat32(c.buf, real(v)); err != nil {
				return 0, err
			}
		}
	}
	return len(spectra), nil
}

func (c *CompressedBinary) Close() error {
	if err := c.buf.Flush(); err != nil {
		return err
	}
	if err := c.zw.Close(); err != nil {
		return err
	}
	return c.f.Close()
}
