package source

import (
	"fmt"
	"io"
	"os"

	"github.com/cwsl/swspectrometer/internal/buffer"
)

// plainFileSource serves unframed formats (RawSigned/RawUnsigned) and the
// data-replacement formats (VLBA/MKIV/Mk5B), which are byte-for-byte
// passthrough at the Source layer: header-bit replacement is handled
// entirely by internal/unpack's external-decoder wrapper, not here
// (original_source/src/FileSource.cpp's "Formats without headers or with
// headers that overwrite data" branch).
type plainFileSource struct {
	f   *os.File
	eof bool
}

func (p *plainFileSource) Open(uri string) error {
	f, err := os.Open(uri)
	if err != nil {
		return fmt.Errorf("source: open %q: %w", uri, err)
	}
	p.f = f
	return nil
}

func (p *plainFileSource) Read(buf *buffer.Buffer) (int, error) {
	if p.f == nil {
		return 0, fmt.Errorf("source: Read called before Open")
	}
	if p.eof {
		buf.SetLength(0)
		return 0, io.EOF
	}
	n, err := io.ReadFull(p.f, buf.Raw())
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		p.eof = true
		err = nil
	}
	buf.SetLength(n)
	if p.eof {
		return n, io.EOF
	}
	return n, err
}

func (p *plainFileSource) EOF() bool { return p.eof }

func (p *plainFileSource) Close() error {
	if p.f == nil {
		return nil
	}
	return p.f.Close()
}

// framedFileSource serves Mark5B/VDIF/iBOB: fixed-size frames of
// (headerBytes + payloadBytes), with the header bytes consumed and
// discarded so Read only ever returns payload bytes to the caller
// (original_source/src/FileSource.cpp's frame-boundary loop).
type framedFileSource struct {
	f    *os.File
	geom frameGeometry
	eof  bool

	// bytes remaining in the current frame's payload before the next
	// header must be consumed.
	payloadLeft int
}

func (fs *framedFileSource) Open(uri string) error {
	f, err := os.Open(uri)
	if err != nil {
		return fmt.Errorf("source: open %q: %w", uri, err)
	}
	fs.f = f
	return nil
}

func (fs *framedFileSource) consumeHeader() error {
	hdr := make([]byte, fs.geom.headerBytes)
	if _, err := io.ReadFull(fs.f, hdr); err != nil {
		return err
	}
	fs.payloadLeft = fs.geom.payloadBytes
	return nil
}

func (fs *framedFileSource) Read(buf *buffer.Buffer) (int, error) {
	if fs.f == nil {
		return 0, fmt.Errorf("source: Read called before Open")
	}
	if fs.eof {
		buf.SetLength(0)
		return 0, io.EOF
	}

	dst := buf.Raw()
	total := 0
	for total < len(dst) {
		if fs.payloadLeft == 0 {
			if err := fs.consumeHeader(); err != nil {
				fs.eof = true
				break
			}
		}
		want := len(dst) - total
		if want > fs.payloadLeft {
			want = fs.payloadLeft
		}
		n, err := io.ReadFull(fs.f, dst[total:total+want])
		total += n
		fs.payloadLeft -= n
		if err != nil {
			fs.eof = true
			break
		}
	}
	buf.SetLength(total)
	if fs.eof {
		return total, io.EOF
	}
	return total, nil
}

func (fs *framedFileSource) EOF() bool { return fs.eof }

func (fs *framedFileSource) Close() error {
	if fs.f == nil {
		return nil
	}
	return fs.f.Close()
}
