package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwsl/swspectrometer/internal/buffer"
	"github.com/cwsl/swspectrometer/internal/config"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source_test.dat")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlainFileSourceReadsAllBytes(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}
	path := writeTempFile(t, data)

	src := &plainFileSource{}
	if err := src.Open(path); err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	buf := buffer.New(400)
	total := 0
	for {
		n, err := src.Read(buf)
		total += n
		if err != nil {
			break
		}
	}
	if total != len(data) {
		t.Fatalf("total = %d, want %d", total, len(data))
	}
	if !src.EOF() {
		t.Fatal("expected EOF after reading the whole file")
	}
}

func TestFramedFileSourceStripsHeaders(t *testing.T) {
	geom := frameGeometry{headerBytes: 4, payloadBytes: 8}
	var data []byte
	for frame := 0; frame < 3; frame++ {
		data = append(data, 0xFF, 0xFF, 0xFF, 0xFF) // header
		payload := make([]byte, geom.payloadBytes)
		for i := range payload {
			payload[i] = byte(frame)
		}
		data = append(data, payload...)
	}
	path := writeTempFile(t, data)

	src := &framedFileSource{geom: geom}
	if err := src.Open(path); err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	buf := buffer.New(24) // 3 frames' worth of payload
	n, _ := src.Read(buf)
	if n != 24 {
		t.Fatalf("n = %d, want 24", n)
	}
	got := buf.Bytes()
	for i := 0; i < 8; i++ {
		if got[i] != 0 {
			t.Fatalf("frame 0 payload[%d] = %d, want 0", i, got[i])
		}
	}
	for i := 8; i < 16; i++ {
		if got[i] != 1 {
			t.Fatalf("frame 1 payload[%d] = %d, want 1", i, got[i])
		}
	}
}

func TestOpenDispatchesByFormat(t *testing.T) {
	path := writeTempFile(t, make([]byte, 64))
	s := &config.Settings{SourceFormat: config.FormatRawSigned}
	src, err := Open(s, path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	if _, ok := src.(*plainFileSource); !ok {
		t.Fatalf("got %T, want *plainFileSource", src)
	}
}

func TestOpenDispatchesRTPByURIScheme(t *testing.T) {
	s := &config.Settings{SourceFormat: config.FormatRawSigned}
	// Port 0 asks the OS for an ephemeral port so the test never collides
	// with a real listener; loopback is not a multicast group so Open
	// must fail at JoinGroup, but dispatch must still have picked RTPSource.
	_, err := Open(s, "rtp://127.0.0.1:0")
	if err == nil {
		t.Fatal("expected an error joining a non-multicast address")
	}
	// Only the RTP branch of Open wraps ErrSourceOpenFailed; a file open of
	// the same string would fail with a plain os error instead.
	if !errors.Is(err, config.ErrSourceOpenFailed) {
		t.Fatalf("err = %v, want ErrSourceOpenFailed from the RTP branch", err)
	}
}
