package sink

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestBinaryWriteLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	b, err := NewBinary(path)
	if err != nil {
		t.Fatal(err)
	}
	spectra := [][]complex128{{1, 2, 3}}
	n, err := b.Write(spectra)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 12 {
		t.Fatalf("len(data) = %d, want 12", len(data))
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	if v != 1 {
		t.Fatalf("first word = %v, want 1", v)
	}
}

func TestTeeReturnsMax(t *testing.T) {
	d1 := filepath.Join(t.TempDir(), "a.bin")
	d2 := filepath.Join(t.TempDir(), "b.bin")
	b1, _ := NewBinary(d1)
	b2, _ := NewBinary(d2)
	tee := NewTee(b1, b2)
	defer tee.Close()

	n, err := tee.Write([][]complex128{{1}, {2}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
}

func TestXPolBinaryWritesImaginaryPart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xpol.bin")
	x, err := NewXPolBinary(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := x.Write([][]complex128{{complex(1, 2)}}); err != nil {
		t.Fatal(err)
	}
	if err := x.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 8 {
		t.Fatalf("len(data) = %d, want 8", len(data))
	}
	re := math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	im := math.Float32frombits(binary.LittleEndian.Uint32(data[4:8]))
	if re != 1 || im != 2 {
		t.Fatalf("(re,im) = (%v,%v), want (1,2)", re, im)
	}
}

func TestASCIIWritesXPolPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	a, err := NewASCII(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Write([][]complex128{{complex(1, 2)}}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "1 2\n" {
		t.Fatalf("data = %q, want %q", data, "1 2\n")
	}
}
