package buffer

import "testing"

func TestNewZeroed(t *testing.T) {
	b := New(256)
	if b.Allocated() != 256 {
		t.Fatalf("Allocated() = %d, want 256", b.Allocated())
	}
	if b.Length() != 0 {
		t.Fatalf("Length() = %d, want 0", b.Length())
	}
	for i, v := range b.Raw() {
		if v != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, v)
		}
	}
}

func TestSetLengthBounds(t *testing.T) {
	b := New(16)
	b.SetLength(16)
	if len(b.Bytes()) != 16 {
		t.Fatalf("Bytes() len = %d, want 16", len(b.Bytes()))
	}
	b.SetLength(0)
	if len(b.Bytes()) != 0 {
		t.Fatalf("Bytes() len = %d, want 0", len(b.Bytes()))
	}
}

func TestSetLengthPanicsOutOfRange(t *testing.T) {
	b := New(8)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range length")
		}
	}()
	b.SetLength(9)
}

func TestResetKeepsLength(t *testing.T) {
	b := New(4)
	b.SetLength(4)
	copy(b.Raw(), []byte{1, 2, 3, 4})
	b.Reset()
	if b.Length() != 4 {
		t.Fatalf("Reset changed Length to %d", b.Length())
	}
	for _, v := range b.Bytes() {
		if v != 0 {
			t.Fatalf("Reset did not zero contents")
		}
	}
}
