// Package buffer implements the aligned byte region shared by sources,
// workers and sinks throughout the pipeline.
package buffer

import "unsafe"

// Buffer is a contiguous region of memory with a fixed capacity
// (Allocated) and a mutable valid-length (Length <= Allocated). Writers
// set Length after filling the region; readers trust Length, not
// cap(data). A Buffer is owned by exactly one component at any instant;
// ownership transfers happen out of band (worker mutex, channel handoff).
type Buffer struct {
	data      []byte
	allocated int
	length    int
}

// New allocates a Buffer of the given size whose first byte is 128-byte
// aligned. The size itself is used as given: neither New nor the
// derivation of config.Settings.RawBufSize rounds it to a multiple of 128.
func New(size int) *Buffer {
	raw := make([]byte, size+128)
	off := int((128 - uintptr(unsafe.Pointer(&raw[0]))%128) % 128)
	return &Buffer{
		data:      raw[off : off+size : off+size],
		allocated: size,
	}
}

// Allocated returns the immutable capacity of the buffer in bytes.
func (b *Buffer) Allocated() int { return b.allocated }

// Length returns the current valid byte count.
func (b *Buffer) Length() int { return b.length }

// SetLength sets the valid byte count. Panics if n is out of range, since
// every caller in this pipeline computes n from its own accounting and a
// bad value means a logic error upstream, not bad input.
func (b *Buffer) SetLength(n int) {
	if n < 0 || n > b.allocated {
		panic("buffer: length out of range")
	}
	b.length = n
}

// Bytes returns the valid region (Raw[:Length]).
func (b *Buffer) Bytes() []byte { return b.data[:b.length] }

// Raw returns the full allocated region regardless of Length, for callers
// (Source.Read) that fill before setting Length.
func (b *Buffer) Raw() []byte { return b.data }

// Reset zeroes the buffer's contents without touching Length; callers that
// also want Length cleared call SetLength(0) themselves.
func (b *Buffer) Reset() {
	for i := range b.data {
		b.data[i] = 0
	}
}
