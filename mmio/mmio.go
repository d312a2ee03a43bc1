// Package mmio implements byte-addressable register windows.
package mmio

import (
	"encoding/binary"
	"io"
)

// Window is a byte-addressable register window.
// Load32 and Store32 access a little-endian word at off and panic if the
// word doesn't fit in the window. Callers validate offsets first.
type Window interface {
	Size() int
	Load32(off int) uint32
	Store32(off int, v uint32)
	io.ReaderAt
	io.WriterAt
}

var le = binary.LittleEndian

// Memory is a window backed by ordinary memory.
type Memory []byte

// NewMemory returns a zeroed window of size bytes.
func NewMemory(size int) Memory {
	return make(Memory, size)
}

func (m Memory) Size() int { return len(m) }

func (m Memory) Load32(off int) uint32 {
	return le.Uint32(m[off : off+4])
}

func (m Memory) Store32(off int, v uint32) {
	le.PutUint32(m[off:off+4], v)
}

func (m Memory) ReadAt(p []byte, off int64) (n int, err error) {
	return rangeAt(m, p, off, false)
}

func (m Memory) WriteAt(p []byte, off int64) (n int, err error) {
	return rangeAt(m, p, off, true)
}

func rangeAt(b []byte, p []byte, off int64, isWrite bool) (int, error) {
	if off < 0 || off > int64(len(b)) {
		return 0, io.EOF
	}

	var n int
	if isWrite {
		n = copy(b[off:], p)
	} else {
		n = copy(p, b[off:])
	}

	if n < len(p) {
		if isWrite {
			return n, io.ErrShortWrite
		}

		return n, io.EOF
	}

	return n, nil
}

// Absent is a window with no backing memory.
// Reads return zero and writes are discarded, like a BAR the device
// doesn't implement.
type Absent struct{}

func (Absent) Size() int { return 0 }

func (Absent) Load32(int) uint32 { return 0 }

func (Absent) Store32(int, uint32) {}

func (Absent) ReadAt(p []byte, _ int64) (int, error) {
	clear(p)
	return len(p), nil
}

func (Absent) WriteAt(p []byte, _ int64) (int, error) {
	return len(p), nil
}
