//go:build linux

package mmio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mapping is a window onto device memory mapped from a file, usually a PCI
// sysfs resource such as /sys/bus/pci/devices/0000:01:00.0/resource0.
// Every Load32 and Store32 is a single 32-bit bus access.
type Mapping struct {
	mem []byte
}

// Map maps size bytes of the file at path. If size is 0, the whole file
// is mapped.
func Map(path string, size int) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	if size == 0 {
		fi, err := f.Stat()
		if err != nil {
			return nil, err
		}

		size = int(fi.Size())
	}

	if size <= 0 || size%4 != 0 {
		return nil, fmt.Errorf("mmio: bad mapping size %d for %s", size, path)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmio: mmap %s: %w", path, err)
	}

	return &Mapping{mem: mem}, nil
}

func (m *Mapping) Size() int { return len(m.mem) }

func (m *Mapping) Load32(off int) uint32 {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], atomic.LoadUint32(m.word(off)))
	return le.Uint32(b[:])
}

func (m *Mapping) Store32(off int, v uint32) {
	var b [4]byte
	le.PutUint32(b[:], v)
	atomic.StoreUint32(m.word(off), binary.NativeEndian.Uint32(b[:]))
}

func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	return rangeAt(m.mem, p, off, false)
}

func (m *Mapping) WriteAt(p []byte, off int64) (int, error) {
	return rangeAt(m.mem, p, off, true)
}

// Close unmaps the window. It must not be used afterward.
func (m *Mapping) Close() error {
	if m.mem == nil {
		return nil
	}

	err := unix.Munmap(m.mem)
	m.mem = nil

	return err
}

func (m *Mapping) word(off int) *uint32 {
	_ = m.mem[off+3]
	return (*uint32)(unsafe.Pointer(&m.mem[off]))
}
