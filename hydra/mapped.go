package hydra

import (
	"io"
	"sync"

	"github.com/c35s/hydra/mmio"
	"github.com/c35s/hydra/uapi"
)

// Mapped is a transport that accesses a register window directly, like a
// BAR mapped into the process. The hardware behind the window implements
// the register semantics; Mapped only validates offsets.
// It has no DMA command, so clients poll for DMA completion.
type Mapped struct {
	w      mmio.Window
	closer io.Closer

	mu     sync.Mutex
	closed bool
}

// NewMapped returns a transport over w. If w is an io.Closer, Close
// closes it.
func NewMapped(w mmio.Window) *Mapped {
	m := Mapped{w: w}
	if c, ok := w.(io.Closer); ok {
		m.closer = c
	}

	return &m
}

// Info reports the identity from RegID and the window size.
// A mapped window doesn't know its IRQ or bus address.
func (m *Mapped) Info() (uapi.Info, error) {
	id, err := m.Read32(uapi.RegID)
	if err != nil {
		return uapi.Info{}, err
	}

	info := uapi.Info{
		Vendor:  id >> 16,
		Device:  id & 0xffff,
		IRQ:     -1,
		BAR0Len: uint64(m.w.Size()),
	}

	return info, nil
}

func (m *Mapped) Read32(off uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(off); err != nil {
		return 0, err
	}

	return m.w.Load32(int(off)), nil
}

func (m *Mapped) Write32(off, v uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(off); err != nil {
		return err
	}

	m.w.Store32(int(off), v)
	return nil
}

func (m *Mapped) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	if m.closer != nil {
		return m.closer.Close()
	}

	return nil
}

func (m *Mapped) check(off uint32) error {
	if m.closed {
		return uapi.ErrDeviceUnavailable
	}

	return uapi.CheckAccess(off, uint64(m.w.Size()))
}
