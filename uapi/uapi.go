// Package uapi defines the Hydra register map and the control interface
// shared by the driver, the client library, and the remote protocol.
package uapi

import (
	"errors"
	"fmt"
)

// Info describes an opened Hydra function, including the secondary window.
type Info struct {
	Vendor    uint32
	Device    uint32
	IRQ       int32
	_         uint32
	BAR0Start uint64
	BAR0Len   uint64
	BAR1Start uint64
	BAR1Len   uint64
	IRQCount  uint64 // interrupts delivered since open
}

// DriverInfo has the same layout as the Linux driver's struct hydra_info,
// which doesn't report BAR1.
type DriverInfo struct {
	Vendor    uint32
	Device    uint32
	IRQ       int32
	_         uint32
	BAR0Start uint64
	BAR0Len   uint64
	IRQCount  uint64
}

// Info returns d as an Info with an absent BAR1.
func (d DriverInfo) Info() Info {
	return Info{
		Vendor:    d.Vendor,
		Device:    d.Device,
		IRQ:       d.IRQ,
		BAR0Start: d.BAR0Start,
		BAR0Len:   d.BAR0Len,
		IRQCount:  d.IRQCount,
	}
}

// RegRW has the same layout as the C struct hydra_reg_rw.
type RegRW struct {
	Offset uint32
	Value  uint32
}

// DMARequest has the same layout as the C struct hydra_dma_req.
type DMARequest struct {
	Src   uint64
	Dst   uint64
	Len   uint32
	Flags uint32 // reserved, must be zero
}

var (
	ErrInvalidOffset     = errors.New("hydra: invalid register offset")
	ErrInvalidLength     = errors.New("hydra: invalid length")
	ErrDeviceUnavailable = errors.New("hydra: device unavailable")
	ErrTimeout           = errors.New("hydra: timed out")
	ErrDMA               = errors.New("hydra: DMA error")
)

// CheckAccess validates a 32-bit access at off in a window of size bytes.
// The offset must be 4-byte aligned and the access must fit in the window.
func CheckAccess(off uint32, size uint64) error {
	if off&3 != 0 {
		return fmt.Errorf("%w: %#x is not 4-byte aligned", ErrInvalidOffset, off)
	}

	if uint64(off)+4 > size {
		return fmt.Errorf("%w: %#x is outside the %#x byte window", ErrInvalidOffset, off, size)
	}

	return nil
}

// ValidateDMA checks that req is non-empty and that both its source and
// destination ranges fit in a window of size bytes.
func ValidateDMA(req DMARequest, size uint64) error {
	if req.Len == 0 {
		return fmt.Errorf("%w: zero-length DMA", ErrInvalidLength)
	}

	n := uint64(req.Len)

	if req.Src >= size || n > size-req.Src {
		return fmt.Errorf("%w: DMA source %#x+%#x is outside the %#x byte window", ErrInvalidOffset, req.Src, n, size)
	}

	if req.Dst >= size || n > size-req.Dst {
		return fmt.Errorf("%w: DMA destination %#x+%#x is outside the %#x byte window", ErrInvalidOffset, req.Dst, n, size)
	}

	return nil
}

// ClearOnWrite returns the value of a write-one-to-clear register holding
// old after v is written to it.
func ClearOnWrite(old, v uint32) uint32 {
	return old &^ v
}
