//go:build linux

package hydra

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/c35s/hydra/mmio"
	"github.com/c35s/hydra/uapi"
	"golang.org/x/sys/unix"
)

// Ioctl is a transport over the driver's character device.
// The driver validates every access and executes DMA requests itself.
type Ioctl struct {
	mu sync.Mutex
	f  *os.File
}

// OpenIoctl opens the character device at path.
// If path is empty, uapi.DevicePath is used.
func OpenIoctl(path string) (*Ioctl, error) {
	if path == "" {
		path = uapi.DevicePath
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENODEV) || errors.Is(err, unix.ENXIO) {
			return nil, fmt.Errorf("%w: %w", uapi.ErrDeviceUnavailable, err)
		}

		return nil, err
	}

	return &Ioctl{f: f}, nil
}

// OpenBAR maps the PCI resource file at path, for example
// /sys/bus/pci/devices/0000:01:00.0/resource0, and returns a transport
// that accesses it directly.
func OpenBAR(path string) (*Mapped, error) {
	m, err := mmio.Map(path, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", uapi.ErrDeviceUnavailable, err)
	}

	return NewMapped(m), nil
}

func (d *Ioctl) Info() (uapi.Info, error) {
	var info uapi.DriverInfo
	if err := d.ioctl(uapi.IoctlInfo, unsafe.Pointer(&info)); err != nil {
		return uapi.Info{}, err
	}

	return info.Info(), nil
}

func (d *Ioctl) Read32(off uint32) (uint32, error) {
	rw := uapi.RegRW{Offset: off}
	if err := d.ioctl(uapi.IoctlRd32, unsafe.Pointer(&rw)); err != nil {
		return 0, err
	}

	return rw.Value, nil
}

func (d *Ioctl) Write32(off, v uint32) error {
	rw := uapi.RegRW{Offset: off, Value: v}
	return d.ioctl(uapi.IoctlWr32, unsafe.Pointer(&rw))
}

func (d *Ioctl) SubmitDMA(req uapi.DMARequest) error {
	return d.ioctl(uapi.IoctlDMA, unsafe.Pointer(&req))
}

func (d *Ioctl) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return nil
	}

	err := d.f.Close()
	d.f = nil

	return err
}

func (d *Ioctl) ioctl(req uintptr, arg unsafe.Pointer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return uapi.ErrDeviceUnavailable
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errnoErr(errno)
	}

	return nil
}

// errnoErr maps a driver errno onto the protocol's errors.
func errnoErr(errno unix.Errno) error {
	switch errno {
	case unix.EINVAL:
		return fmt.Errorf("%w: %w", uapi.ErrInvalidOffset, errno)

	case unix.ENODEV, unix.ENXIO:
		return fmt.Errorf("%w: %w", uapi.ErrDeviceUnavailable, errno)

	case unix.ETIMEDOUT:
		return fmt.Errorf("%w: %w", uapi.ErrTimeout, errno)

	default:
		return errno
	}
}
