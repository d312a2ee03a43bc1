//go:build !linux

package hydra

import (
	"fmt"

	"github.com/c35s/hydra/uapi"
)

// Ioctl is a transport over the driver's character device.
// It's only available on Linux.
type Ioctl struct{}

func OpenIoctl(path string) (*Ioctl, error) {
	return nil, fmt.Errorf("%w: no ioctl interface on this OS", uapi.ErrDeviceUnavailable)
}

func OpenBAR(path string) (*Mapped, error) {
	return nil, fmt.Errorf("%w: no BAR mapping on this OS", uapi.ErrDeviceUnavailable)
}

func (*Ioctl) Info() (uapi.Info, error)            { return uapi.Info{}, uapi.ErrDeviceUnavailable }
func (*Ioctl) Read32(uint32) (uint32, error)       { return 0, uapi.ErrDeviceUnavailable }
func (*Ioctl) Write32(uint32, uint32) error        { return uapi.ErrDeviceUnavailable }
func (*Ioctl) SubmitDMA(req uapi.DMARequest) error { return uapi.ErrDeviceUnavailable }
func (*Ioctl) Close() error                        { return nil }
