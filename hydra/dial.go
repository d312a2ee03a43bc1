package hydra

import (
	"fmt"
	"strings"

	"github.com/c35s/hydra/device"
	"github.com/c35s/hydra/remote"
)

// Dial opens the device at addr and returns a client for it. The address
// forms are
//
//	/dev/NAME, ioctl:PATH   the driver's character device
//	bar:PATH                a PCI resource file mapped into the process
//	sim                     a new in-process emulated device
//	vsock:CID:PORT          a remote server (also unix:PATH and tcp:HOST:PORT)
//
// An empty address opens uapi.DevicePath.
func Dial(addr string, cfg Config) (*Client, error) {
	t, err := dialTransport(addr)
	if err != nil {
		return nil, err
	}

	c, err := New(t, cfg)
	if err != nil {
		t.Close()
		return nil, err
	}

	return c, nil
}

func dialTransport(addr string) (Transport, error) {
	switch {
	case addr == "" || strings.HasPrefix(addr, "/"):
		return ioctlTransport(addr)

	case strings.HasPrefix(addr, "ioctl:"):
		return ioctlTransport(strings.TrimPrefix(addr, "ioctl:"))

	case strings.HasPrefix(addr, "bar:"):
		m, err := OpenBAR(strings.TrimPrefix(addr, "bar:"))
		if err != nil {
			return nil, err
		}

		return m, nil

	case addr == "sim":
		d, err := device.New(device.Config{})
		if err != nil {
			return nil, err
		}

		return d, nil

	case remote.IsAddress(addr):
		c, err := remote.Dial(addr)
		if err != nil {
			return nil, err
		}

		return c, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrAddress, addr)
	}
}

func ioctlTransport(path string) (Transport, error) {
	d, err := OpenIoctl(path)
	if err != nil {
		return nil, err
	}

	return d, nil
}
