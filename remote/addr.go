package remote

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/mdlayher/vsock"
)

// Listen listens on addr, which is one of
//
//	vsock:PORT or vsock:CID:PORT
//	unix:PATH
//	tcp:HOST:PORT
func Listen(addr string) (net.Listener, error) {
	network, rest, err := split(addr)
	if err != nil {
		return nil, err
	}

	switch network {
	case "vsock":
		cid, port, err := vsockAddr(rest, true)
		if err != nil {
			return nil, err
		}

		var l *vsock.Listener
		if cid == nil {
			l, err = vsock.Listen(port, nil)
		} else {
			l, err = vsock.ListenContextID(*cid, port, nil)
		}

		if err != nil {
			return nil, err
		}

		return l, nil

	default:
		return net.Listen(network, rest)
	}
}

// Dial connects to a server at addr. See Listen for the address forms;
// vsock addresses need a CID.
func Dial(addr string) (*Conn, error) {
	network, rest, err := split(addr)
	if err != nil {
		return nil, err
	}

	var c net.Conn

	switch network {
	case "vsock":
		cid, port, err := vsockAddr(rest, false)
		if err != nil {
			return nil, err
		}

		vc, err := vsock.Dial(*cid, port, nil)
		if err != nil {
			return nil, err
		}

		c = vc

	default:
		c, err = net.Dial(network, rest)
		if err != nil {
			return nil, err
		}
	}

	return NewConn(c), nil
}

// IsAddress reports whether addr names a remote server.
func IsAddress(addr string) bool {
	_, _, err := split(addr)
	return err == nil
}

func split(addr string) (network, rest string, err error) {
	network, rest, ok := strings.Cut(addr, ":")
	if !ok || rest == "" {
		return "", "", fmt.Errorf("%w: %q", ErrAddress, addr)
	}

	switch network {
	case "vsock", "unix", "tcp":
		return network, rest, nil

	default:
		return "", "", fmt.Errorf("%w: unknown network in %q", ErrAddress, addr)
	}
}

// vsockAddr parses CID:PORT or, if the CID is optional, PORT and :PORT.
func vsockAddr(s string, optionalCID bool) (cid *uint32, port uint32, err error) {
	cs, ps, ok := strings.Cut(s, ":")
	if !ok {
		cs, ps = "", s
	}

	p, err := strconv.ParseUint(ps, 10, 32)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: vsock port %q: %w", ErrAddress, ps, err)
	}

	if cs == "" {
		if !optionalCID {
			return nil, 0, fmt.Errorf("%w: vsock address %q needs a CID", ErrAddress, s)
		}

		return nil, uint32(p), nil
	}

	c, err := strconv.ParseUint(cs, 10, 32)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: vsock CID %q: %w", ErrAddress, cs, err)
	}

	c32 := uint32(c)
	return &c32, uint32(p), nil
}
