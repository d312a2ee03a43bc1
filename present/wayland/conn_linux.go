package wayland

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const displayID = 1

// Requests and events of wl_display.
const (
	displaySync        = 0
	displayGetRegistry = 1

	displayError    = 0
	displayDeleteID = 1
)

type handler func(op uint16, a *args) error

// conn is a client connection to a compositor.
type conn struct {
	c        *net.UnixConn
	last     uint32
	rbuf     []byte
	n        int
	handlers map[uint32]handler
}

func socketPath() (string, error) {
	d := os.Getenv("WAYLAND_DISPLAY")
	if d == "" {
		d = "wayland-0"
	}

	if filepath.IsAbs(d) {
		return d, nil
	}

	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", errors.New("wayland: XDG_RUNTIME_DIR is not set")
	}

	return filepath.Join(dir, d), nil
}

func dial() (*conn, error) {
	path, err := socketPath()
	if err != nil {
		return nil, err
	}

	c, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}

	wc := conn{
		c:        c,
		last:     displayID,
		rbuf:     make([]byte, 4096),
		handlers: map[uint32]handler{},
	}

	wc.handlers[displayID] = wc.displayEvent
	return &wc, nil
}

func (c *conn) newID() uint32 {
	c.last++
	return c.last
}

func (c *conn) handle(id uint32, h handler) {
	c.handlers[id] = h
}

func (c *conn) send(r *request) error {
	var oob []byte
	if len(r.fds) > 0 {
		oob = unix.UnixRights(r.fds...)
	}

	if _, _, err := c.c.WriteMsgUnix(r.bytes(), oob, nil); err != nil {
		return fmt.Errorf("wayland: send: %w", err)
	}

	return nil
}

// sendAll sends rs in order, stopping at the first error.
func (c *conn) sendAll(rs ...*request) error {
	for _, r := range rs {
		if err := c.send(r); err != nil {
			return err
		}
	}

	return nil
}

// read reads what the compositor has sent and dispatches whole messages.
// If wait is false, read returns immediately when nothing is pending.
func (c *conn) read(wait bool, deadline time.Time) error {
	if !wait {
		deadline = time.Now()
	}

	if err := c.c.SetReadDeadline(deadline); err != nil {
		return err
	}

	if c.n == len(c.rbuf) {
		c.rbuf = append(c.rbuf, make([]byte, len(c.rbuf))...)
	}

	n, err := c.c.Read(c.rbuf[c.n:])
	c.n += n

	if err != nil {
		if !wait && errors.Is(err, os.ErrDeadlineExceeded) {
			return nil
		}

		return fmt.Errorf("wayland: read: %w", err)
	}

	return c.dispatch()
}

func (c *conn) dispatch() error {
	off := 0
	defer func() {
		c.n = copy(c.rbuf, c.rbuf[off:c.n])
	}()

	for {
		ev, n, err := parseEvent(c.rbuf[off:c.n])
		if err != nil || n == 0 {
			return err
		}

		off += n

		h, ok := c.handlers[ev.obj]
		if !ok {
			continue
		}

		a := args{b: ev.args}
		if err := h(ev.op, &a); err != nil {
			return err
		}

		if a.err != nil {
			return a.err
		}
	}
}

// roundtrip waits until the compositor has handled every request sent so far.
func (c *conn) roundtrip(timeout time.Duration) error {
	id := c.newID()
	done := false

	c.handle(id, func(uint16, *args) error {
		done = true
		return nil
	})

	defer delete(c.handlers, id)

	if err := c.send(newRequest(displayID, displaySync).u32(id)); err != nil {
		return err
	}

	return c.until(&done, timeout)
}

// until reads until *cond is true or the timeout expires.
func (c *conn) until(cond *bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for !*cond {
		if err := c.read(true, deadline); err != nil {
			return err
		}
	}

	return nil
}

func (c *conn) displayEvent(op uint16, a *args) error {
	switch op {
	case displayError:
		obj, code, msg := a.u32(), a.u32(), a.str()
		return fmt.Errorf("%w: object %d code %d: %s", errProtocol, obj, code, msg)

	case displayDeleteID:
		delete(c.handlers, a.u32())
	}

	return nil
}

func (c *conn) Close() error {
	return c.c.Close()
}
