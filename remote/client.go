package remote

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/c35s/hydra/uapi"
)

// Conn is a client connection to a Server. It implements the hydra
// transport, including the DMA command.
type Conn struct {
	mu     sync.Mutex
	c      net.Conn
	r      *bufio.Reader
	closed bool
}

// NewConn returns a client that speaks the protocol over c.
func NewConn(c net.Conn) *Conn {
	return &Conn{
		c: c,
		r: bufio.NewReaderSize(c, sizeofResponse),
	}
}

func (c *Conn) Info() (uapi.Info, error) {
	res, err := c.call(request{Op: opInfo})
	return res.Info, err
}

func (c *Conn) Read32(off uint32) (uint32, error) {
	res, err := c.call(request{Op: opRead32, Offset: off})
	return res.Value, err
}

func (c *Conn) Write32(off, v uint32) error {
	_, err := c.call(request{Op: opWrite32, Offset: off, Value: v})
	return err
}

func (c *Conn) SubmitDMA(req uapi.DMARequest) error {
	_, err := c.call(request{
		Op:    opDMA,
		Value: req.Len,
		Flags: req.Flags,
		Src:   req.Src,
		Dst:   req.Dst,
	})

	return err
}

// ReadBAR1 reads a word from the device's secondary window.
func (c *Conn) ReadBAR1(off uint32) (uint32, error) {
	res, err := c.call(request{Op: opReadBAR1, Offset: off})
	return res.Value, err
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.c.Close()
}

// call sends req and waits for its response. A broken connection makes
// the device unavailable.
func (c *Conn) call(req request) (response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return response{}, uapi.ErrDeviceUnavailable
	}

	buf := make([]byte, 0, sizeofRequest)
	buf, err := binary.Append(buf, le, &req)
	if err != nil {
		return response{}, err
	}

	if _, err := c.c.Write(buf); err != nil {
		return response{}, fmt.Errorf("%w: %w", uapi.ErrDeviceUnavailable, err)
	}

	var res response
	if err := binary.Read(c.r, le, &res); err != nil {
		return response{}, fmt.Errorf("%w: %w", uapi.ErrDeviceUnavailable, err)
	}

	if err := errorOf(res.Status); err != nil {
		return response{}, err
	}

	return res, nil
}
