package remote_test

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/c35s/hydra/device"
	"github.com/c35s/hydra/remote"
	"github.com/c35s/hydra/uapi"
	"github.com/google/go-cmp/cmp"
)

// serve starts a server for d on a fresh unix socket and returns a
// connected client.
func serve(t *testing.T, d *device.Device) *remote.Conn {
	t.Helper()

	dir, err := os.MkdirTemp("", "hydra")
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { os.RemoveAll(dir) })

	addr := "unix:" + filepath.Join(dir, "sock")
	l, err := remote.Listen(addr)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		s := remote.Server{Device: d}
		done <- s.Serve(ctx, l)
	}()

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
	})

	c, err := remote.Dial(addr)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { c.Close() })

	return c
}

func TestRoundTrip(t *testing.T) {
	d, err := device.New(device.Config{IRQ: 9, BAR0Start: 0xe0000000})
	if err != nil {
		t.Fatal(err)
	}

	c := serve(t, d)

	got, err := c.Info()
	if err != nil {
		t.Fatal(err)
	}

	want, err := d.Info()
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("info differs: %s", diff)
	}

	if err := c.Write32(0x1000, 0xfeedface); err != nil {
		t.Fatal(err)
	}

	if err := c.SubmitDMA(uapi.DMARequest{Src: 0x1000, Dst: 0x3000, Len: 4}); err != nil {
		t.Fatal(err)
	}

	v, err := c.Read32(0x3000)
	if err != nil {
		t.Fatal(err)
	}

	if v != 0xfeedface {
		t.Fatalf("DMA destination %#x", v)
	}

	if v, err := c.ReadBAR1(0x40); err != nil || v != 0 {
		t.Fatalf("absent BAR1: %#x, %v", v, err)
	}
}

func TestRemoteErrors(t *testing.T) {
	d, err := device.New(device.Config{})
	if err != nil {
		t.Fatal(err)
	}

	c := serve(t, d)

	if _, err := c.Read32(2); !errors.Is(err, uapi.ErrInvalidOffset) {
		t.Errorf("misaligned read: error isn't ErrInvalidOffset: %v", err)
	}

	if err := c.Write32(uapi.BAR0Size, 0); !errors.Is(err, uapi.ErrInvalidOffset) {
		t.Errorf("out of range write: error isn't ErrInvalidOffset: %v", err)
	}

	if err := c.SubmitDMA(uapi.DMARequest{Src: 4}); !errors.Is(err, uapi.ErrInvalidLength) {
		t.Errorf("zero-length DMA: error isn't ErrInvalidLength: %v", err)
	}

	d.Close()

	if _, err := c.Info(); !errors.Is(err, uapi.ErrDeviceUnavailable) {
		t.Errorf("closed device: error isn't ErrDeviceUnavailable: %v", err)
	}

	c.Close()

	if _, err := c.Read32(0); !errors.Is(err, uapi.ErrDeviceUnavailable) {
		t.Errorf("closed conn: error isn't ErrDeviceUnavailable: %v", err)
	}
}

func TestBadOp(t *testing.T) {
	d, err := device.New(device.Config{})
	if err != nil {
		t.Fatal(err)
	}

	l := newPipeListener()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go (&remote.Server{Device: d}).Serve(ctx, l)

	conn := l.dial()
	defer conn.Close()

	req := make([]byte, 32)
	binary.LittleEndian.PutUint32(req, 99)

	if _, err := conn.Write(req); err != nil {
		t.Fatal(err)
	}

	res := make([]byte, 64)
	if _, err := io.ReadFull(conn, res); err != nil {
		t.Fatal(err)
	}

	if st := binary.LittleEndian.Uint32(res); st != 6 {
		t.Fatalf("status %d != 6", st)
	}
}

func TestBadAddress(t *testing.T) {
	for _, addr := range []string{"", "sim", "bogus:1", "vsock:", "vsock:x", "vsock:3:y"} {
		if _, err := remote.Listen(addr); !errors.Is(err, remote.ErrAddress) {
			t.Errorf("listen %q: error isn't ErrAddress: %v", addr, err)
		}
	}

	if _, err := remote.Dial("vsock:5000"); !errors.Is(err, remote.ErrAddress) {
		t.Errorf("dial without CID: error isn't ErrAddress: %v", err)
	}

	if remote.IsAddress("/dev/hydra_pcie") {
		t.Errorf("device path is a remote address")
	}
}

// pipeListener is a net.Listener over net.Pipe connections.
type pipeListener struct {
	conns chan net.Conn
	done  chan struct{}
}

func newPipeListener() *pipeListener {
	return &pipeListener{
		conns: make(chan net.Conn),
		done:  make(chan struct{}),
	}
}

func (l *pipeListener) dial() net.Conn {
	a, b := net.Pipe()
	l.conns <- b
	return a
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *pipeListener) Close() error {
	select {
	case <-l.done:
	default:
		close(l.done)
	}

	return nil
}

func (l *pipeListener) Addr() net.Addr {
	return pipeAddr{}
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }
