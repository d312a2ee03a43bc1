package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// The wire protocol uses host byte order.
var ne = binary.NativeEndian

var errProtocol = errors.New("wayland: protocol error")

// headerSize is the size of a message header: object id, then size<<16|opcode.
const headerSize = 8

// request is an outgoing message. File descriptors travel out of band.
type request struct {
	buf []byte
	op  uint16
	fds []int
}

func newRequest(obj uint32, op uint16) *request {
	r := request{
		buf: make([]byte, headerSize, 64),
		op:  op,
	}

	ne.PutUint32(r.buf, obj)
	return &r
}

func (r *request) u32(v uint32) *request {
	r.buf = ne.AppendUint32(r.buf, v)
	return r
}

func (r *request) i32(v int32) *request {
	return r.u32(uint32(v))
}

// str appends a NUL-terminated string padded to 4 bytes.
func (r *request) str(s string) *request {
	n := len(s) + 1
	r.u32(uint32(n))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, make([]byte, pad(n)-len(s))...)
	return r
}

func (r *request) fd(fd int) *request {
	r.fds = append(r.fds, fd)
	return r
}

// bytes returns the encoded message.
func (r *request) bytes() []byte {
	ne.PutUint32(r.buf[4:], uint32(len(r.buf))<<16|uint32(r.op))
	return r.buf
}

// event is an incoming message.
type event struct {
	obj  uint32
	op   uint16
	args []byte
}

// parseEvent splits the first message off buf. It returns n == 0 if buf
// doesn't hold a whole message yet.
func parseEvent(buf []byte) (ev event, n int, err error) {
	if len(buf) < headerSize {
		return event{}, 0, nil
	}

	w := ne.Uint32(buf[4:])
	size := int(w >> 16)

	if size < headerSize || size%4 != 0 {
		return event{}, 0, fmt.Errorf("%w: message size %d", errProtocol, size)
	}

	if len(buf) < size {
		return event{}, 0, nil
	}

	ev = event{
		obj:  ne.Uint32(buf),
		op:   uint16(w),
		args: buf[headerSize:size],
	}

	return ev, size, nil
}

// args decodes event arguments. The first decoding error sticks.
type args struct {
	b   []byte
	err error
}

func (a *args) u32() uint32 {
	if a.err != nil {
		return 0
	}

	if len(a.b) < 4 {
		a.err = fmt.Errorf("%w: short argument", errProtocol)
		return 0
	}

	v := ne.Uint32(a.b)
	a.b = a.b[4:]
	return v
}

func (a *args) i32() int32 {
	return int32(a.u32())
}

func (a *args) str() string {
	n := int(a.u32())
	if a.err != nil || n == 0 {
		return ""
	}

	if pad(n) > len(a.b) {
		a.err = fmt.Errorf("%w: string of %d bytes overruns message", errProtocol, n)
		return ""
	}

	s := string(a.b[:n-1])
	a.b = a.b[pad(n):]
	return s
}

func pad(n int) int {
	return (n + 3) &^ 3
}
