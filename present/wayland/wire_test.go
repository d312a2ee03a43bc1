package wayland

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRequestEncoding(t *testing.T) {
	r := newRequest(2, 0).u32(7).str("wl_shm").u32(1).u32(5)
	b := r.bytes()

	// header + name + (len + "wl_shm\0" padded to 8) + version + id
	if len(b) != 8+4+4+8+4+4 {
		t.Fatalf("%d bytes", len(b))
	}

	if got := ne.Uint32(b); got != 2 {
		t.Errorf("object %d", got)
	}

	if got := ne.Uint32(b[4:]); got != uint32(len(b))<<16 {
		t.Errorf("size/opcode word %#x", got)
	}

	if got := ne.Uint32(b[12:]); got != 7 {
		t.Errorf("string length %d", got)
	}

	if diff := cmp.Diff([]byte("wl_shm\x00\x00"), b[16:24]); diff != "" {
		t.Errorf("string bytes differ: %s", diff)
	}

	fds := newRequest(3, 0).u32(4).fd(9).i32(64)
	if diff := cmp.Diff([]int{9}, fds.fds); diff != "" {
		t.Errorf("fds differ: %s", diff)
	}

	if n := len(fds.bytes()); n != 16 {
		t.Errorf("fd inlined: %d bytes", n)
	}
}

func TestParseEvent(t *testing.T) {
	msg := newRequest(2, 0).u32(1).str("xdg_wm_base").u32(3).bytes()
	buf := append(append([]byte{}, msg...), msg[:5]...)

	ev, n, err := parseEvent(buf)
	if err != nil {
		t.Fatal(err)
	}

	if n != len(msg) || ev.obj != 2 || ev.op != 0 {
		t.Fatalf("event %+v, %d bytes", ev, n)
	}

	a := args{b: ev.args}
	name, iface, version := a.u32(), a.str(), a.u32()

	if a.err != nil {
		t.Fatal(a.err)
	}

	if name != 1 || iface != "xdg_wm_base" || version != 3 {
		t.Fatalf("global %d %q %d", name, iface, version)
	}

	if _, n, err := parseEvent(buf[n:]); n != 0 || err != nil {
		t.Fatalf("partial message: %d, %v", n, err)
	}

	bad := []byte{1, 0, 0, 0, 0, 0, 6, 0}
	if _, _, err := parseEvent(bad); !errors.Is(err, errProtocol) {
		t.Fatalf("bad size: error isn't errProtocol: %v", err)
	}

	short := args{b: []byte{10, 0, 0, 0, 'a'}}
	if short.str(); !errors.Is(short.err, errProtocol) {
		t.Fatalf("overrun string: error isn't errProtocol: %v", short.err)
	}
}

func TestBufferRelease(t *testing.T) {
	a, b := &shmBuffer{id: 5}, &shmBuffer{id: 6}
	bufs := []*shmBuffer{a, b}

	if got := free(bufs); got != a {
		t.Fatalf("free = %+v, want the first buffer", got)
	}

	a.busy, b.busy = true, true
	if got := free(bufs); got != nil {
		t.Fatalf("free = %+v with every buffer attached", got)
	}

	ev, _, err := parseEvent(newRequest(6, bufferRelease).bytes())
	if err != nil {
		t.Fatal(err)
	}

	if ev.obj != b.id {
		t.Fatalf("release for object %d", ev.obj)
	}

	if err := b.event(ev.op, &args{b: ev.args}); err != nil {
		t.Fatal(err)
	}

	if got := free(bufs); got != b {
		t.Fatalf("free = %+v, want the released buffer", got)
	}

	if !a.busy {
		t.Error("release of one buffer freed the other")
	}
}
