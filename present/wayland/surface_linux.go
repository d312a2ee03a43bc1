package wayland

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/c35s/hydra/present"
	"golang.org/x/image/draw"
	"golang.org/x/sys/unix"
)

// Opcodes of the requests and events used here.
const (
	registryBind   = 0
	registryGlobal = 0

	compositorCreateSurface = 0

	shmCreatePool     = 0
	poolCreateBuffer  = 0
	poolDestroy       = 1
	bufferDestroy     = 0
	shmFormatXRGB8888 = 1

	surfaceDestroy = 0
	surfaceAttach  = 1
	surfaceDamage  = 2
	surfaceCommit  = 6

	wmBaseDestroy       = 0
	wmBaseGetXDGSurface = 2
	wmBasePong          = 3
	wmBasePing          = 0

	xdgSurfaceDestroy      = 0
	xdgSurfaceGetToplevel  = 1
	xdgSurfaceAckConfigure = 4
	xdgSurfaceConfigure    = 0

	toplevelDestroy  = 0
	toplevelSetTitle = 2
	toplevelClose    = 1
)

// setupTimeout bounds each wait for the compositor during init.
const setupTimeout = 5 * time.Second

// releaseTimeout bounds the wait for a free buffer in Present.
const releaseTimeout = 100 * time.Millisecond

// shmBuffers is the number of buffers carved from each pool.
const shmBuffers = 2

type global struct {
	name    uint32
	version uint32
}

type surface struct {
	c *conn

	compositor uint32
	shm        uint32
	wmBase     uint32

	surf       uint32
	xdgSurface uint32
	toplevel   uint32
	configured bool
	closing    bool

	scale int

	// Shared-memory pool of w×h pixel buffers.
	pool uint32
	bufs []*shmBuffer
	fd   int
	mem  []byte
	w, h int

	src    *image.RGBA
	closed bool
}

func open(cfg present.Config) (present.Surface, error) {
	c, err := dial()
	if err != nil {
		return nil, err
	}

	s := surface{c: c, fd: -1, scale: cfg.Scale}
	if err := s.init(cfg); err != nil {
		s.Close()
		return nil, err
	}

	return &s, nil
}

func (s *surface) init(cfg present.Config) error {
	globals := map[string]global{}

	registry := s.c.newID()
	s.c.handle(registry, func(op uint16, a *args) error {
		if op == registryGlobal {
			name, iface, version := a.u32(), a.str(), a.u32()
			globals[iface] = global{name, version}
		}

		return nil
	})

	if err := s.c.send(newRequest(displayID, displayGetRegistry).u32(registry)); err != nil {
		return err
	}

	if err := s.c.roundtrip(setupTimeout); err != nil {
		return err
	}

	bind := func(iface string, version uint32) (uint32, error) {
		g, ok := globals[iface]
		if !ok {
			return 0, fmt.Errorf("wayland: compositor has no %s", iface)
		}

		id := s.c.newID()
		r := newRequest(registry, registryBind).u32(g.name).str(iface).u32(min(g.version, version)).u32(id)
		return id, s.c.send(r)
	}

	var err error
	if s.compositor, err = bind("wl_compositor", 4); err != nil {
		return err
	}

	if s.shm, err = bind("wl_shm", 1); err != nil {
		return err
	}

	if s.wmBase, err = bind("xdg_wm_base", 1); err != nil {
		return err
	}

	s.c.handle(s.wmBase, func(op uint16, a *args) error {
		if op != wmBasePing {
			return nil
		}

		return s.c.send(newRequest(s.wmBase, wmBasePong).u32(a.u32()))
	})

	s.surf = s.c.newID()
	s.xdgSurface = s.c.newID()
	s.toplevel = s.c.newID()

	s.c.handle(s.xdgSurface, func(op uint16, a *args) error {
		if op != xdgSurfaceConfigure {
			return nil
		}

		s.configured = true
		return s.c.send(newRequest(s.xdgSurface, xdgSurfaceAckConfigure).u32(a.u32()))
	})

	s.c.handle(s.toplevel, func(op uint16, _ *args) error {
		if op == toplevelClose {
			s.closing = true
		}

		return nil
	})

	err = s.c.sendAll(
		newRequest(s.compositor, compositorCreateSurface).u32(s.surf),
		newRequest(s.wmBase, wmBaseGetXDGSurface).u32(s.xdgSurface).u32(s.surf),
		newRequest(s.xdgSurface, xdgSurfaceGetToplevel).u32(s.toplevel),
		newRequest(s.toplevel, toplevelSetTitle).str(cfg.Title),
		newRequest(s.surf, surfaceCommit),
	)

	if err != nil {
		return err
	}

	if err := s.c.until(&s.configured, setupTimeout); err != nil {
		return fmt.Errorf("wayland: waiting for configure: %w", err)
	}

	return s.resize(cfg.Width*s.scale, cfg.Height*s.scale)
}

// resize replaces the shared-memory pool with one holding shmBuffers
// buffers of w×h pixels.
func (s *surface) resize(w, h int) error {
	if err := s.release(); err != nil {
		return err
	}

	stride := 4 * w
	size := stride * h * shmBuffers

	fd, err := unix.MemfdCreate("hydra-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("wayland: memfd: %w", err)
	}

	s.fd = fd

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return fmt.Errorf("wayland: truncate shm: %w", err)
	}

	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("wayland: map shm: %w", err)
	}

	s.mem = mem
	s.pool = s.c.newID()

	if err := s.c.send(newRequest(s.shm, shmCreatePool).u32(s.pool).fd(fd).i32(int32(size))); err != nil {
		return err
	}

	one := stride * h
	for i := range shmBuffers {
		b := shmBuffer{
			id:  s.c.newID(),
			img: &image.RGBA{Pix: mem[i*one : (i+1)*one], Stride: stride, Rect: image.Rect(0, 0, w, h)},
		}

		r := newRequest(s.pool, poolCreateBuffer).u32(b.id).i32(int32(i * one)).i32(int32(w)).i32(int32(h)).i32(int32(stride)).u32(shmFormatXRGB8888)
		if err := s.c.send(r); err != nil {
			return err
		}

		s.c.handle(b.id, b.event)
		s.bufs = append(s.bufs, &b)
	}

	s.w, s.h = w, h

	slog.Debug("wayland: shm buffer", "width", w, "height", h)
	return nil
}

// release destroys the buffers, their pool and the memfd behind them.
func (s *surface) release() error {
	var rs []*request
	for _, b := range s.bufs {
		rs = append(rs, newRequest(b.id, bufferDestroy))
	}

	if s.pool != 0 {
		rs = append(rs, newRequest(s.pool, poolDestroy))
	}

	err := s.c.sendAll(rs...)
	s.bufs, s.pool = nil, 0

	if s.mem != nil {
		unix.Munmap(s.mem)
		s.mem = nil
	}

	if s.fd >= 0 {
		unix.Close(s.fd)
		s.fd = -1
	}

	return err
}

func (s *surface) Present(f present.Frame) error {
	if s.closed {
		return present.ErrNotReady
	}

	if err := s.c.read(false, time.Time{}); err != nil {
		return err
	}

	if s.closing {
		return fmt.Errorf("wayland: window was closed")
	}

	if w, h := f.Width*s.scale, f.Height*s.scale; w != s.w || h != s.h {
		if err := s.resize(w, h); err != nil {
			return err
		}
	}

	if s.src == nil || s.src.Rect.Dx() != f.Width || s.src.Rect.Dy() != f.Height {
		s.src = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	}

	b, err := s.acquire()
	if err != nil {
		return err
	}

	if b == nil {
		slog.Debug("wayland: dropped frame, compositor holds every buffer")
		return nil
	}

	present.PutBGRA(s.src.Pix, s.src.Stride, f.Width, f.Height, f)
	draw.NearestNeighbor.Scale(b.img, b.img.Rect, s.src, s.src.Rect, draw.Src, nil)

	err = s.c.sendAll(
		newRequest(s.surf, surfaceAttach).u32(b.id).i32(0).i32(0),
		newRequest(s.surf, surfaceDamage).i32(0).i32(0).i32(int32(s.w)).i32(int32(s.h)),
		newRequest(s.surf, surfaceCommit),
	)

	if err != nil {
		return err
	}

	b.busy = true
	return nil
}

// acquire returns a buffer the compositor has released, waiting up to
// releaseTimeout for one. It returns nil if none was released in time.
func (s *surface) acquire() (*shmBuffer, error) {
	deadline := time.Now().Add(releaseTimeout)

	for {
		if b := free(s.bufs); b != nil {
			return b, nil
		}

		if err := s.c.read(true, deadline); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, nil
			}

			return nil, err
		}
	}
}

func (s *surface) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	s.release()

	var rs []*request
	for _, d := range []struct {
		id uint32
		op uint16
	}{
		{s.toplevel, toplevelDestroy},
		{s.xdgSurface, xdgSurfaceDestroy},
		{s.surf, surfaceDestroy},
		{s.wmBase, wmBaseDestroy},
	} {
		if d.id != 0 {
			rs = append(rs, newRequest(d.id, d.op))
		}
	}

	s.c.sendAll(rs...)
	return s.c.Close()
}
