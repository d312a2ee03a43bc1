// Package x11 presents frames in an X11 window using the core protocol.
// Frames are scaled into a 32bpp ZPixmap buffer and sent with PutImage in
// row bands that fit the server's maximum request length.
package x11

import (
	"fmt"
	"image"
	"math"
	"os"

	"github.com/c35s/hydra/present"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"golang.org/x/image/draw"
)

// putImageHeader is the size of a PutImage request without its data.
const putImageHeader = 24

// Backend is the X11 backend.
type Backend struct{}

func init() {
	present.Register(Backend{})
}

func (Backend) Kind() present.Kind {
	return present.KindX11
}

func (Backend) Supported() bool {
	return os.Getenv("DISPLAY") != ""
}

func (Backend) Init(cfg present.Config) (present.Surface, error) {
	x, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}

	s := surface{x: x, scale: cfg.Scale}
	if err := s.init(cfg); err != nil {
		s.Close()
		return nil, err
	}

	go s.drain()

	return &s, nil
}

type surface struct {
	x      *xgb.Conn
	win    xproto.Window
	gc     xproto.Gcontext
	depth  byte
	maxReq int // bytes

	scale int
	src   *image.RGBA // BGRA bytes in an RGBA container
	dst   *image.RGBA // src scaled to the window

	closed bool
}

func (s *surface) init(cfg present.Config) error {
	setup := xproto.Setup(s.x)
	screen := setup.DefaultScreen(s.x)

	if !zpixmap32(setup, screen.RootDepth) {
		return fmt.Errorf("x11: root depth %d has no 32bpp ZPixmap format", screen.RootDepth)
	}

	s.depth = screen.RootDepth
	s.maxReq = 4 * int(setup.MaximumRequestLength)

	win, err := xproto.NewWindowId(s.x)
	if err != nil {
		return err
	}

	w, h := cfg.Width*s.scale, cfg.Height*s.scale
	if err := checkSize(w, h, s.maxReq); err != nil {
		return fmt.Errorf("%w: %w", present.ErrConfig, err)
	}

	err = xproto.CreateWindowChecked(s.x, screen.RootDepth, win, screen.Root,
		0, 0, uint16(w), uint16(h), 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{screen.BlackPixel, xproto.EventMaskExposure | xproto.EventMaskStructureNotify},
	).Check()

	if err != nil {
		return fmt.Errorf("x11: create window: %w", err)
	}

	s.win = win

	xproto.ChangeProperty(s.x, xproto.PropModeReplace, win, xproto.AtomWmName, xproto.AtomString,
		8, uint32(len(cfg.Title)), []byte(cfg.Title))

	gc, err := xproto.NewGcontextId(s.x)
	if err != nil {
		return err
	}

	if err := xproto.CreateGCChecked(s.x, gc, xproto.Drawable(win), 0, nil).Check(); err != nil {
		return fmt.Errorf("x11: create gc: %w", err)
	}

	s.gc = gc

	if err := xproto.MapWindowChecked(s.x, win).Check(); err != nil {
		return fmt.Errorf("x11: map window: %w", err)
	}

	return nil
}

// drain discards events so that the connection's event queue never blocks
// replies. It returns when the connection closes.
func (s *surface) drain() {
	for {
		ev, err := s.x.WaitForEvent()
		if ev == nil && err == nil {
			return
		}
	}
}

func (s *surface) Present(f present.Frame) error {
	if s.closed {
		return present.ErrNotReady
	}

	if s.src == nil || s.src.Rect.Dx() != f.Width || s.src.Rect.Dy() != f.Height {
		if err := checkSize(f.Width*s.scale, f.Height*s.scale, s.maxReq); err != nil {
			return fmt.Errorf("%w: %w", present.ErrInvalidFrame, err)
		}

		s.resize(f.Width, f.Height)
	}

	present.PutBGRA(s.src.Pix, s.src.Stride, f.Width, f.Height, f)

	// Nearest-neighbour with draw.Src copies whole pixels, so the BGRA
	// byte order survives the RGBA container.
	draw.NearestNeighbor.Scale(s.dst, s.dst.Rect, s.src, s.src.Rect, draw.Src, nil)

	w, h := s.dst.Rect.Dx(), s.dst.Rect.Dy()
	for _, b := range bands(w, h, s.maxReq) {
		data := s.dst.Pix[b.y*s.dst.Stride : (b.y+b.n)*s.dst.Stride]

		err := xproto.PutImageChecked(s.x, xproto.ImageFormatZPixmap, xproto.Drawable(s.win), s.gc,
			uint16(w), uint16(b.n), 0, int16(b.y), 0, s.depth, data).Check()

		if err != nil {
			return fmt.Errorf("x11: put image: %w", err)
		}
	}

	return nil
}

// resize reallocates the image buffers and the window for w×h frames.
func (s *surface) resize(w, h int) {
	s.src = image.NewRGBA(image.Rect(0, 0, w, h))
	s.dst = image.NewRGBA(image.Rect(0, 0, w*s.scale, h*s.scale))

	xproto.ConfigureWindow(s.x, s.win, xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(w * s.scale), uint32(h * s.scale)})
}

func (s *surface) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	if s.gc != 0 {
		xproto.FreeGC(s.x, s.gc)
	}

	if s.win != 0 {
		xproto.DestroyWindow(s.x, s.win)
	}

	s.x.Close()
	return nil
}

// maxSize is the largest window side. PutImage places bands at int16 rows.
const maxSize = math.MaxInt16

// checkSize reports whether a w×h window fits the core protocol: both sides
// in range, and a single row in one PutImage request.
func checkSize(w, h, maxReq int) error {
	if w <= 0 || h <= 0 || w > maxSize || h > maxSize {
		return fmt.Errorf("x11: %dx%d window is outside 1..%d", w, h, maxSize)
	}

	if row := putImageHeader + 4*w; row > maxReq {
		return fmt.Errorf("x11: a %d pixel row needs a %d byte request, server allows %d", w, row, maxReq)
	}

	return nil
}

type band struct {
	y, n int
}

// bands splits h rows of w 4-byte pixels into PutImage requests of at most
// maxReq bytes each.
func bands(w, h, maxReq int) []band {
	rows := max((maxReq-putImageHeader)/(4*w), 1)

	var bs []band
	for y := 0; y < h; y += rows {
		bs = append(bs, band{y: y, n: min(rows, h-y)})
	}

	return bs
}

// zpixmap32 reports whether the server stores pixmaps of the given depth
// at 32 bits per pixel.
func zpixmap32(setup *xproto.SetupInfo, depth byte) bool {
	for _, f := range setup.PixmapFormats {
		if f.Depth == depth {
			return f.BitsPerPixel == 32
		}
	}

	return false
}
