package fbdev

import (
	"fmt"
	"image"
	"os"
	"unsafe"

	"github.com/c35s/hydra/present"
	"golang.org/x/image/draw"
	"golang.org/x/sys/unix"
)

// <linux/fb.h> ioctls
const (
	fbiogetVScreenInfo = 0x4600
	fbiogetFScreenInfo = 0x4602
)

// varScreenInfo has the same layout as the C struct fb_var_screeninfo.
type varScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset         uint32
	BitsPerPixel             uint32
	Grayscale                uint32
	_                        [32]uint32
}

// fixScreenInfo has the same layout as the C struct fb_fix_screeninfo.
type fixScreenInfo struct {
	ID           [16]byte
	SMemStart    uintptr
	SMemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MMIOStart    uintptr
	MMIOLen      uint32
	Accel        uint32
	Capabilities uint16
	_            [2]uint16
}

func ioctl(f *os.File, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, uintptr(arg)); errno != 0 {
		return errno
	}

	return nil
}

type surface struct {
	f      *os.File
	mem    []byte
	screen *image.RGBA
	src    *image.RGBA
	scale  int
	closed bool
}

func open(path string, cfg present.Config) (present.Surface, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	s := surface{f: f, scale: cfg.Scale}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}

	return &s, nil
}

func (s *surface) init() error {
	var vi varScreenInfo
	if err := ioctl(s.f, fbiogetVScreenInfo, unsafe.Pointer(&vi)); err != nil {
		return fmt.Errorf("fbdev: get var screen info: %w", err)
	}

	var fi fixScreenInfo
	if err := ioctl(s.f, fbiogetFScreenInfo, unsafe.Pointer(&fi)); err != nil {
		return fmt.Errorf("fbdev: get fix screen info: %w", err)
	}

	if vi.BitsPerPixel != 32 {
		return fmt.Errorf("fbdev: %d bits per pixel, need 32", vi.BitsPerPixel)
	}

	// The whole virtual screen is mapped so that offsets stay in range.
	size := int(fi.LineLength) * int(max(vi.YResVirtual, vi.YRes+vi.YOffset))

	mem, err := unix.Mmap(int(s.f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("fbdev: map %d bytes: %w", size, err)
	}

	s.mem = mem

	screen, err := visible(mem, int(fi.LineLength), int(vi.XRes), int(vi.YRes), int(vi.XOffset), int(vi.YOffset))
	if err != nil {
		return err
	}

	s.screen = screen
	return nil
}

func (s *surface) Present(f present.Frame) error {
	if s.closed {
		return present.ErrNotReady
	}

	if s.src == nil || s.src.Rect.Dx() != f.Width || s.src.Rect.Dy() != f.Height {
		s.src = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	}

	present.PutBGRA(s.src.Pix, s.src.Stride, f.Width, f.Height, f)

	// Scale deals with destination rectangles that overhang the screen by
	// clipping them.
	r := image.Rect(0, 0, f.Width*s.scale, f.Height*s.scale)
	draw.NearestNeighbor.Scale(s.screen, r, s.src, s.src.Rect, draw.Src, nil)

	return nil
}

func (s *surface) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	if s.mem != nil {
		unix.Munmap(s.mem)
		s.mem, s.screen = nil, nil
	}

	return s.f.Close()
}
