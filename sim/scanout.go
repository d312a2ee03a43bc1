package sim

import (
	"fmt"

	"github.com/c35s/hydra/device"
)

// Source returns the ARGB color of pixel x, y in the given frame.
type Source func(x, y int, frame uint64) uint32

// Scanout is a model that emits a w×h frame one pixel per rising clock
// edge, then raises frame_done for one cycle.
type Scanout struct {
	w, h int
	src  Source

	clk, rstN uint64
	pos       int // next pixel, w*h for the done cycle
	frame     uint64

	out outputs
}

type outputs struct {
	valid, x, y, w0, w1, w2, done uint64
}

// NewScanout returns a model that scans out a w×h frame from src.
// If src is nil, the model shows Pattern.
func NewScanout(w, h int, src Source) *Scanout {
	if src == nil {
		src = Pattern
	}

	return &Scanout{w: w, h: h, src: src}
}

func (s *Scanout) Set(name string, v uint64) error {
	switch name {
	case SigClk:
		if s.clk == 0 && v != 0 {
			s.rise()
		}

		s.clk = v

	case SigReset:
		s.rstN = v

	default:
		return fmt.Errorf("%w: %s is not an input", ErrNoSignal, name)
	}

	return nil
}

func (s *Scanout) Get(name string) (uint64, error) {
	switch name {
	case SigClk:
		return s.clk, nil
	case SigReset:
		return s.rstN, nil
	case SigPixValid:
		return s.out.valid, nil
	case SigPixX:
		return s.out.x, nil
	case SigPixY:
		return s.out.y, nil
	case SigPixW0:
		return s.out.w0, nil
	case SigPixW1:
		return s.out.w1, nil
	case SigPixW2:
		return s.out.w2, nil
	case SigFrameDone:
		return s.out.done, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrNoSignal, name)
	}
}

// Eval does nothing. The model's registers update on the clock edge
// seen by Set.
func (s *Scanout) Eval() {}

// rise is the rising clock edge.
func (s *Scanout) rise() {
	s.out = outputs{}

	if s.rstN == 0 {
		s.pos, s.frame = 0, 0
		return
	}

	if s.pos == s.w*s.h {
		s.out.done = 1
		s.pos = 0
		s.frame++
		return
	}

	x, y := s.pos%s.w, s.pos/s.w
	c := s.src(x, y, s.frame)

	s.out.valid = 1
	s.out.x, s.out.y = uint64(x), uint64(y)
	s.out.w0 = s.frame
	s.out.w1 = uint64(c&0xffffff) << 8
	s.pos++
}

// Pattern is a test pattern of color bars that scroll one pixel per frame
// over a gradient.
func Pattern(x, y int, frame uint64) uint32 {
	bars := [...]uint32{
		0xffffff, 0xffff00, 0x00ffff, 0x00ff00,
		0xff00ff, 0xff0000, 0x0000ff, 0x000000,
	}

	c := bars[(uint64(x)+frame)/40%uint64(len(bars))]
	if y%64 >= 56 {
		g := uint32(x+y) & 0xff
		c = g<<16 | g<<8 | g
	}

	return 0xff<<24 | c
}

// DeviceSource returns a source that shows a device's pixel RAM as a
// w-pixel-wide image. The RAM is sampled once per frame. Pixels past the
// end of the RAM are black.
func DeviceSource(d *device.Device, w int) Source {
	var (
		pix []uint32
		cur = ^uint64(0)
	)

	return func(x, y int, frame uint64) uint32 {
		if frame != cur {
			pix = d.Pixels(pix)
			cur = frame
		}

		if i := y*w + x; i < len(pix) {
			return 0xff<<24 | pix[i]
		}

		return 0xff << 24
	}
}
