// Package sim drives clock-evaluated hardware models and captures the
// frames they scan out.
package sim

import (
	"errors"
	"fmt"

	"github.com/c35s/hydra/device"
	"github.com/c35s/hydra/uapi"
)

// Model is a clock-driven hardware model with named signals.
type Model interface {

	// Eval settles the model's outputs after its inputs change.
	Eval()

	// Set drives an input signal.
	Set(name string, v uint64) error

	// Get samples a signal.
	Get(name string) (uint64, error)
}

// Signal names.
const (
	SigClk   = "clk"   // clock (in)
	SigReset = "rst_n" // active-low reset (in)

	SigPixValid  = "pix_valid"  // a pixel is on pix_* this cycle (out)
	SigPixX      = "pix_x"      // pixel column (out)
	SigPixY      = "pix_y"      // pixel row (out)
	SigPixW0     = "pix_w0"     // pixel word 0: depth and flags (out)
	SigPixW1     = "pix_w1"     // pixel word 1: [31:24] r, [23:16] g, [15:8] b (out)
	SigPixW2     = "pix_w2"     // pixel word 2: material (out)
	SigFrameDone = "frame_done" // the frame is complete (out)
)

// Config describes a new harness.
type Config struct {

	// Width and Height are the screen size in pixels. Pixels the model
	// emits outside the screen are dropped. If either is 0, the screen is
	// 320×240.
	Width, Height int

	// Budget is the number of cycles Frame waits for frame_done.
	// If Budget is 0, it's twice the screen's pixel count plus 1024.
	Budget int

	// Device, if set, has IntFrameDone raised after every frame.
	Device *device.Device
}

const (
	WidthDefault       = 320
	HeightDefault      = 240
	ResetCyclesDefault = 10
)

var (
	ErrNoSignal = errors.New("sim: no such signal")
	ErrConfig   = errors.New("sim: invalid config")
	ErrTimeout  = fmt.Errorf("sim: frame %w", uapi.ErrTimeout)
)

// Harness clocks a model and collects its pixels.
type Harness struct {
	m      Model
	cfg    Config
	time   uint64
	frames uint64
}

// New creates a harness for m.
func New(m Model, cfg Config) (*Harness, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return &Harness{m: m, cfg: cfg}, nil
}

// Size returns the screen size.
func (h *Harness) Size() (int, int) {
	return h.cfg.Width, h.cfg.Height
}

// Time returns the number of cycles stepped.
func (h *Harness) Time() uint64 {
	return h.time
}

// Frames returns the number of frames completed.
func (h *Harness) Frames() uint64 {
	return h.frames
}

// Reset holds rst_n low for cycles clocks, then releases it.
// If cycles is 0 or less, the reset lasts 10 cycles.
func (h *Harness) Reset(cycles int) error {
	if cycles <= 0 {
		cycles = ResetCyclesDefault
	}

	if err := h.m.Set(SigReset, 0); err != nil {
		return err
	}

	for range cycles {
		if err := h.Step(); err != nil {
			return err
		}
	}

	if err := h.m.Set(SigReset, 1); err != nil {
		return err
	}

	h.m.Eval()
	return nil
}

// Step runs one clock cycle: clk low, then high.
func (h *Harness) Step() error {
	if err := h.m.Set(SigClk, 0); err != nil {
		return err
	}

	h.m.Eval()

	if err := h.m.Set(SigClk, 1); err != nil {
		return err
	}

	h.m.Eval()
	h.time++

	return nil
}

// Frame steps the model until it signals frame_done, storing the pixels
// it emits into fb as ARGB words. fb holds at least Width×Height words.
func (h *Harness) Frame(fb []uint32) error {
	w, ht := h.cfg.Width, h.cfg.Height
	if len(fb) < w*ht {
		return fmt.Errorf("%w: %d words for %dx%d", ErrConfig, len(fb), w, ht)
	}

	s := sampler{m: h.m}

	for range h.cfg.Budget {
		if err := h.Step(); err != nil {
			return err
		}

		if s.get(SigPixValid) != 0 {
			x, y := s.get(SigPixX), s.get(SigPixY)
			w0, w1, w2 := s.get(SigPixW0), s.get(SigPixW1), s.get(SigPixW2)

			if x < uint64(w) && y < uint64(ht) {
				fb[y*uint64(w)+x] = PixelToARGB(uint32(w0), uint32(w1), uint32(w2))
			}
		}

		done := s.get(SigFrameDone)
		if s.err != nil {
			return s.err
		}

		if done != 0 {
			h.frames++
			if h.cfg.Device != nil {
				h.cfg.Device.Raise(uapi.IntFrameDone)
			}

			return nil
		}
	}

	return fmt.Errorf("%w: %d cycles", ErrTimeout, h.cfg.Budget)
}

// PixelToARGB converts a model's three pixel words to an opaque ARGB word.
// Only the color in w1 is used.
func PixelToARGB(w0, w1, w2 uint32) uint32 {
	r := w1 >> 24 & 0xff
	g := w1 >> 16 & 0xff
	b := w1 >> 8 & 0xff

	return 0xff<<24 | r<<16 | g<<8 | b
}

// sampler reads signals until the first error.
type sampler struct {
	m   Model
	err error
}

func (s *sampler) get(name string) uint64 {
	if s.err != nil {
		return 0
	}

	v, err := s.m.Get(name)
	s.err = err

	return v
}

func (c Config) validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("screen size %dx%d", c.Width, c.Height)
	}

	if c.Budget < 0 {
		return fmt.Errorf("budget %d < 0", c.Budget)
	}

	return nil
}

func (c Config) withDefaults() Config {
	if c.Width == 0 || c.Height == 0 {
		c.Width = WidthDefault
		c.Height = HeightDefault
	}

	if c.Budget == 0 {
		c.Budget = 2*c.Width*c.Height + 1024
	}

	return c
}
