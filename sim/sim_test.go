package sim_test

import (
	"errors"
	"testing"

	"github.com/c35s/hydra/device"
	"github.com/c35s/hydra/hydra"
	"github.com/c35s/hydra/sim"
	"github.com/c35s/hydra/uapi"
	"github.com/google/go-cmp/cmp"
)

// probe records rst_n at every rising clock edge and never finishes a frame.
type probe struct {
	clk, rstN uint64
	resets    []uint64
}

func (p *probe) Eval() {}

func (p *probe) Set(name string, v uint64) error {
	switch name {
	case sim.SigClk:
		if p.clk == 0 && v != 0 {
			p.resets = append(p.resets, p.rstN)
		}

		p.clk = v

	case sim.SigReset:
		p.rstN = v

	default:
		return sim.ErrNoSignal
	}

	return nil
}

func (p *probe) Get(name string) (uint64, error) {
	switch name {
	case sim.SigReset:
		return p.rstN, nil
	case sim.SigPixValid, sim.SigFrameDone:
		return 0, nil
	default:
		return 0, sim.ErrNoSignal
	}
}

func newHarness(t *testing.T, m sim.Model, cfg sim.Config) *sim.Harness {
	t.Helper()

	h, err := sim.New(m, cfg)
	if err != nil {
		t.Fatal(err)
	}

	return h
}

func TestReset(t *testing.T) {
	p := new(probe)
	h := newHarness(t, p, sim.Config{})

	if err := h.Reset(5); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]uint64{0, 0, 0, 0, 0}, p.resets); diff != "" {
		t.Errorf("rst_n at rising edges (-want +got):\n%s", diff)
	}

	if p.rstN != 1 {
		t.Error("reset not released")
	}

	if h.Time() != 5 {
		t.Errorf("time = %d, want 5", h.Time())
	}

	p.resets = nil
	if err := h.Reset(0); err != nil {
		t.Fatal(err)
	}

	if len(p.resets) != sim.ResetCyclesDefault {
		t.Errorf("default reset lasted %d cycles, want %d", len(p.resets), sim.ResetCyclesDefault)
	}
}

func TestFrame(t *testing.T) {
	const w, h = 4, 3

	hs := newHarness(t, sim.NewScanout(w, h, nil), sim.Config{Width: w, Height: h})
	if err := hs.Reset(0); err != nil {
		t.Fatal(err)
	}

	fb := make([]uint32, w*h)

	for frame := range uint64(2) {
		if err := hs.Frame(fb); err != nil {
			t.Fatal(err)
		}

		want := make([]uint32, w*h)
		for i := range want {
			want[i] = sim.Pattern(i%w, i/w, frame)
		}

		if diff := cmp.Diff(want, fb); diff != "" {
			t.Errorf("frame %d (-want +got):\n%s", frame, diff)
		}
	}

	if hs.Frames() != 2 {
		t.Errorf("frames = %d, want 2", hs.Frames())
	}

	// reset, then a pixel per cycle plus the done cycle for each frame
	if want := uint64(sim.ResetCyclesDefault + 2*(w*h+1)); hs.Time() != want {
		t.Errorf("time = %d, want %d", hs.Time(), want)
	}
}

func TestFrameDropsOffscreen(t *testing.T) {
	hs := newHarness(t, sim.NewScanout(4, 4, nil), sim.Config{Width: 2, Height: 2})
	if err := hs.Reset(0); err != nil {
		t.Fatal(err)
	}

	fb := make([]uint32, 4)
	if err := hs.Frame(fb); err != nil {
		t.Fatal(err)
	}

	want := []uint32{
		sim.Pattern(0, 0, 0), sim.Pattern(1, 0, 0),
		sim.Pattern(0, 1, 0), sim.Pattern(1, 1, 0),
	}

	if diff := cmp.Diff(want, fb); diff != "" {
		t.Errorf("frame (-want +got):\n%s", diff)
	}
}

func TestFrameErrors(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		hs := newHarness(t, new(probe), sim.Config{Width: 2, Height: 2, Budget: 50})

		err := hs.Frame(make([]uint32, 4))
		if !errors.Is(err, sim.ErrTimeout) || !errors.Is(err, uapi.ErrTimeout) {
			t.Fatalf("err = %v, want %v", err, sim.ErrTimeout)
		}

		if hs.Time() != 50 {
			t.Errorf("time = %d, want 50", hs.Time())
		}
	})

	t.Run("held in reset", func(t *testing.T) {
		hs := newHarness(t, sim.NewScanout(2, 2, nil), sim.Config{Width: 2, Height: 2, Budget: 20})
		if err := hs.Frame(make([]uint32, 4)); !errors.Is(err, sim.ErrTimeout) {
			t.Fatalf("err = %v, want %v", err, sim.ErrTimeout)
		}
	})

	t.Run("short buffer", func(t *testing.T) {
		hs := newHarness(t, sim.NewScanout(2, 2, nil), sim.Config{Width: 2, Height: 2})
		if err := hs.Frame(make([]uint32, 3)); !errors.Is(err, sim.ErrConfig) {
			t.Fatalf("err = %v, want %v", err, sim.ErrConfig)
		}
	})

	t.Run("config", func(t *testing.T) {
		if _, err := sim.New(new(probe), sim.Config{Budget: -1}); !errors.Is(err, sim.ErrConfig) {
			t.Fatalf("err = %v, want %v", err, sim.ErrConfig)
		}
	})
}

func TestFrameRaisesInterrupt(t *testing.T) {
	d, err := device.New(device.Config{})
	if err != nil {
		t.Fatal(err)
	}

	hs := newHarness(t, sim.NewScanout(2, 2, nil), sim.Config{Width: 2, Height: 2, Device: d})
	if err := hs.Reset(0); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		if err := hs.Frame(make([]uint32, 4)); err != nil {
			t.Fatal(err)
		}
	}

	if got := d.Counters().FrameDone; got != 3 {
		t.Errorf("frame-done count = %d, want 3", got)
	}

	st, err := d.Read32(uapi.RegIntStatus)
	if err != nil {
		t.Fatal(err)
	}

	if st&uapi.IntFrameDone == 0 {
		t.Errorf("INT_STATUS = %#x, frame-done not latched", st)
	}
}

func TestPixelToARGB(t *testing.T) {
	if got := sim.PixelToARGB(0xdeadbeef, 0x11223344, 0xcafef00d); got != 0xff112233 {
		t.Errorf("PixelToARGB = %#x, want %#x", got, uint32(0xff112233))
	}
}

func TestScanoutSignals(t *testing.T) {
	s := sim.NewScanout(2, 2, nil)

	if _, err := s.Get("bogus"); !errors.Is(err, sim.ErrNoSignal) {
		t.Errorf("get: err = %v, want %v", err, sim.ErrNoSignal)
	}

	if err := s.Set(sim.SigPixX, 1); !errors.Is(err, sim.ErrNoSignal) {
		t.Errorf("set output: err = %v, want %v", err, sim.ErrNoSignal)
	}
}

func TestDeviceSource(t *testing.T) {
	d, err := device.New(device.Config{})
	if err != nil {
		t.Fatal(err)
	}

	c, err := hydra.New(d, hydra.Config{})
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Blit(0, []uint32{0x112233, 0x445566, 0x778899}); err != nil {
		t.Fatal(err)
	}

	src := sim.DeviceSource(d, 2)

	got := []uint32{src(0, 0, 0), src(1, 0, 0), src(0, 1, 0), src(1, 1, 0)}
	want := []uint32{0xff112233, 0xff445566, 0xff778899, 0xff000000}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pixels (-want +got):\n%s", diff)
	}

	// Pixel RAM is sampled once per frame.
	if err := c.Blit(0, []uint32{0xabcdef}); err != nil {
		t.Fatal(err)
	}

	if got := src(0, 0, 0); got != 0xff112233 {
		t.Errorf("same frame = %#x, want the old pixel", got)
	}

	if got := src(0, 0, 1); got != 0xffabcdef {
		t.Errorf("next frame = %#x, want %#x", got, uint32(0xffabcdef))
	}
}

func TestDeviceSourceEnd(t *testing.T) {
	d, err := device.New(device.Config{PixelWords: 2})
	if err != nil {
		t.Fatal(err)
	}

	if got := sim.DeviceSource(d, 2)(0, 5, 0); got != 0xff000000 {
		t.Errorf("past the end = %#x, want black", got)
	}
}
