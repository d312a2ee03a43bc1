package sim_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"testing"

	"github.com/c35s/hydra/present"
	"github.com/c35s/hydra/sim"
	"github.com/cavaliergopher/cpio"
	"github.com/google/go-cmp/cmp"
)

func solid(w, h int, c uint32) present.Frame {
	f := present.Frame{Pix: make([]uint32, w*h), Width: w, Height: h}
	for i := range f.Pix {
		f.Pix[i] = c
	}

	return f
}

func TestRecorder(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "gzip"
		}

		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer

			r := sim.NewRecorder(&buf, compress)
			for range 2 {
				if err := r.Record(solid(5, 3, 0xff336699)); err != nil {
					t.Fatal(err)
				}
			}

			if err := r.Close(); err != nil {
				t.Fatal(err)
			}

			if r.Frames() != 2 {
				t.Errorf("frames = %d, want 2", r.Frames())
			}

			var in io.Reader = &buf
			if compress {
				zr, err := gzip.NewReader(&buf)
				if err != nil {
					t.Fatal(err)
				}

				in = zr
			}

			var names []string

			cr := cpio.NewReader(in)
			for {
				hdr, err := cr.Next()
				if errors.Is(err, io.EOF) {
					break
				}

				if err != nil {
					t.Fatal(err)
				}

				names = append(names, hdr.Name)

				img, err := png.Decode(cr)
				if err != nil {
					t.Fatalf("%s: %v", hdr.Name, err)
				}

				if img.Bounds() != image.Rect(0, 0, 5, 3) {
					t.Errorf("%s: bounds %v", hdr.Name, img.Bounds())
				}

				if pr, pg, pb, _ := img.At(2, 1).RGBA(); pr>>8 != 0x33 || pg>>8 != 0x66 || pb>>8 != 0x99 {
					t.Errorf("%s: pixel %02x%02x%02x", hdr.Name, pr>>8, pg>>8, pb>>8)
				}
			}

			if diff := cmp.Diff([]string{"frame-00000.png", "frame-00001.png"}, names); diff != "" {
				t.Errorf("archive (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecorderInvalidFrame(t *testing.T) {
	r := sim.NewRecorder(io.Discard, false)
	if err := r.Record(present.Frame{}); !errors.Is(err, present.ErrInvalidFrame) {
		t.Fatalf("err = %v, want %v", err, present.ErrInvalidFrame)
	}
}

func TestDrawHUD(t *testing.T) {
	const white = 0xffffffff

	f := solid(64, 32, white)
	sim.DrawHUD(f, "hydra")

	if f.Pix[0] == white {
		t.Error("band not drawn")
	}

	if f.Pix[0]>>24 != 0xff {
		t.Errorf("pixel %#x not opaque", f.Pix[0])
	}

	if f.Pix[31*64] != white {
		t.Errorf("pixel below band = %#x, want white", f.Pix[31*64])
	}

	g := solid(8, 8, white)
	sim.DrawHUD(g)

	if diff := cmp.Diff(solid(8, 8, white).Pix, g.Pix); diff != "" {
		t.Errorf("no lines changed the frame: %s", diff)
	}
}

func TestViewer(t *testing.T) {
	hs := newHarness(t, sim.NewScanout(4, 4, nil), sim.Config{Width: 4, Height: 4})
	if err := hs.Reset(0); err != nil {
		t.Fatal(err)
	}

	pc := present.NewContext(present.Noop())
	if err := pc.Init(present.Config{Width: 4, Height: 4}); err != nil {
		t.Fatal(err)
	}

	defer pc.Shutdown()

	rec := sim.NewRecorder(io.Discard, false)
	v := sim.Viewer{Harness: hs, Context: pc, Recorder: rec, HUD: true}

	if err := v.Run(context.Background(), 3); err != nil {
		t.Fatal(err)
	}

	if pc.Frames() != 3 || hs.Frames() != 3 || rec.Frames() != 3 {
		t.Errorf("frames: presented %d, rendered %d, recorded %d; want 3", pc.Frames(), hs.Frames(), rec.Frames())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := v.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want %v", err, context.Canceled)
	}
}
