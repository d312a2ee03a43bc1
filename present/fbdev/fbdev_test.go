//go:build linux

package fbdev

import (
	"testing"

	"github.com/c35s/hydra/present"
)

func TestVisible(t *testing.T) {
	mem := make([]byte, 4*32)

	img, err := visible(mem, 32, 4, 2, 2, 1)
	if err != nil {
		t.Fatal(err)
	}

	img.Pix[0] = 0xaa
	if mem[40] != 0xaa {
		t.Fatal("visible origin isn't at the offset")
	}

	for _, c := range []struct{ xres, yres, xoff, yoff int }{
		{9, 1, 0, 0},
		{4, 1, 5, 0},
		{4, 4, 0, 1},
		{0, 1, 0, 0},
	} {
		if _, err := visible(mem, 32, c.xres, c.yres, c.xoff, c.yoff); err == nil {
			t.Errorf("%+v fits", c)
		}
	}
}

func TestPresentClips(t *testing.T) {
	mem := make([]byte, 3*32)

	screen, err := visible(mem, 32, 3, 3, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	s := surface{screen: screen, scale: 2}

	f := present.Frame{Pix: []uint32{0xff0000a1, 0xff0000a2, 0xff0000a3, 0xff0000a4}, Width: 2, Height: 2}
	if err := s.Present(f); err != nil {
		t.Fatal(err)
	}

	// Blue is the first byte of a BGRA pixel.
	want := [3][3]byte{
		{0xa1, 0xa1, 0xa2},
		{0xa1, 0xa1, 0xa2},
		{0xa3, 0xa3, 0xa4},
	}

	for y := range 3 {
		for x := range 3 {
			if got := mem[32*y+4*x]; got != want[y][x] {
				t.Errorf("(%d,%d) = %#x, want %#x", x, y, got, want[y][x])
			}
		}

		if mem[32*y+12] != 0 {
			t.Errorf("row %d written past the screen", y)
		}
	}
}
