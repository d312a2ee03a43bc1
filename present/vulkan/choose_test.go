package vulkan

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChooseFormat(t *testing.T) {
	t.Run("prefers unorm", func(t *testing.T) {
		fs := []vkSurfaceFormat{
			{Format: 37},
			{Format: formatB8G8R8A8SRGB},
			{Format: formatB8G8R8A8Unorm, ColorSpace: colorSpaceSRGB},
		}

		f, err := chooseFormat(fs)
		if err != nil {
			t.Fatal(err)
		}

		if f.Format != formatB8G8R8A8Unorm {
			t.Errorf("format = %d, want %d", f.Format, formatB8G8R8A8Unorm)
		}
	})

	t.Run("srgb", func(t *testing.T) {
		f, err := chooseFormat([]vkSurfaceFormat{{Format: 37}, {Format: formatB8G8R8A8SRGB}})
		if err != nil {
			t.Fatal(err)
		}

		if f.Format != formatB8G8R8A8SRGB {
			t.Errorf("format = %d, want %d", f.Format, formatB8G8R8A8SRGB)
		}
	})

	t.Run("none", func(t *testing.T) {
		if _, err := chooseFormat([]vkSurfaceFormat{{Format: 37}}); err == nil {
			t.Error("want error")
		}
	})
}

func TestChooseExtent(t *testing.T) {
	caps := vkSurfaceCapabilities{
		CurrentExtent:  vkExtent2D{Width: undefinedExtent, Height: undefinedExtent},
		MinImageExtent: vkExtent2D{Width: 16, Height: 16},
		MaxImageExtent: vkExtent2D{Width: 1024, Height: 768},
	}

	cases := []struct {
		name string
		w, h uint32
		want vkExtent2D
	}{
		{"fits", 960, 720, vkExtent2D{960, 720}},
		{"small", 8, 4, vkExtent2D{16, 16}},
		{"large", 4096, 4096, vkExtent2D{1024, 768}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := chooseExtent(caps, c.w, c.h); got != c.want {
				t.Errorf("extent = %v, want %v", got, c.want)
			}
		})
	}

	t.Run("current", func(t *testing.T) {
		fixed := caps
		fixed.CurrentExtent = vkExtent2D{640, 480}

		if got := chooseExtent(fixed, 960, 720); got != fixed.CurrentExtent {
			t.Errorf("extent = %v, want %v", got, fixed.CurrentExtent)
		}
	})
}

func TestChooseImageCount(t *testing.T) {
	cases := []struct {
		min, max, want uint32
	}{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
	}

	for _, c := range cases {
		caps := vkSurfaceCapabilities{MinImageCount: c.min, MaxImageCount: c.max}
		if got := chooseImageCount(caps); got != c.want {
			t.Errorf("min %d max %d: count = %d, want %d", c.min, c.max, got, c.want)
		}
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []uint32{presentModeFIFO, presentModeImmediate, presentModeMailbox}

	cases := []struct {
		name  string
		modes []uint32
		vsync bool
		want  uint32
	}{
		{"vsync", all, true, presentModeFIFO},
		{"mailbox", all, false, presentModeMailbox},
		{"immediate", []uint32{presentModeFIFO, presentModeImmediate}, false, presentModeImmediate},
		{"fifo only", []uint32{presentModeFIFO}, false, presentModeFIFO},
		{"none", nil, false, presentModeFIFO},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := choosePresentMode(c.modes, c.vsync); got != c.want {
				t.Errorf("mode = %d, want %d", got, c.want)
			}
		})
	}
}

func TestFindMemoryType(t *testing.T) {
	var props vkPhysicalDeviceMemoryProperties
	props.TypeCount = 3
	props.Types[0].PropertyFlags = 0x1
	props.Types[1].PropertyFlags = memoryHostVisible
	props.Types[2].PropertyFlags = memoryHostVisible | memoryHostCoherent

	want := uint32(memoryHostVisible | memoryHostCoherent)

	i, err := findMemoryType(&props, 0b111, want)
	if err != nil {
		t.Fatal(err)
	}

	if i != 2 {
		t.Errorf("index = %d, want 2", i)
	}

	if _, err := findMemoryType(&props, 0b011, want); !errors.Is(err, errNoMemoryType) {
		t.Errorf("err = %v, want %v", err, errNoMemoryType)
	}

	// Types past TypeCount are never chosen.
	props.Types[5].PropertyFlags = want
	if _, err := findMemoryType(&props, 1<<5, want); !errors.Is(err, errNoMemoryType) {
		t.Errorf("err = %v, want %v", err, errNoMemoryType)
	}
}

func TestStagingSize(t *testing.T) {
	cases := []struct {
		cur, need, want uint64
	}{
		{0, 100, 100},
		{100, 50, 100},
		{100, 100, 100},
		{100, 120, 150},
		{100, 400, 400},
	}

	for _, c := range cases {
		if got := stagingSize(c.cur, c.need); got != c.want {
			t.Errorf("stagingSize(%d, %d) = %d, want %d", c.cur, c.need, got, c.want)
		}
	}
}

func TestUnwind(t *testing.T) {
	var (
		u   unwind
		got []int
	)

	for i := range 3 {
		u.push(func() { got = append(got, i) })
	}

	u.run()

	if diff := cmp.Diff([]int{2, 1, 0}, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	u.run()

	if len(got) != 3 {
		t.Errorf("second run called %d funcs", len(got)-3)
	}
}
