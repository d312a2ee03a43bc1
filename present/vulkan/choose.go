package vulkan

import (
	"errors"
	"fmt"
)

var errNoMemoryType = errors.New("vulkan: no suitable memory type")

// chooseFormat picks a B8G8R8A8 surface format, which matches the byte
// order of the staging buffer.
func chooseFormat(fs []vkSurfaceFormat) (vkSurfaceFormat, error) {
	for _, want := range []uint32{formatB8G8R8A8Unorm, formatB8G8R8A8SRGB} {
		for _, f := range fs {
			if f.Format == want {
				return f, nil
			}
		}
	}

	return vkSurfaceFormat{}, fmt.Errorf("vulkan: surface has no B8G8R8A8 format among %d", len(fs))
}

// chooseExtent returns the swapchain extent for a w×h window.
func chooseExtent(caps vkSurfaceCapabilities, w, h uint32) vkExtent2D {
	if caps.CurrentExtent.Width != undefinedExtent {
		return caps.CurrentExtent
	}

	return vkExtent2D{
		Width:  min(max(w, caps.MinImageExtent.Width), caps.MaxImageExtent.Width),
		Height: min(max(h, caps.MinImageExtent.Height), caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image more than the minimum.
func chooseImageCount(caps vkSurfaceCapabilities) uint32 {
	n := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 {
		n = min(n, caps.MaxImageCount)
	}

	return n
}

// choosePresentMode returns FIFO for vsync, which every device supports,
// and otherwise the first non-blocking mode available.
func choosePresentMode(modes []uint32, vsync bool) uint32 {
	if vsync {
		return presentModeFIFO
	}

	for _, want := range []uint32{presentModeMailbox, presentModeImmediate} {
		for _, m := range modes {
			if m == want {
				return m
			}
		}
	}

	return presentModeFIFO
}

// findMemoryType returns the index of a memory type allowed by typeBits
// that has all the flags.
func findMemoryType(props *vkPhysicalDeviceMemoryProperties, typeBits, flags uint32) (uint32, error) {
	for i := range min(props.TypeCount, uint32(len(props.Types))) {
		if typeBits&(1<<i) != 0 && props.Types[i].PropertyFlags&flags == flags {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: bits %#x flags %#x", errNoMemoryType, typeBits, flags)
}

// stagingSize returns the buffer size to allocate for need bytes when cur
// bytes are allocated. The buffer only grows.
func stagingSize(cur, need uint64) uint64 {
	if need <= cur {
		return cur
	}

	return max(need, cur+cur/2)
}

// unwind is a stack of release functions.
type unwind []func()

func (u *unwind) push(f func()) {
	*u = append(*u, f)
}

// run calls the functions in reverse order and empties the stack.
func (u *unwind) run() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}

	*u = nil
}
