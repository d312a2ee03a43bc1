// Package fbdev presents frames on a Linux framebuffer device. Frames are
// scaled by the configured factor and clipped to the visible screen.
package fbdev

import (
	"fmt"
	"image"
	"os"
	"runtime"

	"github.com/c35s/hydra/present"
)

// DevicePath is the default framebuffer device.
const DevicePath = "/dev/fb0"

// Backend is the framebuffer backend.
type Backend struct {

	// Path is the framebuffer device.
	// If Path is empty, the backend uses DevicePath.
	Path string
}

func init() {
	present.Register(&Backend{})
}

func (b *Backend) Kind() present.Kind {
	return present.KindFramebuffer
}

func (b *Backend) Supported() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	_, err := os.Stat(b.path())
	return err == nil
}

func (b *Backend) Init(cfg present.Config) (present.Surface, error) {
	return open(b.path(), cfg)
}

func (b *Backend) path() string {
	if b.Path == "" {
		return DevicePath
	}

	return b.Path
}

// visible returns the visible xres×yres area of mapped framebuffer memory
// as an image. The image holds BGRA bytes.
func visible(mem []byte, lineLength, xres, yres, xoff, yoff int) (*image.RGBA, error) {
	start := yoff*lineLength + 4*xoff
	end := start + (yres-1)*lineLength + 4*xres

	if xres <= 0 || yres <= 0 || 4*(xoff+xres) > lineLength || end > len(mem) {
		return nil, fmt.Errorf("fbdev: %dx%d+%d+%d screen doesn't fit %d bytes of %d-byte lines",
			xres, yres, xoff, yoff, len(mem), lineLength)
	}

	img := image.RGBA{
		Pix:    mem[start:end],
		Stride: lineLength,
		Rect:   image.Rect(0, 0, xres, yres),
	}

	return &img, nil
}
