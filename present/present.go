// Package present puts frames on a display. Each display technology is a
// Backend registered under a Kind; a Selector picks one at runtime and
// falls back to a no-op backend when nothing else works.
package present

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a presentation backend.
type Kind int

const (
	KindNone Kind = iota
	KindSoftware
	KindOpenGL
	KindVulkan
	KindWayland
	KindX11
	KindFramebuffer
	KindNativeA // DirectX on windows
	KindNativeB // Metal on darwin
)

var kindNames = [...]string{
	KindNone:        "none",
	KindSoftware:    "software",
	KindOpenGL:      "opengl",
	KindVulkan:      "vulkan",
	KindWayland:     "wayland",
	KindX11:         "x11",
	KindFramebuffer: "framebuffer",
	KindNativeA:     "platform-native-a",
	KindNativeB:     "platform-native-b",
}

var kindAliases = map[string]Kind{
	"sdl":   KindSoftware,
	"gl":    KindOpenGL,
	"fbdev": KindFramebuffer,
	"win32": KindNativeA,
	"macos": KindNativeB,
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// ParseKind parses a backend name. Names are case-insensitive and include
// the aliases sdl, gl, fbdev, win32 and macos.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))

	for k, name := range kindNames {
		if s == name {
			return Kind(k), true
		}
	}

	k, ok := kindAliases[s]
	return k, ok
}

// Backend is one way of displaying frames.
type Backend interface {
	Kind() Kind

	// Supported reports whether the backend can work on this host. It has
	// no side effects: it never opens a window or a connection.
	Supported() bool

	// Init acquires everything the backend needs to present frames of
	// cfg's size. If Init fails, it has released whatever it acquired.
	Init(cfg Config) (Surface, error)
}

// Surface is an initialized backend.
type Surface interface {

	// Present displays f. If f's size differs from the previous frame's,
	// the surface resizes itself first. Present doesn't retain f.
	Present(f Frame) error

	// Close releases the surface's resources.
	Close() error
}

// Config configures a backend surface.
type Config struct {

	// Width and Height are the size of the frames the caller expects to
	// present. Frames of another size are still accepted.
	// If either is 0, the default is 480x360.
	Width, Height int

	// Scale is the integer magnification applied by windowed backends.
	// If Scale is 0, the default is 2.
	Scale int

	// VSync syncs presentation to the display refresh where supported.
	VSync bool

	// Title is the window title.
	// If Title is empty, the default is "Hydra".
	Title string
}

const (
	WidthDefault  = 480
	HeightDefault = 360
	ScaleDefault  = 2
	TitleDefault  = "Hydra"

	// EnvBackend is the environment variable that overrides backend selection.
	EnvBackend = "HYDRA_BACKEND"
)

var (
	ErrUnsupported  = errors.New("present: unsupported backend")
	ErrInit         = errors.New("present: backend init failed")
	ErrNotReady     = errors.New("present: surface not initialized")
	ErrInvalidFrame = errors.New("present: invalid frame")
	ErrConfig       = errors.New("present: invalid config")
)

// Frame is a tightly packed image. Each word is 0xAARRGGBB, rows are
// Width words long, and there is no padding.
type Frame struct {
	Pix    []uint32
	Width  int
	Height int
}

// Validate checks that f's dimensions are positive and Pix holds them.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}

	if f.Height > len(f.Pix)/f.Width {
		return fmt.Errorf("%w: %d words for %dx%d", ErrInvalidFrame, len(f.Pix), f.Width, f.Height)
	}

	return nil
}

// WithDefaults returns c with zero fields set to their defaults.
func (c Config) WithDefaults() Config {
	if c.Width == 0 || c.Height == 0 {
		c.Width = WidthDefault
		c.Height = HeightDefault
	}

	if c.Scale == 0 {
		c.Scale = ScaleDefault
	}

	if c.Title == "" {
		c.Title = TitleDefault
	}

	return c
}

func (c Config) validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("negative size: %dx%d", c.Width, c.Height)
	}

	if c.Scale < 1 || c.Scale > 16 {
		return fmt.Errorf("scale out of range: %d", c.Scale)
	}

	return nil
}
