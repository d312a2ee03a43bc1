// Package window presents frames in a desktop window hosted by ebiten.
// It registers the opengl backend and the two platform-native backends
// (DirectX on windows, Metal on darwin), and provides the window sink of
// the software backend.
//
// Ebiten runs one game loop per process, on the main thread. Programs that
// open windows wrap their work in Run, which hosts the loop on the main
// goroutine. The first surface starts the loop and fixes its graphics
// library; closing a surface minimizes the window, and the next surface
// restores it. Without Run, opening a window fails with present.ErrInit.
package window

import (
	"image"
	"os"
	"runtime"
	"slices"

	"github.com/c35s/hydra/present"
)

type library int

const (
	libAuto library = iota
	libOpenGL
	libDirectX
	libMetal
)

func (l library) String() string {
	switch l {
	case libOpenGL:
		return "opengl"
	case libDirectX:
		return "directx"
	case libMetal:
		return "metal"
	default:
		return "auto"
	}
}

// compatible reports whether a loop running l can host a surface that
// wants m.
func (l library) compatible(m library) bool {
	return l == m || l == libAuto || m == libAuto
}

// Backend is a windowed backend using one graphics library.
type Backend struct {
	kind present.Kind
	lib  library
	goos []string
}

var (
	OpenGL = &Backend{
		kind: present.KindOpenGL,
		lib:  libOpenGL,
		goos: []string{"linux", "freebsd", "windows", "darwin"},
	}

	DirectX = &Backend{
		kind: present.KindNativeA,
		lib:  libDirectX,
		goos: []string{"windows"},
	}

	Metal = &Backend{
		kind: present.KindNativeB,
		lib:  libMetal,
		goos: []string{"darwin"},
	}
)

func init() {
	present.Register(OpenGL)
	present.Register(DirectX)
	present.Register(Metal)
}

func (b *Backend) Kind() present.Kind {
	return b.kind
}

func (b *Backend) Supported() bool {
	return slices.Contains(b.goos, runtime.GOOS) && Available()
}

func (b *Backend) Init(cfg present.Config) (present.Surface, error) {
	return open(b.lib, cfg, cfg.Scale)
}

// Available reports whether a window can be opened: the package is built
// with ebiten and the host has a display.
func Available() bool {
	if !compiled {
		return false
	}

	switch runtime.GOOS {
	case "windows", "darwin":
		return true
	default:
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
}

// Sink shows prescaled canvases in a window.
type Sink struct {
	s *surface
}

// OpenSink opens a window sized for canvases of cfg's size times its scale.
func OpenSink(cfg present.Config) (*Sink, error) {
	cfg.Width *= cfg.Scale
	cfg.Height *= cfg.Scale

	s, err := open(libAuto, cfg, 1)
	if err != nil {
		return nil, err
	}

	return &Sink{s: s}, nil
}

// Show copies img to the window.
func (k *Sink) Show(img *image.RGBA) error {
	return k.s.show(img.Pix, img.Stride, img.Rect.Dx(), img.Rect.Dy())
}

func (k *Sink) Close() error {
	return k.s.Close()
}
