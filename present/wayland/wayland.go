// Package wayland presents frames on a Wayland compositor. It speaks the
// wire protocol directly: frames are scaled into an XRGB8888 wl_shm buffer
// backed by a memfd and shown in an xdg-shell toplevel.
package wayland

import (
	"os"
	"runtime"

	"github.com/c35s/hydra/present"
)

// Backend is the Wayland backend.
type Backend struct{}

func init() {
	present.Register(Backend{})
}

func (Backend) Kind() present.Kind {
	return present.KindWayland
}

func (Backend) Supported() bool {
	return runtime.GOOS == "linux" && os.Getenv("WAYLAND_DISPLAY") != ""
}

func (Backend) Init(cfg present.Config) (present.Surface, error) {
	return open(cfg)
}
