// Package vulkan presents frames with Vulkan on an XCB window. Frames are
// scaled into a host-visible staging buffer and copied into swapchain
// images. The loader is opened at run time, so the package needs no cgo;
// the backend is compiled in with the vulkan build tag.
package vulkan

import (
	"os"
	"runtime"

	"github.com/c35s/hydra/present"
)

// LoaderName is the Vulkan loader library.
const LoaderName = "libvulkan.so.1"

// Backend is the Vulkan backend.
type Backend struct{}

func init() {
	present.Register(Backend{})
}

func (Backend) Kind() present.Kind {
	return present.KindVulkan
}

// Supported reports whether the backend is compiled in, there is an X11
// display, and the loader can be opened.
func (Backend) Supported() bool {
	return compiled && runtime.GOOS == "linux" && os.Getenv("DISPLAY") != "" && probe()
}

func (Backend) Init(cfg present.Config) (present.Surface, error) {
	return open(cfg)
}
