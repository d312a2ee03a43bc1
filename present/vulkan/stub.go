//go:build !vulkan || !linux

package vulkan

import (
	"fmt"

	"github.com/c35s/hydra/present"
)

const compiled = false

func probe() bool {
	return false
}

func open(present.Config) (present.Surface, error) {
	return nil, fmt.Errorf("%w: built without vulkan", present.ErrUnsupported)
}
