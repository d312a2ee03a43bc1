//go:build !linux

package wayland

import (
	"fmt"

	"github.com/c35s/hydra/present"
)

func open(present.Config) (present.Surface, error) {
	return nil, fmt.Errorf("%w: wayland needs linux", present.ErrUnsupported)
}
