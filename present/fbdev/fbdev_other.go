//go:build !linux

package fbdev

import (
	"fmt"

	"github.com/c35s/hydra/present"
)

func open(path string, _ present.Config) (present.Surface, error) {
	return nil, fmt.Errorf("%w: %s needs linux", present.ErrUnsupported, path)
}
