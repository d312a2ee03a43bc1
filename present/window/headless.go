//go:build headless

package window

import (
	"fmt"

	"github.com/c35s/hydra/present"
)

const compiled = false

// Run calls fn. Headless builds have no game loop to host.
func Run(fn func() error) error {
	return fn()
}

func open(lib library, _ present.Config, _ int) (*surface, error) {
	return nil, fmt.Errorf("%w: %v window in a headless build", present.ErrUnsupported, lib)
}

type surface struct{}

func (*surface) Present(present.Frame) error      { return present.ErrNotReady }
func (*surface) show(_ []byte, _, _, _ int) error { return present.ErrNotReady }
func (*surface) Close() error                     { return nil }
