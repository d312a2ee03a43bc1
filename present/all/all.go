// Package all registers every presentation backend. Import it for its side
// effects.
package all

import (
	_ "github.com/c35s/hydra/present/fbdev"
	_ "github.com/c35s/hydra/present/software"
	_ "github.com/c35s/hydra/present/vulkan"
	_ "github.com/c35s/hydra/present/wayland"
	_ "github.com/c35s/hydra/present/window"
	_ "github.com/c35s/hydra/present/x11"
)
