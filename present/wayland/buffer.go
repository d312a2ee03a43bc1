package wayland

import "image"

// bufferRelease is the only wl_buffer event.
const bufferRelease = 0

// shmBuffer is one wl_buffer in the shared-memory pool. The compositor owns
// it from the commit that attaches it until it sends release.
type shmBuffer struct {
	id   uint32
	img  *image.RGBA // BGRA bytes over the pool
	busy bool
}

func (b *shmBuffer) event(op uint16, _ *args) error {
	if op == bufferRelease {
		b.busy = false
	}

	return nil
}

// free returns the first buffer the compositor isn't reading, or nil.
func free(bufs []*shmBuffer) *shmBuffer {
	for _, b := range bufs {
		if !b.busy {
			return b
		}
	}

	return nil
}
