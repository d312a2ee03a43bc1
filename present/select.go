package present

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Order returns the automatic selection order, most capable first.
func Order() []Kind {
	return []Kind{
		KindSoftware,
		KindVulkan,
		KindOpenGL,
		KindWayland,
		KindX11,
		KindFramebuffer,
		KindNativeA,
		KindNativeB,
	}
}

// Selector chooses a backend.
type Selector struct {

	// Override names the backend to use (see ParseKind). If Override is
	// empty or unrecognized, the selector picks automatically.
	Override string

	// Lookup finds a backend by kind.
	// If Lookup is nil, the selector uses the package registry.
	Lookup func(Kind) (Backend, bool)
}

// FromEnv returns a selector overridden by the HYDRA_BACKEND variable.
func FromEnv() Selector {
	return Selector{Override: os.Getenv(EnvBackend)}
}

// Select returns the backend to use. With a recognized override, it returns
// that backend or fails with ErrUnsupported. Otherwise it returns the first
// supported backend in Order, or the no-op backend.
func (s Selector) Select() (Backend, error) {
	if k, ok := s.override(); ok {
		return s.explicit(k)
	}

	if bs := s.candidates(); len(bs) > 0 {
		return bs[0], nil
	}

	return Noop(), nil
}

// Open selects a backend and initializes it with cfg. In automatic mode a
// backend that fails to initialize is skipped, ending with the no-op
// backend. An overridden backend's init error is returned.
func (s Selector) Open(cfg Config) (*Context, error) {
	if err := cfg.WithDefaults().validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if k, ok := s.override(); ok {
		b, err := s.explicit(k)
		if err != nil {
			return nil, err
		}

		c := NewContext(b)
		if err := c.Init(cfg); err != nil {
			return nil, err
		}

		return c, nil
	}

	for _, b := range s.candidates() {
		c := NewContext(b)

		err := c.Init(cfg)
		if err == nil {
			return c, nil
		}

		if !errors.Is(err, ErrInit) && !errors.Is(err, ErrUnsupported) {
			return nil, err
		}

		slog.Warn("present: backend init failed, trying next", "backend", b.Kind(), "err", err)
	}

	slog.Warn("present: no display backend available, frames are discarded")

	c := NewContext(Noop())
	if err := c.Init(cfg); err != nil {
		return nil, err
	}

	return c, nil
}

func (s Selector) override() (Kind, bool) {
	if s.Override == "" {
		return 0, false
	}

	k, ok := ParseKind(s.Override)
	if !ok {
		slog.Warn("present: unknown backend, selecting automatically", "backend", s.Override)
	}

	return k, ok
}

func (s Selector) explicit(k Kind) (Backend, error) {
	b, ok := s.lookup(k)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not compiled in", ErrUnsupported, k)
	}

	if !b.Supported() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, k)
	}

	return b, nil
}

// candidates returns the supported backends in selection order.
func (s Selector) candidates() []Backend {
	var bs []Backend

	for _, k := range Order() {
		if b, ok := s.lookup(k); ok && b.Supported() {
			bs = append(bs, b)
		}
	}

	return bs
}

func (s Selector) lookup(k Kind) (Backend, bool) {
	if k == KindNone {
		return Noop(), true
	}

	if s.Lookup != nil {
		return s.Lookup(k)
	}

	return Lookup(k)
}
