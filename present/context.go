package present

import (
	"errors"
	"fmt"
	"log/slog"
)

// Context owns at most one surface of a backend. It starts uninitialized,
// becomes ready after a successful Init, and is uninitialized again after
// Shutdown. A Context is not safe for concurrent use.
type Context struct {
	b   Backend
	s   Surface
	cfg Config

	frames uint64
	w, h   int
}

// NewContext returns an uninitialized context for b.
func NewContext(b Backend) *Context {
	return &Context{b: b}
}

// Kind returns the backend's kind.
func (c *Context) Kind() Kind {
	return c.b.Kind()
}

// Ready reports whether the context holds a surface.
func (c *Context) Ready() bool {
	return c.s != nil
}

// Config returns the config of the current surface.
func (c *Context) Config() Config {
	return c.cfg
}

// Frames returns the number of frames presented since Init.
func (c *Context) Frames() uint64 {
	return c.frames
}

// Init initializes the backend with cfg. It fails if the context is
// already ready.
func (c *Context) Init(cfg Config) error {
	if c.s != nil {
		return fmt.Errorf("%w: %v is already initialized", ErrInit, c.Kind())
	}

	cfg = cfg.WithDefaults()
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if !c.b.Supported() {
		return fmt.Errorf("%w: %v", ErrUnsupported, c.Kind())
	}

	s, err := c.b.Init(cfg)
	if err != nil {
		if errors.Is(err, ErrInit) {
			return err
		}

		return fmt.Errorf("%w: %v: %w", ErrInit, c.Kind(), err)
	}

	c.s = s
	c.cfg = cfg
	c.frames = 0
	c.w, c.h = cfg.Width, cfg.Height

	slog.Debug("present: initialized", "backend", c.Kind(), "width", cfg.Width, "height", cfg.Height)
	return nil
}

// Present displays f. It fails with ErrNotReady, without other effects,
// if the context isn't initialized.
func (c *Context) Present(f Frame) error {
	if c.s == nil {
		return ErrNotReady
	}

	if err := f.Validate(); err != nil {
		return err
	}

	if f.Width != c.w || f.Height != c.h {
		slog.Debug("present: resize", "backend", c.Kind(), "width", f.Width, "height", f.Height)
		c.w, c.h = f.Width, f.Height
	}

	if err := c.s.Present(f); err != nil {
		return err
	}

	c.frames++
	return nil
}

// Shutdown releases the surface. It does nothing if the context isn't
// initialized.
func (c *Context) Shutdown() error {
	if c.s == nil {
		return nil
	}

	s := c.s
	c.s = nil

	return s.Close()
}
