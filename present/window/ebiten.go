//go:build !headless

package window

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c35s/hydra/present"
	"github.com/hajimehoshi/ebiten/v2"
)

const compiled = true

// startTimeout bounds the wait for the first drawn frame.
const startTimeout = 5 * time.Second

var (
	errClosed = errors.New("window: window was closed")
	errNoHost = errors.New("window: no game loop host; wrap the program in window.Run")
)

var loop struct {
	mu  sync.Mutex
	g   *game
	lib library

	// host is set while Run hosts the game loop. The first surface sends
	// its game on it.
	host chan start
}

// start asks the host to run g with lib.
type start struct {
	g   *game
	lib library
}

// Run calls fn on a new goroutine and hosts the window's game loop on the
// calling goroutine, which must be the main one. Windows can only be opened
// while fn runs. When fn returns, the window closes and Run returns fn's
// error.
func Run(fn func() error) error {
	loop.mu.Lock()
	if loop.host != nil {
		loop.mu.Unlock()
		return errors.New("window: Run is already hosting")
	}

	host := make(chan start)
	loop.host = host
	loop.mu.Unlock()

	defer func() {
		loop.mu.Lock()
		loop.host = nil
		loop.mu.Unlock()
	}()

	errc := make(chan error, 1)
	go func() {
		errc <- fn()
	}()

	select {
	case err := <-errc:
		return err

	case st := <-host:
		done := make(chan error, 1)
		go func() {
			err := <-errc
			st.g.stop()
			done <- err
		}()

		st.g.run(st.lib)
		return <-done
	}
}

func (l library) ebiten() ebiten.GraphicsLibrary {
	switch l {
	case libOpenGL:
		return ebiten.GraphicsLibraryOpenGL
	case libDirectX:
		return ebiten.GraphicsLibraryDirectX
	case libMetal:
		return ebiten.GraphicsLibraryMetal
	default:
		return ebiten.GraphicsLibraryAuto
	}
}

// game is the ebiten.Game behind every surface. Surfaces write RGBA pixels
// into pix; Draw uploads them on the next frame.
type game struct {
	mu    sync.Mutex
	w, h  int
	pix   []byte
	dirty bool
	drop  bool
	img   *ebiten.Image

	drawn    chan struct{}
	done     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	err      error
}

func newGame() *game {
	return &game{
		drawn: make(chan struct{}, 1),
		done:  make(chan struct{}),
		quit:  make(chan struct{}),
	}
}

func (g *game) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}

	select {
	case <-g.quit:
		return ebiten.Termination
	default:
	}

	return nil
}

// stop ends the game loop at its next update.
func (g *game) stop() {
	g.quitOnce.Do(func() {
		close(g.quit)
	})
}

func (g *game) Draw(screen *ebiten.Image) {
	g.mu.Lock()

	if g.drop && g.img != nil {
		g.img.Deallocate()
		g.img = nil
	}

	g.drop = false

	if g.dirty {
		if g.img != nil && (g.img.Bounds().Dx() != g.w || g.img.Bounds().Dy() != g.h) {
			g.img.Deallocate()
			g.img = nil
		}

		if g.img == nil {
			g.img = ebiten.NewImage(g.w, g.h)
		}

		g.img.WritePixels(g.pix)
		g.dirty = false
	}

	img := g.img
	g.mu.Unlock()

	if img != nil {
		screen.DrawImage(img, nil)
	}

	select {
	case g.drawn <- struct{}{}:
	default:
	}
}

func (g *game) Layout(_, _ int) (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.w, g.h
}

func (g *game) run(lib library) {
	defer close(g.done)

	opts := ebiten.RunGameOptions{GraphicsLibrary: lib.ebiten()}
	if err := ebiten.RunGameWithOptions(g, &opts); err != nil {
		g.err = err
		slog.Error("window: game loop", "err", err)
	}
}

// open returns a surface on the process window. On first use it hands the
// game loop to the goroutine in Run.
func open(lib library, cfg present.Config, scale int) (*surface, error) {
	loop.mu.Lock()
	defer loop.mu.Unlock()

	if loop.g != nil {
		select {
		case <-loop.g.done:
			return nil, fmt.Errorf("%w: %w", present.ErrInit, errClosed)
		default:
		}

		if !loop.lib.compatible(lib) {
			return nil, fmt.Errorf("%w: window runs %v, can't switch to %v", present.ErrInit, loop.lib, lib)
		}

		loop.g.resize(cfg.Width, cfg.Height)
		configure(cfg, scale)
		ebiten.RestoreWindow()

		return &surface{g: loop.g, scale: scale}, nil
	}

	if loop.host == nil {
		return nil, fmt.Errorf("%w: %w", present.ErrInit, errNoHost)
	}

	g := newGame()
	g.resize(cfg.Width, cfg.Height)
	configure(cfg, scale)

	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)

	select {
	case loop.host <- start{g: g, lib: lib}:
	case <-time.After(startTimeout):
		return nil, fmt.Errorf("%w: game loop host didn't start within %v", present.ErrInit, startTimeout)
	}

	// The loop can't be restarted, so it stays registered even if it's
	// slow to draw.
	select {
	case <-g.drawn:
		loop.g, loop.lib = g, lib

	case <-g.done:
		loop.g, loop.lib = g, lib
		return nil, fmt.Errorf("%w: game loop exited: %w", present.ErrInit, g.err)

	case <-time.After(startTimeout):
		loop.g, loop.lib = g, lib
		return nil, fmt.Errorf("%w: window didn't draw within %v", present.ErrInit, startTimeout)
	}

	slog.Debug("window: started", "library", lib, "width", cfg.Width, "height", cfg.Height)
	return &surface{g: g, scale: scale}, nil
}

func configure(cfg present.Config, scale int) {
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width*scale, cfg.Height*scale)
	ebiten.SetVsyncEnabled(cfg.VSync)
}

// resize reallocates the pixel buffer for a w×h image.
func (g *game) resize(w, h int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if w == g.w && h == g.h && g.pix != nil {
		return
	}

	g.w, g.h = w, h
	g.pix = make([]byte, 4*w*h)
}

type surface struct {
	g      *game
	scale  int
	closed bool
}

func (s *surface) Present(f present.Frame) error {
	return s.update(f.Width, f.Height, func(pix []byte) {
		present.PutRGBA(pix, 4*f.Width, f.Width, f.Height, f)
	})
}

// show copies RGBA rows that are stride bytes apart.
func (s *surface) show(pix []byte, stride, w, h int) error {
	return s.update(w, h, func(dst []byte) {
		for y := range h {
			copy(dst[4*w*y:4*w*(y+1)], pix[stride*y:])
		}
	})
}

func (s *surface) update(w, h int, fill func([]byte)) error {
	if s.closed {
		return present.ErrNotReady
	}

	select {
	case <-s.g.done:
		return errClosed
	default:
	}

	s.g.mu.Lock()
	resized := w != s.g.w || h != s.g.h
	if resized {
		s.g.w, s.g.h = w, h
		s.g.pix = make([]byte, 4*w*h)
	}

	fill(s.g.pix)
	s.g.dirty = true
	s.g.mu.Unlock()

	// Outside the lock: the main thread takes it in Layout.
	if resized {
		ebiten.SetWindowSize(w*s.scale, h*s.scale)
	}

	return nil
}

// Close detaches the surface: the window is minimized and its texture
// dropped.
func (s *surface) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	s.g.mu.Lock()
	s.g.drop = true
	s.g.dirty = false
	s.g.mu.Unlock()

	ebiten.MinimizeWindow()
	return nil
}
