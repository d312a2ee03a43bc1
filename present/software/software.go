// Package software is the CPU presentation backend. Frames are scaled into
// a window-sized canvas with nearest-neighbour sampling, and the canvas is
// shown in a window or, offscreen, only kept.
package software

import (
	"image"

	"github.com/c35s/hydra/present"
	"github.com/c35s/hydra/present/window"
	"golang.org/x/image/draw"
)

// Backend is the software backend.
type Backend struct {

	// Offscreen keeps frames in the canvas without opening a window.
	// An offscreen backend is supported everywhere.
	Offscreen bool
}

func init() {
	present.Register(&Backend{})
}

func (b *Backend) Kind() present.Kind {
	return present.KindSoftware
}

func (b *Backend) Supported() bool {
	return b.Offscreen || window.Available()
}

func (b *Backend) Init(cfg present.Config) (present.Surface, error) {
	s := Surface{
		canvas: image.NewRGBA(image.Rect(0, 0, cfg.Width*cfg.Scale, cfg.Height*cfg.Scale)),
	}

	if !b.Offscreen {
		sink, err := window.OpenSink(cfg)
		if err != nil {
			return nil, err
		}

		s.sink = sink
	}

	return &s, nil
}

// Surface is an initialized software backend.
type Surface struct {
	canvas *image.RGBA
	src    *image.RGBA
	sink   *window.Sink
}

// Canvas returns the composed image of the last frame.
func (s *Surface) Canvas() *image.RGBA {
	return s.canvas
}

// Present scales f to the canvas. A frame of a new size reallocates the
// source image; the canvas keeps the window's size.
func (s *Surface) Present(f present.Frame) error {
	s.src = f.RGBA(s.src)
	draw.NearestNeighbor.Scale(s.canvas, s.canvas.Rect, s.src, s.src.Rect, draw.Src, nil)

	if s.sink != nil {
		return s.sink.Show(s.canvas)
	}

	return nil
}

func (s *Surface) Close() error {
	s.src = nil

	if s.sink != nil {
		sink := s.sink
		s.sink = nil
		return sink.Close()
	}

	return nil
}
