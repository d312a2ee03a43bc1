package sim

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/c35s/hydra/present"
	"github.com/cavaliergopher/cpio"
)

// Recorder writes frames as PNG files into a cpio archive.
type Recorder struct {
	cw  *cpio.Writer
	zw  *gzip.Writer
	img *image.RGBA
	buf bytes.Buffer
	n   int
}

// NewRecorder returns a recorder that writes a newc cpio archive to w,
// gzipped if compress is set. Close finishes the archive but doesn't
// close w.
func NewRecorder(w io.Writer, compress bool) *Recorder {
	r := &Recorder{}
	if compress {
		r.zw = gzip.NewWriter(w)
		w = r.zw
	}

	r.cw = cpio.NewWriter(w)
	return r
}

// Record appends f to the archive as frame-NNNNN.png.
func (r *Recorder) Record(f present.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	r.img = f.RGBA(r.img)
	r.buf.Reset()

	if err := png.Encode(&r.buf, r.img); err != nil {
		return err
	}

	err := r.cw.WriteHeader(&cpio.Header{
		Name: fmt.Sprintf("frame-%05d.png", r.n),
		Mode: cpio.TypeReg | 0644,
		Size: int64(r.buf.Len()),
	})

	if err != nil {
		return err
	}

	if _, err := r.cw.Write(r.buf.Bytes()); err != nil {
		return err
	}

	r.n++
	return nil
}

// Frames returns the number of frames recorded.
func (r *Recorder) Frames() int {
	return r.n
}

// Close writes the archive trailer and flushes the compressor.
func (r *Recorder) Close() error {
	if err := r.cw.Close(); err != nil {
		return err
	}

	if r.zw != nil {
		return r.zw.Close()
	}

	return nil
}
