package present

import (
	"encoding/binary"
	"image"
)

var le = binary.LittleEndian

// PutBGRA copies the top-left w×h pixels of f into dst as B, G, R, A bytes,
// with rows stride bytes apart. This is the memory layout of X11 ZPixmaps,
// wl_shm XRGB8888, 32bpp framebuffers and B8G8R8A8 images. Pixels outside
// f or dst are skipped.
func PutBGRA(dst []byte, stride, w, h int, f Frame) {
	cols, rows := min(w, f.Width), min(h, f.Height)

	for y := range rows {
		row := dst[min(y*stride, len(dst)):]
		src := f.Pix[y*f.Width:]

		for x := range min(cols, len(row)/4) {
			le.PutUint32(row[4*x:], src[x])
		}
	}
}

// PutRGBA is PutBGRA with R, G, B, A byte order.
func PutRGBA(dst []byte, stride, w, h int, f Frame) {
	cols, rows := min(w, f.Width), min(h, f.Height)

	for y := range rows {
		row := dst[min(y*stride, len(dst)):]
		src := f.Pix[y*f.Width:]

		for x := range min(cols, len(row)/4) {
			p := src[x]
			row[4*x+0] = byte(p >> 16)
			row[4*x+1] = byte(p >> 8)
			row[4*x+2] = byte(p)
			row[4*x+3] = byte(p >> 24)
		}
	}
}

// RGBA converts f into img and returns it. If img is nil or has other
// bounds, RGBA allocates a new image.
func (f Frame) RGBA(img *image.RGBA) *image.RGBA {
	r := image.Rect(0, 0, f.Width, f.Height)
	if img == nil || img.Rect != r {
		img = image.NewRGBA(r)
	}

	PutRGBA(img.Pix, img.Stride, f.Width, f.Height, f)
	return img
}

// SetRGBA copies the top-left pixels of img back into f as opaque ARGB
// words.
func (f Frame) SetRGBA(img *image.RGBA) {
	cols := min(f.Width, img.Rect.Dx())
	rows := min(f.Height, img.Rect.Dy())

	for y := range rows {
		row := img.Pix[y*img.Stride:]
		dst := f.Pix[y*f.Width:]

		for x := range cols {
			p := row[4*x:]
			dst[x] = 0xff<<24 | uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		}
	}
}
