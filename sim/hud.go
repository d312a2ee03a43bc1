package sim

import (
	"image"

	"github.com/c35s/hydra/present"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

const (
	hudLineHeight = 13
	hudMargin     = 4
)

// HUD draws status text over the top of frames.
type HUD struct {
	img *image.RGBA
}

// Draw draws lines over a translucent band at the top of f.
func (h *HUD) Draw(f present.Frame, lines ...string) {
	if len(lines) == 0 || f.Validate() != nil {
		return
	}

	h.img = f.RGBA(h.img)

	dc := gg.NewContextForRGBA(h.img)
	band := float64(2*hudMargin + len(lines)*hudLineHeight)

	dc.SetRGBA(0, 0, 0, 0.625)
	dc.DrawRectangle(0, 0, float64(f.Width), band)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(1, 1, 1)

	for i, l := range lines {
		dc.DrawString(l, hudMargin, float64(hudMargin+(i+1)*hudLineHeight-3))
	}

	f.SetRGBA(h.img)
}

// DrawHUD draws lines over the top of f.
func DrawHUD(f present.Frame, lines ...string) {
	new(HUD).Draw(f, lines...)
}
