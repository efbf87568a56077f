//go:build cgo

package hal

import (
	"image"

	"kdisplay/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow opens a desktop window showing every frame the app presents.
// It blocks until the window closes.
func RunWindow(h HAL, newApp func(HAL) func() error) error {
	hh, ok := h.(*hostHAL)
	if !ok {
		return ErrNotImplemented
	}
	step := newApp(h)

	g := &hostGame{h: hh, step: step, w: 640, hgt: 480}
	if img, ok := hh.disp.snapshot(nil); ok {
		g.w, g.hgt = img.Bounds().Dx(), img.Bounds().Dy()
	}
	ebiten.SetWindowTitle("kdisplay (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(g.w, g.hgt)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h     *hostHAL
	img   *image.RGBA
	fbImg *ebiten.Image
	step  func() error
	w     int
	hgt   int
}

func (g *hostGame) Update() error {
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	img, ok := g.h.disp.snapshot(g.img)
	if !ok {
		return
	}
	g.img = img
	b := img.Bounds()
	if g.fbImg == nil || g.fbImg.Bounds().Size() != b.Size() {
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(b.Dx(), b.Dy())
		g.w, g.hgt = b.Dx(), b.Dy()
	}
	g.fbImg.WritePixels(img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.w, g.hgt
}
