package fb

import (
	"errors"
	"image"
	"image/color"
	"io"

	"kdisplay/display/pixel"

	"golang.org/x/image/bmp"
)

var _ interface {
	image.Image
	Set(x, y int, c color.Color)
} = (*Driver)(nil)

func (d *Driver) ColorModel() color.Model { return color.RGBAModel }

func (d *Driver) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.Width(), d.Height())
}

func (d *Driver) At(x, y int) color.Color {
	return d.GetPixel(x, y).ToRGBA()
}

func (d *Driver) Set(x, y int, c color.Color) {
	d.PutPixel(x, y, pixel.FromColor(c))
}

// SnapshotBMP writes the visible surface as a BMP image.
func (d *Driver) SnapshotBMP(w io.Writer) error {
	if !d.Initialized() {
		return errors.New("fb: snapshot of uninitialized framebuffer")
	}
	return bmp.Encode(w, d)
}
