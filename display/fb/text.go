package fb

import (
	"image/color"
	"math"

	"kdisplay/display/fonts/font8x16"
	"kdisplay/display/pixel"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// displayer adapts a Driver to drivers.Displayer for tinyfont.
type displayer struct {
	d *Driver
}

var _ drivers.Displayer = displayer{}

func (a displayer) Size() (x, y int16) {
	return clampInt16(a.d.Width()), clampInt16(a.d.Height())
}

func (a displayer) SetPixel(x, y int16, c color.RGBA) {
	a.d.PutPixel(int(x), int(y), pixel.Color{R: c.R, G: c.G, B: c.B, A: c.A})
}

func (a displayer) Display() error { return nil }

// Displayer exposes d to tinygo display code (fonts, widgets).
func (d *Driver) Displayer() drivers.Displayer {
	return displayer{d: d}
}

// WriteText draws text with its top-left corner at (x, y) in 8x16 cells.
// Drawing stops before the first glyph that would cross the right edge.
func (d *Driver) WriteText(x, y int, text string, c pixel.Color) {
	if !d.Initialized() || y > math.MaxInt16-font8x16.Height || y < math.MinInt16 {
		return
	}
	disp := displayer{d: d}
	rgba := c.ToRGBA()
	baseline := int16(y + font8x16.Height - 1)
	cx := x
	for _, r := range text {
		if cx+font8x16.Width > d.width || cx > math.MaxInt16-font8x16.Width {
			return
		}
		if cx+font8x16.Width > 0 {
			tinyfont.DrawChar(disp, font8x16.Font, int16(cx), baseline, r, rgba)
		}
		cx += font8x16.Width
	}
}

// TextWidth is the pixel width WriteText needs for text.
func TextWidth(text string) int {
	if text == "" {
		return 0
	}
	_, w := tinyfont.LineWidth(font8x16.Font, text)
	return int(w)
}

func clampInt16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}

// WriteTextCentered draws text horizontally centered on row y. Text wider
// than the screen starts at x=0.
func (d *Driver) WriteTextCentered(y int, text string, c pixel.Color) {
	x := 0
	if w := TextWidth(text); w < d.Width() {
		x = (d.Width() - w) / 2
	}
	d.WriteText(x, y, text, c)
}

// WriteTextWithBackground fills the text's cells with bg before drawing it.
func (d *Driver) WriteTextWithBackground(x, y int, text string, fg, bg pixel.Color) {
	d.FillRect(x, y, TextWidth(text), font8x16.Height, bg)
	d.WriteText(x, y, text, fg)
}

// WriteTextWithShadow draws text in shadow offset by (dx, dy), then in fg on
// top. The shadow position is clamped to the screen origin.
func (d *Driver) WriteTextWithShadow(x, y int, text string, fg, shadow pixel.Color, dx, dy int) {
	d.WriteText(maxInt(x+dx, 0), maxInt(y+dy, 0), text, shadow)
	d.WriteText(x, y, text, fg)
}

// scaledDisplayer blows every glyph pixel up to an s x s block at (x, y).
type scaledDisplayer struct {
	d    *Driver
	x, y int
	s    int
}

func (a scaledDisplayer) Size() (x, y int16) {
	return font8x16.Width, font8x16.Height
}

func (a scaledDisplayer) SetPixel(x, y int16, c color.RGBA) {
	a.d.FillRect(a.x+int(x)*a.s, a.y+int(y)*a.s, a.s, a.s, pixel.Color{R: c.R, G: c.G, B: c.B, A: c.A})
}

func (a scaledDisplayer) Display() error { return nil }

// WriteTextScaled draws text with every glyph pixel scaled to a scale x scale
// block. Like WriteText it stops before the first glyph that would cross the
// right edge.
func (d *Driver) WriteTextScaled(x, y int, text string, c pixel.Color, scale int) {
	if scale == 1 {
		d.WriteText(x, y, text, c)
		return
	}
	if !d.Initialized() || scale <= 0 || scale > MaxDimension {
		return
	}
	cw := font8x16.Width * scale
	rgba := c.ToRGBA()
	cx := x
	for _, r := range text {
		if cx > d.width-cw {
			return
		}
		tinyfont.DrawChar(scaledDisplayer{d: d, x: cx, y: y, s: scale}, font8x16.Font, 0, font8x16.Height-1, r, rgba)
		cx += cw
	}
}
