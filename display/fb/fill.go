package fb

import (
	"math"

	"kdisplay/display/pixel"
)

// DrawHLine colors w pixels of row y starting at x.
func (d *Driver) DrawHLine(x, y, w int, c pixel.Color) {
	d.FillRect(x, y, w, 1, c)
}

// DrawVLine colors h pixels of column x starting at y.
func (d *Driver) DrawVLine(x, y, h int, c pixel.Color) {
	d.FillRect(x, y, 1, h, c)
}

// FillRoundedRect fills [x,x+w) x [y,y+h) with corners rounded to radius r.
// r is reduced so the corner arcs never leave the rectangle.
func (d *Driver) FillRoundedRect(x, y, w, h, r int, c pixel.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	if lim := (minInt(w, h) - 1) / 2; r > lim {
		r = lim
	}
	if r <= 0 {
		d.FillRect(x, y, w, h, c)
		return
	}
	right, bottom := x+w-1-r, y+h-1-r
	d.DrawCircle(x+r, y+r, r, c, true)
	d.DrawCircle(right, y+r, r, c, true)
	d.DrawCircle(x+r, bottom, r, c, true)
	d.DrawCircle(right, bottom, r, c, true)
	d.FillRect(x+r, y, w-2*r, h, c)
	d.FillRect(x, y+r, r, h-2*r, c)
	d.FillRect(x+w-r, y+r, r, h-2*r, c)
}

// FillGradient fills area with a linear ramp from from to to. The ramp runs
// left to right, or top to bottom when vertical is set. The first and last
// columns (rows) get exactly from and to.
func (d *Driver) FillGradient(area Rect, from, to pixel.Color, vertical bool) {
	x0, y0, x1, y1, ok := d.clip(area)
	if !ok {
		return
	}
	n := area.W
	if vertical {
		n = area.H
	}
	at := func(i int) pixel.Color {
		if n == 1 {
			return from
		}
		return from.Lerp(to, float64(i)/float64(n-1))
	}
	if vertical {
		for yy := y0; yy < y1; yy++ {
			d.FillRect(x0, yy, x1-x0, 1, at(yy-area.Y))
		}
		return
	}
	for xx := x0; xx < x1; xx++ {
		d.FillRect(xx, y0, 1, y1-y0, at(xx-area.X))
	}
}

// Scroll moves the whole screen up by lines rows (down when lines is
// negative) and fills the uncovered rows with fill. Scrolling by the height
// or more clears the screen.
func (d *Driver) Scroll(lines int, fill pixel.Color) {
	if !d.Initialized() || lines == 0 {
		return
	}
	n := absInt(lines)
	if lines == math.MinInt || n >= d.height {
		d.ClearScreen(fill)
		return
	}
	keep := (d.height - n) * d.stride
	if lines > 0 {
		_ = d.region.Move(0, n*d.stride, keep)
		d.FillRect(0, d.height-n, d.width, n, fill)
		return
	}
	_ = d.region.Move(n*d.stride, 0, keep)
	d.FillRect(0, 0, d.width, n, fill)
}
