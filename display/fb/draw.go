package fb

import "kdisplay/display/pixel"

type Point struct {
	X, Y int
}

// Rect is the half-open area [X, X+W) x [Y, Y+H).
type Rect struct {
	X, Y, W, H int
}

// clip intersects r with the screen and returns the inclusive-exclusive bounds.
func (d *Driver) clip(r Rect) (x0, y0, x1, y1 int, ok bool) {
	if !d.Initialized() || r.W <= 0 || r.H <= 0 {
		return 0, 0, 0, 0, false
	}
	x0, y0 = r.X, r.Y
	x1, y1 = r.X+r.W, r.Y+r.H
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > d.width {
		x1 = d.width
	}
	if y1 > d.height {
		y1 = d.height
	}
	return x0, y0, x1, y1, x0 < x1 && y0 < y1
}

// FillRect colors the intersection of [x,x+w) x [y,y+h) with the screen.
func (d *Driver) FillRect(x, y, w, h int, c pixel.Color) {
	x0, y0, x1, y1, ok := d.clip(Rect{X: x, Y: y, W: w, H: h})
	if !ok {
		return
	}
	v := pixel.Encode(c, d.info.Format)
	for yy := y0; yy < y1; yy++ {
		_ = d.region.Fill(d.offset(x0, yy), d.bpp, x1-x0, v)
	}
}

func (d *Driver) ClearScreen(c pixel.Color) {
	d.FillRect(0, 0, d.Width(), d.Height(), c)
}

// DrawRect outlines [x,x+w) x [y,y+h).
func (d *Driver) DrawRect(x, y, w, h int, c pixel.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	r, b := x+w-1, y+h-1
	d.DrawLine(x, y, r, y, c)
	d.DrawLine(r, y, r, b, c)
	d.DrawLine(r, b, x, b, c)
	d.DrawLine(x, b, x, y, c)
}

// Blit copies src of from into dst of d, pixel by pixel and without
// scaling. The copied area is the smaller of the two rectangles; every pixel
// is clipped against both framebuffers. from may be d itself, in which case
// overlapping areas are copied as if through a temporary buffer. A nil from
// means d.
func (d *Driver) Blit(src, dst Rect, from *Driver) {
	if from == nil {
		from = d
	}
	if !d.Initialized() || !from.Initialized() {
		return
	}
	w, h := minInt(src.W, dst.W), minInt(src.H, dst.H)
	if w <= 0 || h <= 0 {
		return
	}

	// Walk against the direction of the move when copying within one surface.
	rowStart, rowEnd, rowStep := 0, h, 1
	colStart, colEnd, colStep := 0, w, 1
	if from == d {
		if dst.Y > src.Y {
			rowStart, rowEnd, rowStep = h-1, -1, -1
		}
		if dst.Y == src.Y && dst.X > src.X {
			colStart, colEnd, colStep = w-1, -1, -1
		}
	}

	same := from.info.Format == d.info.Format
	for j := rowStart; j != rowEnd; j += rowStep {
		sy, dy := src.Y+j, dst.Y+j
		if sy < 0 || sy >= from.height || dy < 0 || dy >= d.height {
			continue
		}
		for i := colStart; i != colEnd; i += colStep {
			sx, dx := src.X+i, dst.X+i
			if !from.inBounds(sx, sy) || !d.inBounds(dx, dy) {
				continue
			}
			if same {
				v, err := from.region.ReadN(from.offset(sx, sy), from.bpp)
				if err == nil {
					d.putRaw(dx, dy, v)
				}
				continue
			}
			d.PutPixel(dx, dy, from.GetPixel(sx, sy))
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
