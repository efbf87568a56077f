package fb

import "kdisplay/display/pixel"

// MaxRadius bounds DrawCircle; larger circles are ignored.
const MaxRadius = 2 * MaxDimension

// DrawCircle rasterizes a circle of radius r around (cx, cy). Filled circles
// cover dx²+dy² <= r²; outlines cover the ring (r-1)² < dx²+dy² <= r².
// Only the part of the bounding box on screen is visited.
func (d *Driver) DrawCircle(cx, cy, r int, c pixel.Color, filled bool) {
	if !d.Initialized() || r < 0 || r > MaxRadius {
		return
	}
	if cx+r < 0 || cx-r >= d.width || cy+r < 0 || cy-r >= d.height {
		return
	}
	v := pixel.Encode(c, d.info.Format)
	outer := int64(r) * int64(r)
	inner := int64(0)
	if r > 1 {
		inner = int64(r-1) * int64(r-1)
	}
	dx0, dx1 := maxInt(-r, -cx), minInt(r, d.width-1-cx)
	dy0, dy1 := maxInt(-r, -cy), minInt(r, d.height-1-cy)
	for dy := dy0; dy <= dy1; dy++ {
		for dx := dx0; dx <= dx1; dx++ {
			d2 := int64(dx)*int64(dx) + int64(dy)*int64(dy)
			if d2 > outer {
				continue
			}
			if !filled && d2 <= inner {
				continue
			}
			d.putRaw(cx+dx, cy+dy, v)
		}
	}
}

// DrawTriangle outlines or fills the triangle p1 p2 p3.
func (d *Driver) DrawTriangle(p1, p2, p3 Point, c pixel.Color, filled bool) {
	if !d.Initialized() {
		return
	}
	if !filled {
		d.DrawLine(p1.X, p1.Y, p2.X, p2.Y, c)
		d.DrawLine(p2.X, p2.Y, p3.X, p3.Y, c)
		d.DrawLine(p3.X, p3.Y, p1.X, p1.Y, c)
		return
	}
	d.fillTriangle(p1, p2, p3, pixel.Encode(c, d.info.Format))
}

// fillTriangle scans from the top vertex to the bottom one. The long edge
// (top to bottom) bounds one side of every span; the upper half uses the
// top-middle edge for the other side and the lower half the middle-bottom
// edge. Edge crossings are kept as exact fractions and rounded inwards so
// no pixel outside the triangle is touched.
func (d *Driver) fillTriangle(a, b, c Point, v uint32) {
	if a.Y > b.Y {
		a, b = b, a
	}
	if b.Y > c.Y {
		b, c = c, b
	}
	if a.Y > b.Y {
		a, b = b, a
	}

	if a.Y == c.Y {
		lo, hi := minInt(a.X, minInt(b.X, c.X)), maxInt(a.X, maxInt(b.X, c.X))
		d.fillSpan(a.Y, lo, hi, v)
		return
	}

	y0, y1 := maxInt(a.Y, 0), minInt(c.Y, d.height-1)
	for y := y0; y <= y1; y++ {
		ln, ld := edgeX(a, c, y)
		var sn, sd int64
		switch {
		case y < b.Y:
			sn, sd = edgeX(a, b, y)
		case b.Y < c.Y:
			sn, sd = edgeX(b, c, y)
		default:
			// Flat bottom: the short side is the b-c segment itself.
			lo, hi := minInt(b.X, c.X), maxInt(b.X, c.X)
			lx := floorDiv(ln, ld)
			d.fillSpan(y, minInt(lo, lx), maxInt(hi, lx), v)
			continue
		}
		// Order the two crossings, then round inwards.
		if sn*ld < ln*sd {
			d.fillSpan(y, ceilDiv(sn, sd), floorDiv(ln, ld), v)
		} else {
			d.fillSpan(y, ceilDiv(ln, ld), floorDiv(sn, sd), v)
		}
	}
}

func (d *Driver) fillSpan(y, x0, x1 int, v uint32) {
	if y < 0 || y >= d.height {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 >= d.width {
		x1 = d.width - 1
	}
	if x0 > x1 {
		return
	}
	_ = d.region.Fill(d.offset(x0, y), d.bpp, x1-x0+1, v)
}

// edgeX returns the x where edge p-q crosses row y as num/den with den > 0.
// p.Y < q.Y is required.
func edgeX(p, q Point, y int) (num, den int64) {
	den = int64(q.Y - p.Y)
	num = int64(p.X)*den + int64(q.X-p.X)*int64(y-p.Y)
	return num, den
}

func floorDiv(n, d int64) int {
	q := n / d
	if n%d != 0 && n < 0 {
		q--
	}
	return int(q)
}

func ceilDiv(n, d int64) int {
	q := n / d
	if n%d != 0 && n > 0 {
		q++
	}
	return int(q)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
