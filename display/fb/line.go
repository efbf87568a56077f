package fb

import (
	"math/bits"

	"kdisplay/display/pixel"
)

// DrawLine rasterizes the segment with integer Bresenham, from (x1,y1) to
// (x2,y2) inclusive. Points off screen are skipped; segments reaching off
// screen are stepped only across the visible span of their major axis.
func (d *Driver) DrawLine(x1, y1, x2, y2 int, c pixel.Color) {
	if !d.Initialized() {
		return
	}
	if maxInt(x1, x2) < 0 || minInt(x1, x2) >= d.width || maxInt(y1, y2) < 0 || minInt(y1, y2) >= d.height {
		return
	}
	v := pixel.Encode(c, d.info.Format)
	plot := func(x, y int) { d.putRaw(x, y, v) }
	if d.inBounds(x1, y1) && d.inBounds(x2, y2) {
		bresenham(x1, y1, x2, y2, plot)
		return
	}
	clippedLine(x1, y1, x2, y2, d.width, d.height, plot)
}

func bresenham(x1, y1, x2, y2 int, plot func(x, y int)) {
	dx := absInt(x2 - x1)
	sx := -1
	if x1 < x2 {
		sx = 1
	}
	dy := -absInt(y2 - y1)
	sy := -1
	if y1 < y2 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x1, y1)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

// clippedLine plots the same pixels as bresenham, limited to the steps whose
// major coordinate is inside [0, major extent). Step k of a line with major
// length L and minor length S sits at minor offset floor((2kS+L) / 2L); the
// arithmetic is unsigned 128-bit so any int endpoints work.
func clippedLine(x1, y1, x2, y2, width, height int, plot func(x, y int)) {
	adx, sx := span(x1, x2)
	ady, sy := span(y1, y2)

	xMajor := adx >= ady
	major, minor := x1, y1
	smaj, smin := sx, sy
	long, short := adx, ady
	extent := width
	if !xMajor {
		major, minor = y1, x1
		smaj, smin = sy, sx
		long, short = ady, adx
		extent = height
	}
	if long == 0 {
		plot(x1, y1)
		return
	}

	// Visible steps along the major axis, as offsets from major.
	var lo, hi uint64
	if smaj > 0 {
		if major < 0 {
			lo = -uint64(major)
		}
		hi = uint64(extent-1) - uint64(major)
	} else {
		if major > extent-1 {
			lo = uint64(major) - uint64(extent-1)
		}
		hi = uint64(major)
	}
	if hi > long {
		hi = long
	}

	for k := lo; ; k++ {
		m := divRound(k, short, long)
		mj := step(major, smaj, k)
		mn := step(minor, smin, m)
		if xMajor {
			plot(mj, mn)
		} else {
			plot(mn, mj)
		}
		if k == hi {
			return
		}
	}
}

// span returns |b-a| exactly and the step direction from a to b.
func span(a, b int) (uint64, int) {
	if b >= a {
		return uint64(b) - uint64(a), 1
	}
	return uint64(a) - uint64(b), -1
}

// divRound is floor((2kS+L) / 2L) for k <= L and S <= L.
func divRound(k, s, l uint64) uint64 {
	hi, lo := bits.Mul64(k, s)
	q, r := bits.Div64(hi, lo, l)
	if r >= l-r {
		q++
	}
	return q
}

// step returns base + dir*k with wraparound, exact whenever the true result
// fits in an int.
func step(base, dir int, k uint64) int {
	if dir > 0 {
		return int(uint64(base) + k)
	}
	return int(uint64(base) - k)
}
