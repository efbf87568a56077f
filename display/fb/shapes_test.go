package fb

import (
	"testing"

	"kdisplay/display/pixel"
)

func TestCircleCounts(t *testing.T) {
	d := newTestFB(t, 16, 16, pixel.RGBA8888)
	d.DrawCircle(8, 8, 2, pixel.White, true)
	if n := countColor(d, pixel.White); n != 13 {
		t.Fatalf("filled r=2: %d pixels", n)
	}

	d.ClearScreen(pixel.Black)
	d.DrawCircle(8, 8, 2, pixel.White, false)
	if n := countColor(d, pixel.White); n != 8 {
		t.Fatalf("ring r=2: %d pixels", n)
	}
	if d.GetPixel(8, 8) == pixel.White {
		t.Fatalf("ring center filled")
	}

	d.ClearScreen(pixel.Black)
	d.DrawCircle(8, 8, 0, pixel.White, true)
	if n := countColor(d, pixel.White); n != 1 {
		t.Fatalf("filled r=0: %d pixels", n)
	}
}

func TestCircleClipsAtEdges(t *testing.T) {
	d := newTestFB(t, 8, 8, pixel.RGBA8888)
	d.DrawCircle(0, 0, 3, pixel.White, true)
	// Quarter disc: points with dx,dy >= 0 and dx²+dy² <= 9.
	if n := countColor(d, pixel.White); n != 11 {
		t.Fatalf("pixels=%d", n)
	}
}

func TestFilledTriangleSymmetricAndInsideHull(t *testing.T) {
	d := newTestFB(t, 16, 16, pixel.RGBA8888)
	d.DrawTriangle(Point{0, 0}, Point{10, 0}, Point{5, 10}, pixel.Red, true)

	prevWidth := 1 << 30
	for y := 0; y <= 10; y++ {
		lo, hi, width := -1, -1, 0
		for x := 0; x < 16; x++ {
			if d.GetPixel(x, y) != pixel.Red {
				continue
			}
			if lo < 0 {
				lo = x
			}
			hi = x
			width++
			// Inside the hull: y >= 0, 2x >= y, 2(10-x) >= y.
			if 2*x < y || 2*(10-x) < y {
				t.Fatalf("(%d,%d) outside the triangle", x, y)
			}
		}
		if width == 0 || hi-lo+1 != width {
			t.Fatalf("row %d not a single span: lo=%d hi=%d width=%d", y, lo, hi, width)
		}
		if lo+hi != 10 {
			t.Fatalf("row %d not symmetric about x=5: [%d,%d]", y, lo, hi)
		}
		if width > prevWidth {
			t.Fatalf("row %d wider than the row above", y)
		}
		prevWidth = width
	}
	if got := d.GetPixel(0, 0); got != pixel.Red {
		t.Fatalf("base corner missing")
	}
	if got := d.GetPixel(5, 10); got != pixel.Red {
		t.Fatalf("apex missing")
	}
	for x := 0; x < 16; x++ {
		if d.GetPixel(x, 11) == pixel.Red {
			t.Fatalf("pixel below apex at x=%d", x)
		}
	}
}

func TestFilledTriangleVertexOrderIrrelevant(t *testing.T) {
	a := newTestFB(t, 24, 24, pixel.RGBA8888)
	b := newTestFB(t, 24, 24, pixel.RGBA8888)
	a.DrawTriangle(Point{3, 20}, Point{21, 2}, Point{7, 9}, pixel.Green, true)
	b.DrawTriangle(Point{7, 9}, Point{3, 20}, Point{21, 2}, pixel.Green, true)
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			if a.GetPixel(x, y) != b.GetPixel(x, y) {
				t.Fatalf("differs at (%d,%d)", x, y)
			}
		}
	}
	if countColor(a, pixel.Green) == 0 {
		t.Fatalf("nothing drawn")
	}
}

func TestDegenerateTriangles(t *testing.T) {
	d := newTestFB(t, 16, 16, pixel.RGBA8888)
	d.DrawTriangle(Point{2, 5}, Point{9, 5}, Point{4, 5}, pixel.Blue, true)
	if n := countColor(d, pixel.Blue); n != 8 {
		t.Fatalf("flat triangle: %d pixels", n)
	}

	d.ClearScreen(pixel.Black)
	// Flat bottom and flat top halves.
	d.DrawTriangle(Point{5, 0}, Point{0, 6}, Point{10, 6}, pixel.Blue, true)
	for x := 0; x <= 10; x++ {
		if d.GetPixel(x, 6) != pixel.Blue {
			t.Fatalf("flat bottom gap at %d", x)
		}
	}
	d.ClearScreen(pixel.Black)
	d.DrawTriangle(Point{0, 0}, Point{10, 0}, Point{5, 6}, pixel.Blue, true)
	for x := 0; x <= 10; x++ {
		if d.GetPixel(x, 0) != pixel.Blue {
			t.Fatalf("flat top gap at %d", x)
		}
	}
}

func TestTriangleOutline(t *testing.T) {
	d := newTestFB(t, 16, 16, pixel.RGBA8888)
	d.DrawTriangle(Point{1, 1}, Point{12, 1}, Point{1, 12}, pixel.White, false)
	if d.GetPixel(4, 4) == pixel.White {
		t.Fatalf("outline filled the interior")
	}
	if d.GetPixel(1, 1) != pixel.White || d.GetPixel(12, 1) != pixel.White || d.GetPixel(1, 12) != pixel.White {
		t.Fatalf("vertices missing")
	}
}
