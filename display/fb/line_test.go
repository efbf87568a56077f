package fb

import (
	"math"
	"testing"

	"kdisplay/display/pixel"
)

func TestClippedLineMatchesBresenham(t *testing.T) {
	const w, h = 64, 48
	xs := []int{-70, -13, -1, 0, 5, 31, 63, 64, 100, 133}
	ys := []int{-50, -1, 0, 7, 47, 48, 90}
	var pts []Point
	for _, x := range xs {
		for _, y := range ys {
			pts = append(pts, Point{x, y})
		}
	}
	for _, a := range pts {
		for _, b := range pts {
			want := map[Point]int{}
			bresenham(a.X, a.Y, b.X, b.Y, func(x, y int) {
				if x >= 0 && x < w && y >= 0 && y < h {
					want[Point{x, y}]++
				}
			})
			got := map[Point]int{}
			visible := maxInt(a.X, b.X) >= 0 && minInt(a.X, b.X) < w && maxInt(a.Y, b.Y) >= 0 && minInt(a.Y, b.Y) < h
			if visible {
				clippedLine(a.X, a.Y, b.X, b.Y, w, h, func(x, y int) {
					if x >= 0 && x < w && y >= 0 && y < h {
						got[Point{x, y}]++
					}
				})
			}
			if len(got) != len(want) {
				t.Fatalf("%v-%v: %d pixels want %d", a, b, len(got), len(want))
			}
			for p, n := range want {
				if got[p] != n {
					t.Fatalf("%v-%v: pixel %v plotted %d times want %d", a, b, p, got[p], n)
				}
			}
		}
	}
}

func TestDrawLineFarEndpoints(t *testing.T) {
	d := newTestFB(t, 64, 48, pixel.RGBA8888)

	d.DrawLine(-1<<30, 5, 1<<30, 5, pixel.White)
	if n := countColor(d, pixel.White); n != 64 {
		t.Fatalf("horizontal: %d pixels", n)
	}

	d.ClearScreen(pixel.Black)
	d.DrawLine(-1<<40, -1<<40, 1<<40, 1<<40, pixel.White)
	if n := countColor(d, pixel.White); n != 48 || d.GetPixel(47, 47) != pixel.White {
		t.Fatalf("diagonal: %d pixels", n)
	}

	// Slope 40/2^31: the visible columns sit on the middle row.
	d.ClearScreen(pixel.Black)
	d.DrawLine(-1<<30, 0, 1<<30, 40, pixel.White)
	if n := countColor(d, pixel.White); n != 64 || d.GetPixel(0, 20) != pixel.White {
		t.Fatalf("shallow: %d pixels", n)
	}

	d.ClearScreen(pixel.Black)
	d.DrawLine(math.MinInt, 0, math.MaxInt, 0, pixel.White)
	d.DrawLine(3, math.MaxInt, 3, math.MinInt, pixel.White)
	if n := countColor(d, pixel.White); n != 64+47 {
		t.Fatalf("full range: %d pixels", n)
	}

	d.ClearScreen(pixel.Black)
	d.DrawLine(-1<<30, -10, 1<<30, -10, pixel.White)
	if n := countColor(d, pixel.White); n != 0 {
		t.Fatalf("off-screen line drew %d pixels", n)
	}
}

func TestCircleLargeRadius(t *testing.T) {
	d := newTestFB(t, 64, 48, pixel.RGBA8888)
	d.DrawCircle(32, 24, 1<<22, pixel.White, true)
	if n := countColor(d, pixel.White); n != 0 {
		t.Fatalf("oversized radius drew %d pixels", n)
	}
	d.DrawCircle(32, 24, MaxRadius, pixel.White, false)
	if n := countColor(d, pixel.White); n != 0 {
		t.Fatalf("ring outside the screen drew %d pixels", n)
	}
	d.DrawCircle(32, 24, MaxRadius, pixel.White, true)
	if n := countColor(d, pixel.White); n != 64*48 {
		t.Fatalf("covering disc: %d pixels", n)
	}
	d.ClearScreen(pixel.Black)
	d.DrawCircle(1<<40, 0, 5, pixel.White, true)
	if n := countColor(d, pixel.White); n != 0 {
		t.Fatalf("far circle drew %d pixels", n)
	}
}
