package accel

import (
	"kdisplay/display/fb"
	"kdisplay/display/pixel"
)

// Operation is one 2D drawing request.
type Operation interface {
	isOperation()
}

type FillRect struct {
	Rect  fb.Rect
	Color pixel.Color
}

type DrawRect struct {
	Rect      fb.Rect
	Color     pixel.Color
	Thickness uint32
}

type DrawLine struct {
	From, To  fb.Point
	Color     pixel.Color
	Thickness uint32
}

// Blit copies Src to Dst within the framebuffer.
type Blit struct {
	Src, Dst fb.Rect
}

type ClearScreen struct {
	Color pixel.Color
}

type DrawCircle struct {
	Center fb.Point
	Radius int
	Color  pixel.Color
	Filled bool
}

type DrawTriangle struct {
	P1, P2, P3 fb.Point
	Color      pixel.Color
	Filled     bool
}

func (FillRect) isOperation()     {}
func (DrawRect) isOperation()     {}
func (DrawLine) isOperation()     {}
func (Blit) isOperation()         {}
func (ClearScreen) isOperation()  {}
func (DrawCircle) isOperation()   {}
func (DrawTriangle) isOperation() {}

// software draws op on d. It reports false for operations it does not know.
func software(d *fb.Driver, op Operation) bool {
	switch o := op.(type) {
	case FillRect:
		d.FillRect(o.Rect.X, o.Rect.Y, o.Rect.W, o.Rect.H, o.Color)
	case DrawRect:
		d.DrawRect(o.Rect.X, o.Rect.Y, o.Rect.W, o.Rect.H, o.Color)
	case DrawLine:
		d.DrawLine(o.From.X, o.From.Y, o.To.X, o.To.Y, o.Color)
	case Blit:
		d.Blit(o.Src, o.Dst, nil)
	case ClearScreen:
		d.ClearScreen(o.Color)
	case DrawCircle:
		d.DrawCircle(o.Center.X, o.Center.Y, o.Radius, o.Color, o.Filled)
	case DrawTriangle:
		d.DrawTriangle(o.P1, o.P2, o.P3, o.Color, o.Filled)
	default:
		return false
	}
	return true
}
