package accel

import (
	"errors"
	"fmt"

	"kdisplay/display/fb"
	"kdisplay/display/pixel"
)

// ErrEngineBusy is returned when the engine does not go idle in time.
var ErrEngineBusy = errors.New("accel: engine busy timeout")

// Status polls before a command is declared stuck.
const busyPolls = 1000

// Registers is the MMIO surface the engine drives. *gpu.Controller
// implements it.
type Registers interface {
	WriteRegister(off, v uint32) error
	ReadRegister(off uint32) (uint32, error)
	Pause()
}

// command is one engine entry point: its operand block, the register the
// opcode goes to (also polled for the busy bit) and the opcode.
type command struct {
	operands uint32
	reg      uint32
	opcode   uint32
}

type regWrite struct {
	off, v uint32
}

type vendorTable struct {
	fill, line, blit, circle, triangle command

	busy  uint32
	color pixel.Format
	reset []regWrite
}

var (
	intelTable = vendorTable{
		fill:     command{0x7100, 0x7000, 0x02},
		blit:     command{0x7200, 0x7000, 0x04},
		line:     command{0x7300, 0x7000, 0x08},
		circle:   command{0x7400, 0x7000, 0x10},
		triangle: command{0x7500, 0x7000, 0x20},
		busy:     0x80000000,
		color:    pixel.BGRA8888,
		reset:    []regWrite{{0x7000, 1}, {0x7004, 0}, {0x7008, 1}},
	}
	nvidiaTable = vendorTable{
		fill:     command{0x1000, 0x1000, 0x01},
		line:     command{0x2000, 0x2000, 0x02},
		blit:     command{0x3000, 0x3000, 0x04},
		circle:   command{0x4000, 0x4000, 0x08},
		triangle: command{0x5000, 0x5000, 0x10},
		busy:     0x80000000,
		color:    pixel.RGBA8888,
		reset:    []regWrite{{0x1000, 0}, {0x2000, 0}, {0x3000, 0}, {0x4000, 0}, {0x5000, 0}},
	}
	amdTable = vendorTable{
		fill:     command{0x8000, 0x8000, 0x01},
		line:     command{0x9000, 0x9000, 0x02},
		blit:     command{0xA000, 0xA000, 0x04},
		circle:   command{0xB000, 0xB000, 0x08},
		triangle: command{0xC000, 0xC000, 0x10},
		busy:     0x80000000,
		color:    pixel.RGBA8888,
		reset:    []regWrite{{0x8000, 0}, {0x9000, 0}, {0xA000, 0}, {0xB000, 0}, {0xC000, 0}},
	}
)

var tables = map[Type]*vendorTable{
	Intel:  &intelTable,
	Nvidia: &nvidiaTable,
	Amd:    &amdTable,
}

// Engine is a vendor 2D engine behind one command table.
type Engine struct {
	typ  Type
	regs Registers
	tab  *vendorTable
	// Screen size, for ClearScreen.
	width, height int
}

func NewEngine(typ Type, regs Registers, width, height int) (*Engine, error) {
	tab, ok := tables[typ]
	if !ok {
		return nil, fmt.Errorf("accel: no engine for %v", typ)
	}
	if regs == nil {
		return nil, errors.New("accel: no register window")
	}
	return &Engine{typ: typ, regs: regs, tab: tab, width: width, height: height}, nil
}

func (e *Engine) Type() Type { return e.typ }

// Reset brings the engine to idle.
func (e *Engine) Reset() error {
	for _, w := range e.tab.reset {
		if err := e.regs.WriteRegister(w.off, w.v); err != nil {
			return fmt.Errorf("accel: %v reset: %w", e.typ, err)
		}
	}
	for _, c := range []command{e.tab.fill, e.tab.line, e.tab.blit, e.tab.circle, e.tab.triangle} {
		if err := e.wait(c.reg); err != nil {
			return err
		}
	}
	return nil
}

// Render submits op and waits for the engine to finish it.
func (e *Engine) Render(op Operation) error {
	switch o := op.(type) {
	case FillRect:
		return e.fill(o.Rect, o.Color)
	case ClearScreen:
		return e.fill(fb.Rect{W: e.width, H: e.height}, o.Color)
	case DrawLine:
		return e.line(o.From, o.To, o.Color, o.Thickness)
	case DrawRect:
		if o.Rect.W <= 0 || o.Rect.H <= 0 {
			return nil
		}
		x0, y0 := o.Rect.X, o.Rect.Y
		x1, y1 := x0+o.Rect.W-1, y0+o.Rect.H-1
		corners := []fb.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}
		for i := 0; i < 4; i++ {
			if err := e.line(corners[i], corners[i+1], o.Color, o.Thickness); err != nil {
				return err
			}
		}
		return nil
	case Blit:
		w, h := o.Src.W, o.Src.H
		if o.Dst.W < w {
			w = o.Dst.W
		}
		if o.Dst.H < h {
			h = o.Dst.H
		}
		return e.submit(e.tab.blit, u(o.Src.X), u(o.Src.Y), u(o.Dst.X), u(o.Dst.Y), u(w), u(h))
	case DrawCircle:
		filled := uint32(0)
		if o.Filled {
			filled = 1
		}
		return e.submit(e.tab.circle, u(o.Center.X), u(o.Center.Y), u(o.Radius), e.pixel(o.Color), filled)
	case DrawTriangle:
		if !o.Filled {
			for _, s := range [][2]fb.Point{{o.P1, o.P2}, {o.P2, o.P3}, {o.P3, o.P1}} {
				if err := e.line(s[0], s[1], o.Color, 1); err != nil {
					return err
				}
			}
			return nil
		}
		return e.submit(e.tab.triangle,
			u(o.P1.X), u(o.P1.Y), u(o.P2.X), u(o.P2.Y), u(o.P3.X), u(o.P3.Y), e.pixel(o.Color))
	}
	return fmt.Errorf("accel: %T not supported by the %v engine", op, e.typ)
}

func (e *Engine) fill(r fb.Rect, c pixel.Color) error {
	return e.submit(e.tab.fill, u(r.X), u(r.Y), u(r.W), u(r.H), e.pixel(c))
}

func (e *Engine) line(a, b fb.Point, c pixel.Color, thickness uint32) error {
	if thickness == 0 {
		thickness = 1
	}
	return e.submit(e.tab.line, u(a.X), u(a.Y), u(b.X), u(b.Y), e.pixel(c), thickness)
}

func (e *Engine) pixel(c pixel.Color) uint32 {
	return pixel.Encode(c, e.tab.color)
}

// submit writes the operands in order, then the opcode, then waits.
func (e *Engine) submit(c command, operands ...uint32) error {
	for i, v := range operands {
		if err := e.regs.WriteRegister(c.operands+uint32(i)*4, v); err != nil {
			return fmt.Errorf("accel: operand %d: %w", i, err)
		}
	}
	if err := e.regs.WriteRegister(c.reg, c.opcode); err != nil {
		return fmt.Errorf("accel: command %#x: %w", c.opcode, err)
	}
	return e.wait(c.reg)
}

func (e *Engine) wait(reg uint32) error {
	for i := 0; i < busyPolls; i++ {
		v, err := e.regs.ReadRegister(reg)
		if err != nil {
			return fmt.Errorf("accel: status %#x: %w", reg, err)
		}
		if v&e.tab.busy == 0 {
			return nil
		}
		e.regs.Pause()
	}
	return fmt.Errorf("%w: %v register %#x", ErrEngineBusy, e.typ, reg)
}

func u(v int) uint32 { return uint32(int32(v)) }
