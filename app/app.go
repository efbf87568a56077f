// Package app is the host demo: it boots the display stack on a HAL and
// animates a test scene through the 2D accelerator.
package app

import (
	"fmt"
	"runtime/debug"

	"kdisplay/display/accel"
	"kdisplay/display/boot"
	"kdisplay/display/fb"
	"kdisplay/display/pixel"
	"kdisplay/hal"
	"kdisplay/internal/buildinfo"
	"kdisplay/internal/klog"
)

type Config struct {
	Boot boot.Config
}

const headerHeight = 40

var (
	background = pixel.RGB(0x10, 0x18, 0x30)
	header     = pixel.RGB(0x20, 0x40, 0x80)
	accent     = pixel.RGB(0xF0, 0xC0, 0x20)
)

// App owns the booted display and the demo state.
type App struct {
	h   hal.HAL
	sys *boot.System
	log *klog.Logger

	scene    func()
	frame    uint64
	stats    map[accel.Result]int
	warned   bool
	panicked bool
}

// New boots the display stack on h.
func New(h hal.HAL, cfg Config) (*App, error) {
	sys, err := boot.Start(h, cfg.Boot)
	if err != nil {
		return nil, err
	}
	log := klog.New(h.Logger(), "app")
	log.SetLevel(cfg.Boot.LogLevel)
	a := &App{h: h, sys: sys, log: log, stats: make(map[accel.Result]int)}
	a.scene = a.draw
	return a, nil
}

// NewWithConfig returns the step function the host runners drive. A failed
// boot surfaces as the first step's error.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	a, err := New(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return a.Step
}

func (a *App) System() *boot.System { return a.sys }

// Stats counts operation results by kind.
func (a *App) Stats() map[accel.Result]int {
	out := make(map[accel.Result]int, len(a.stats))
	for k, v := range a.stats {
		out[k] = v
	}
	return out
}

func (a *App) Panicked() bool { return a.panicked }

// Step draws one frame and presents it. After a panic the panic screen stays
// up and Step only re-presents it.
func (a *App) Step() (err error) {
	if a.panicked {
		return a.present()
	}
	defer func() {
		if v := recover(); v != nil {
			a.panicked = true
			a.showPanic(v, debug.Stack())
			err = a.present()
		}
	}()
	a.scene()
	a.frame++
	return a.present()
}

func (a *App) present() error {
	disp := a.h.Display()
	if disp == nil || !a.sys.Framebuffer.Initialized() {
		return nil
	}
	return disp.Present(a.sys.Framebuffer)
}

func (a *App) exec(op accel.Operation) {
	res, err := a.sys.Accel.Execute(op)
	a.stats[res]++
	if err != nil && !a.warned {
		a.warned = true
		a.log.Warnf("%T: %v (%v)", op, res, err)
	}
}

// bounce folds v into [0, span) as a triangle wave.
func bounce(v, span int) int {
	if span <= 0 {
		return 0
	}
	p := v % (2 * span)
	if p >= span {
		p = 2*span - 1 - p
	}
	return p
}

func (a *App) draw() {
	d := a.sys.Framebuffer
	w, h := d.Width(), d.Height()
	t := int(a.frame)

	a.exec(accel.ClearScreen{Color: background})
	a.exec(accel.FillRect{Rect: fb.Rect{W: w, H: headerHeight}, Color: header})
	a.exec(accel.DrawRect{Rect: fb.Rect{X: 8, Y: headerHeight + 8, W: w - 16, H: h - headerHeight - 16}, Color: pixel.White, Thickness: 2})

	body := fb.Rect{X: 16, Y: headerHeight + 16, W: w - 32, H: h - headerHeight - 32}
	for i := 0; i < 8; i++ {
		x := body.X + bounce(t*2+i*body.W/8, body.W)
		a.exec(accel.DrawLine{From: fb.Point{X: x, Y: body.Y}, To: fb.Point{X: body.X + body.W - 1 - (x - body.X), Y: body.Y + body.H - 1}, Color: pixel.Green})
	}

	r := minInt(body.W, body.H) / 8
	cx := body.X + r + bounce(t*3, maxInt(body.W-2*r, 1))
	cy := body.Y + r + bounce(t*2, maxInt(body.H-2*r, 1))
	a.exec(accel.DrawCircle{Center: fb.Point{X: cx, Y: cy}, Radius: r, Color: pixel.Red, Filled: true})
	a.exec(accel.DrawCircle{Center: fb.Point{X: cx, Y: cy}, Radius: r + 4, Color: pixel.White})

	base := body.Y + body.H - 1
	a.exec(accel.DrawTriangle{
		P1:    fb.Point{X: body.X + body.W/2, Y: base - 2*r},
		P2:    fb.Point{X: body.X + body.W/2 + 2*r, Y: base},
		P3:    fb.Point{X: body.X + body.W/2 - 2*r, Y: base},
		Color: accent, Filled: true,
	})

	// Copy the header's left block into the bottom-right corner.
	a.exec(accel.Blit{Src: fb.Rect{W: 64, H: 32}, Dst: fb.Rect{X: w - 80, Y: h - 48, W: 64, H: 32}})

	d.WriteText(8, 4, "kdisplay "+buildinfo.Short(), pixel.White)
	d.WriteText(8, 20, a.status(), accent)
}

func (a *App) status() string {
	gpu := "none"
	if a.sys.Device != nil {
		gpu = a.sys.Device.Type.String()
	}
	i := a.sys.Framebuffer.Info()
	return fmt.Sprintf("gpu %s accel %v %dx%d %v frame %d", gpu, a.sys.Accel.Type(), i.Width, i.Height, i.Format, a.frame)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
