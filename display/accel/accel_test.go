package accel

import (
	"errors"
	"testing"

	"kdisplay/display"
	"kdisplay/display/fb"
	"kdisplay/display/gpu"
	"kdisplay/display/pci"
	"kdisplay/display/pixel"
	"kdisplay/hal"
)

func newFB(t *testing.T, w, h uint32, f pixel.Format) *fb.Driver {
	t.Helper()
	m := hal.NewMachine()
	m.AddRAM(0x100000, int(w*h)*f.BytesPerPixel())
	d := fb.New(m, nil)
	if err := d.Init(0x100000, w, h, w, f, pixel.Mask{}); err != nil {
		t.Fatal(err)
	}
	return d
}

func sameSurface(t *testing.T, a, b *fb.Driver) {
	t.Helper()
	for y := 0; y < a.Height(); y++ {
		for x := 0; x < a.Width(); x++ {
			if pa, pb := a.GetPixel(x, y), b.GetPixel(x, y); pa != pb {
				t.Fatalf("(%d,%d): %v vs %v", x, y, pa, pb)
			}
		}
	}
}

func TestSoftwarePathMatchesDriver(t *testing.T) {
	ops := []Operation{
		ClearScreen{Color: pixel.RGB(10, 20, 30)},
		FillRect{Rect: fb.Rect{X: 4, Y: 4, W: 20, H: 10}, Color: pixel.Red},
		DrawRect{Rect: fb.Rect{X: -3, Y: 2, W: 30, H: 30}, Color: pixel.Green, Thickness: 4},
		DrawLine{From: fb.Point{X: 0, Y: 47}, To: fb.Point{X: 63, Y: 0}, Color: pixel.White, Thickness: 3},
		DrawCircle{Center: fb.Point{X: 40, Y: 24}, Radius: 9, Color: pixel.Blue, Filled: true},
		DrawCircle{Center: fb.Point{X: 10, Y: 40}, Radius: 6, Color: pixel.White},
		DrawTriangle{P1: fb.Point{X: 50, Y: 2}, P2: fb.Point{X: 62, Y: 20}, P3: fb.Point{X: 38, Y: 20}, Color: pixel.Green, Filled: true},
		DrawTriangle{P1: fb.Point{X: 2, Y: 2}, P2: fb.Point{X: 12, Y: 2}, P3: fb.Point{X: 7, Y: 12}, Color: pixel.Red},
		Blit{Src: fb.Rect{X: 0, Y: 0, W: 32, H: 24}, Dst: fb.Rect{X: 8, Y: 6, W: 32, H: 24}},
	}

	got := newFB(t, 64, 48, pixel.RGB888)
	want := newFB(t, 64, 48, pixel.RGB888)
	a := New(got, nil)
	for _, op := range ops {
		res, err := a.Execute(op)
		if err != nil || res != SoftwareFallback {
			t.Fatalf("%T: %v, %v", op, res, err)
		}
	}

	want.ClearScreen(pixel.RGB(10, 20, 30))
	want.FillRect(4, 4, 20, 10, pixel.Red)
	want.DrawRect(-3, 2, 30, 30, pixel.Green)
	want.DrawLine(0, 47, 63, 0, pixel.White)
	want.DrawCircle(40, 24, 9, pixel.Blue, true)
	want.DrawCircle(10, 40, 6, pixel.White, false)
	want.DrawTriangle(fb.Point{X: 50, Y: 2}, fb.Point{X: 62, Y: 20}, fb.Point{X: 38, Y: 20}, pixel.Green, true)
	want.DrawTriangle(fb.Point{X: 2, Y: 2}, fb.Point{X: 12, Y: 2}, fb.Point{X: 7, Y: 12}, pixel.Red, false)
	want.Blit(fb.Rect{W: 32, H: 24}, fb.Rect{X: 8, Y: 6, W: 32, H: 24}, nil)

	sameSurface(t, got, want)
}

func TestNilOperation(t *testing.T) {
	a := New(newFB(t, 8, 8, pixel.RGB565), nil)
	res, err := a.Execute(nil)
	if res != UnsupportedOperation || !errors.Is(err, display.ErrInvalidParameter) {
		t.Fatalf("%v, %v", res, err)
	}
	if a.IsOperationSupported(FillRect{}) {
		t.Fatalf("software accelerator claims hardware support")
	}
}

type gpuRig struct {
	pc   *hal.SimulatedPC
	dev  pci.Device
	ctrl *gpu.Controller
	fb   *fb.Driver
}

func newGPURig(t *testing.T, name string) gpuRig {
	t.Helper()
	pc, err := hal.NewSimulatedPC(hal.MachineConfig{GPU: name})
	if err != nil {
		t.Fatal(err)
	}
	dev, err := pci.NewConfigSpace(pc.Machine).FindDisplay()
	if err != nil {
		t.Fatal(err)
	}
	ctrl := gpu.New(pc.Machine, pc.Machine, nil)
	if err := ctrl.Initialize(dev); err != nil {
		t.Fatal(err)
	}
	h, _ := pc.FramebufferHandoff()
	d := fb.New(pc.Machine, nil)
	if err := d.Init(h.Base, h.Width, h.Height, h.PixelsPerScanLine, pixel.BGR888, pixel.Mask{}); err != nil {
		t.Fatal(err)
	}
	pc.ResetTrace()
	return gpuRig{pc: pc, dev: dev, ctrl: ctrl, fb: d}
}

func TestInitializeWithoutEngine(t *testing.T) {
	for _, name := range []string{"bochs", "vmware", "virtio"} {
		r := newGPURig(t, name)
		a := New(r.fb, nil)
		res, err := a.InitializeWithGPU(r.dev, r.ctrl)
		if res != SoftwareFallback || err != nil {
			t.Fatalf("%s: %v, %v", name, res, err)
		}
		if a.Type() != Software || a.Enabled() {
			t.Fatalf("%s: type=%v enabled=%v", name, a.Type(), a.Enabled())
		}
	}
}

func TestInitializeIntelEngine(t *testing.T) {
	r := newGPURig(t, "intel")
	a := New(r.fb, nil)
	res, err := a.InitializeWithGPU(r.dev, r.ctrl)
	if res != HardwareAccelerated || err != nil {
		t.Fatalf("%v, %v", res, err)
	}
	if a.Type() != Intel || !a.Enabled() || !a.IsOperationSupported(FillRect{}) {
		t.Fatalf("type=%v enabled=%v", a.Type(), a.Enabled())
	}
	reset := r.pc.MemWrites()
	if len(reset) != 3 || reset[0].Addr != 0xF6007000 || reset[0].Value != 1 {
		t.Fatalf("reset writes=%v", reset)
	}

	r.pc.ResetTrace()
	before := r.fb.GetPixel(5, 5)
	res, err = a.Execute(FillRect{Rect: fb.Rect{X: 1, Y: 2, W: 30, H: 40}, Color: pixel.RGB(0x11, 0x22, 0x33)})
	if res != HardwareAccelerated || err != nil {
		t.Fatalf("%v, %v", res, err)
	}
	want := []hal.MemWrite{
		{Addr: 0xF6007100, Width: 4, Value: 1},
		{Addr: 0xF6007104, Width: 4, Value: 2},
		{Addr: 0xF6007108, Width: 4, Value: 30},
		{Addr: 0xF600710C, Width: 4, Value: 40},
		{Addr: 0xF6007110, Width: 4, Value: 0xFF332211},
		{Addr: 0xF6007000, Width: 4, Value: 2},
	}
	got := r.pc.MemWrites()
	if len(got) != len(want) {
		t.Fatalf("writes=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write %d: %+v want %+v", i, got[i], want[i])
		}
	}
	if r.fb.GetPixel(5, 5) != before {
		t.Fatalf("hardware fill touched the framebuffer through the software path")
	}
}

func commandWrites(ws []hal.MemWrite, reg uint64) int {
	n := 0
	for _, w := range ws {
		if w.Addr == reg {
			n++
		}
	}
	return n
}

func TestEngineCompositeOperations(t *testing.T) {
	r := newGPURig(t, "nvidia")
	a := New(r.fb, nil)
	if res, err := a.InitializeWithGPU(r.dev, r.ctrl); res != HardwareAccelerated || err != nil {
		t.Fatalf("%v, %v", res, err)
	}

	r.pc.ResetTrace()
	if _, err := a.Execute(DrawRect{Rect: fb.Rect{X: 0, Y: 0, W: 10, H: 10}, Color: pixel.Red}); err != nil {
		t.Fatal(err)
	}
	ws := r.pc.MemWrites()
	// Four lines, six operands plus the opcode each.
	if len(ws) != 4*7 || ws[6].Addr != 0xFD002000 || ws[6].Value != 0x02 {
		t.Fatalf("rect writes=%v", ws)
	}
	if ws[5].Value != 1 {
		t.Fatalf("zero thickness not raised to 1: %v", ws[5])
	}

	r.pc.ResetTrace()
	if _, err := a.Execute(DrawTriangle{P1: fb.Point{X: 1}, P2: fb.Point{X: 5}, P3: fb.Point{Y: 5}}); err != nil {
		t.Fatal(err)
	}
	if n := len(r.pc.MemWrites()); n != 3*7 {
		t.Fatalf("outline triangle writes=%d", n)
	}

	r.pc.ResetTrace()
	if _, err := a.Execute(DrawTriangle{P1: fb.Point{X: 1}, P2: fb.Point{X: 5}, P3: fb.Point{Y: 5}, Filled: true}); err != nil {
		t.Fatal(err)
	}
	ws = r.pc.MemWrites()
	if len(ws) != 8 || ws[7].Addr != 0xFD005000 || ws[7].Value != 0x10 {
		t.Fatalf("filled triangle writes=%v", ws)
	}

	r.pc.ResetTrace()
	if _, err := a.Execute(ClearScreen{Color: pixel.Black}); err != nil {
		t.Fatal(err)
	}
	ws = r.pc.MemWrites()
	if len(ws) != 6 || ws[2].Value != 1024 || ws[3].Value != 768 {
		t.Fatalf("clear writes=%v", ws)
	}

	r.pc.ResetTrace()
	if _, err := a.Execute(Blit{Src: fb.Rect{W: 20, H: 20}, Dst: fb.Rect{X: 100, Y: 50, W: 10, H: 30}}); err != nil {
		t.Fatal(err)
	}
	ws = r.pc.MemWrites()
	if commandWrites(ws, 0xFD003000) != 2 || ws[4].Value != 10 || ws[5].Value != 20 {
		t.Fatalf("blit writes=%v", ws)
	}
}

func TestInitializeEngineWithoutController(t *testing.T) {
	r := newGPURig(t, "amd")
	a := New(r.fb, nil)
	res, err := a.InitializeWithGPU(r.dev, gpu.New(r.pc.Machine, r.pc.Machine, nil))
	if res != DriverError || !errors.Is(err, display.ErrGpuNotFound) {
		t.Fatalf("%v, %v", res, err)
	}
	if a.Type() != Software || a.Enabled() {
		t.Fatalf("type=%v enabled=%v", a.Type(), a.Enabled())
	}
	if res, err := a.Execute(FillRect{Rect: fb.Rect{W: 2, H: 2}, Color: pixel.White}); res != SoftwareFallback || err != nil {
		t.Fatalf("fallback execute: %v, %v", res, err)
	}
	if got := r.fb.GetPixel(1, 1); got != pixel.White {
		t.Fatalf("software fill missing: %v", got)
	}
}

// stuckRegs always reports the engine busy.
type stuckRegs struct {
	writes int
	pauses int
}

func (s *stuckRegs) WriteRegister(off, v uint32) error { s.writes++; return nil }
func (s *stuckRegs) ReadRegister(off uint32) (uint32, error) {
	return 0x80000000, nil
}
func (s *stuckRegs) Pause() { s.pauses++ }

func TestBusyTimeout(t *testing.T) {
	regs := &stuckRegs{}
	e, err := NewEngine(Intel, regs, 64, 48)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Render(FillRect{Rect: fb.Rect{W: 1, H: 1}}); !errors.Is(err, ErrEngineBusy) {
		t.Fatalf("err=%v", err)
	}
	if regs.pauses != busyPolls || regs.writes != 6 {
		t.Fatalf("pauses=%d writes=%d", regs.pauses, regs.writes)
	}

	a := New(newFB(t, 64, 48, pixel.RGB888), nil)
	a.engine, a.typ, a.enabled = e, Intel, true
	res, err := a.Execute(FillRect{Rect: fb.Rect{W: 1, H: 1}})
	if res != DriverError || err == nil {
		t.Fatalf("%v, %v", res, err)
	}
}

func TestNewEngineRejectsSoftware(t *testing.T) {
	if _, err := NewEngine(Software, &stuckRegs{}, 1, 1); err == nil {
		t.Fatalf("software engine created")
	}
	if _, err := NewEngine(Intel, nil, 1, 1); err == nil {
		t.Fatalf("engine without registers created")
	}
}
