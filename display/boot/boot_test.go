package boot

import (
	"errors"
	"strings"
	"testing"

	"kdisplay/display"
	"kdisplay/display/accel"
	"kdisplay/display/fb"
	"kdisplay/display/pci"
	"kdisplay/display/pixel"
	"kdisplay/hal"
	"kdisplay/internal/klog"
)

type lines struct{ got []string }

func (l *lines) WriteLineString(s string) { l.got = append(l.got, s) }
func (l *lines) WriteLineBytes(b []byte)  { l.got = append(l.got, string(b)) }

type fixedFirmware struct {
	h  hal.FramebufferHandoff
	ok bool
}

func (f fixedFirmware) FramebufferHandoff() (hal.FramebufferHandoff, bool) { return f.h, f.ok }

type testHAL struct {
	m   *hal.Machine
	fw  hal.Firmware
	log *lines
}

func (h *testHAL) Logger() hal.Logger       { return h.log }
func (h *testHAL) Ports() hal.PortIO        { return h.m }
func (h *testHAL) Memory() hal.MemoryMapper { return h.m }
func (h *testHAL) Display() hal.Display     { return nil }
func (h *testHAL) Firmware() hal.Firmware   { return h.fw }

func simHAL(t *testing.T, gpu string) *testHAL {
	t.Helper()
	fb.ClearActive()
	t.Cleanup(fb.ClearActive)
	pc, err := hal.NewSimulatedPC(hal.MachineConfig{GPU: gpu})
	if err != nil {
		t.Fatal(err)
	}
	return &testHAL{m: pc.Machine, fw: pc, log: &lines{}}
}

func (h *testHAL) logged(sub string) bool {
	for _, l := range h.log.got {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func TestStartBochs(t *testing.T) {
	h := simHAL(t, "bochs")
	s, err := Start(h, Config{LogLevel: klog.LevelInfo})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Firmware || s.Device == nil || s.Device.Type != pci.QemuBochs || s.GPU == nil || s.Direct == nil {
		t.Fatalf("system=%+v", s)
	}
	if fb.Active() != s.Framebuffer {
		t.Fatalf("returned framebuffer is not the active one")
	}
	info := s.Framebuffer.Info()
	if info.Base != 0xE0000000 || info.Width != 1024 || info.Height != 768 || info.Format != pixel.BGR888 {
		t.Fatalf("info=%v", info)
	}
	if s.Accel.Type() != accel.Software || s.Accel.Enabled() {
		t.Fatalf("accel=%v", s.Accel.Type())
	}
	if !h.logged("[boot] info: kdisplay") {
		t.Fatalf("no banner in %v", h.log.got)
	}

	if res, err := s.Accel.Execute(accel.FillRect{Rect: fb.Rect{W: 4, H: 4}, Color: pixel.Red}); res != accel.SoftwareFallback || err != nil {
		t.Fatalf("%v, %v", res, err)
	}
	if s.Framebuffer.GetPixel(3, 3) != pixel.Red {
		t.Fatalf("fill not visible")
	}

	s.Shutdown()
	if fb.Active() != nil {
		t.Fatalf("active framebuffer survived shutdown")
	}
}

func TestStartBochsModeSet(t *testing.T) {
	h := simHAL(t, "bochs")
	s, err := Start(h, Config{Width: 800, Height: 600, BPP: 32})
	if err != nil {
		t.Fatal(err)
	}
	info := s.Framebuffer.Info()
	if info.Width != 800 || info.Height != 600 || info.PixelsPerScanLine != 1024 {
		t.Fatalf("info=%v", info)
	}
	regs := h.m.VBE()
	if regs[1] != 800 || regs[2] != 600 || regs[3] != 32 {
		t.Fatalf("dispi=%v", regs)
	}
}

func TestStartDiscrete(t *testing.T) {
	h := simHAL(t, "nvidia")
	s, err := Start(h, Config{Width: 1024, Height: 768, BPP: 32, LogLevel: klog.LevelWarn})
	if err != nil {
		t.Fatal(err)
	}
	info := s.Framebuffer.Info()
	if info.Base != 0xC0000000 || info.Format != pixel.RGBA8888 || info.Width != 1024 {
		t.Fatalf("info=%v", info)
	}
	if s.Accel.Type() != accel.Nvidia || !s.Accel.Enabled() {
		t.Fatalf("accel=%v enabled=%v", s.Accel.Type(), s.Accel.Enabled())
	}
	if cur, ok := s.Direct.Current(); !ok || cur.Format != pixel.RGBA8888 {
		t.Fatalf("direct not reconfigured: %v", cur)
	}
	if len(h.log.got) != 0 {
		t.Fatalf("warnings on a clean boot: %v", h.log.got)
	}
}

func TestStartNamedMode(t *testing.T) {
	h := simHAL(t, "nvidia")
	s, err := Start(h, Config{ModeName: "hd"})
	if err != nil {
		t.Fatal(err)
	}
	if info := s.Framebuffer.Info(); info.Width != 1280 || info.Height != 720 {
		t.Fatalf("info=%v", info)
	}
	if cur, ok := s.Modes.Current(); !ok || cur.Name != "hd" {
		t.Fatalf("current=%+v", cur)
	}
}

func TestStartRejectsNonStandardMode(t *testing.T) {
	h := simHAL(t, "nvidia")
	s, err := Start(h, Config{Width: 1000, Height: 700, BPP: 32})
	if err != nil {
		t.Fatal(err)
	}
	if info := s.Framebuffer.Info(); info.Width == 1000 {
		t.Fatalf("non-standard mode programmed: %v", info)
	}
	if !h.logged("mode 1000x700x32") {
		t.Fatalf("rejection not logged: %v", h.log.got)
	}

	h = simHAL(t, "nvidia")
	if _, err := Start(h, Config{ModeName: "ultra"}); err != nil {
		t.Fatal(err)
	}
	if !h.logged(`mode "ultra"`) {
		t.Fatalf("unknown name not logged: %v", h.log.got)
	}
}

func TestStartDisableAccel(t *testing.T) {
	h := simHAL(t, "intel")
	s, err := Start(h, Config{DisableAccel: true})
	if err != nil {
		t.Fatal(err)
	}
	if s.Accel.Type() != accel.None || s.Accel.Enabled() {
		t.Fatalf("accel=%v", s.Accel.Type())
	}
}

func TestStartWithoutHandoff(t *testing.T) {
	h := simHAL(t, "bochs")
	h.fw = fixedFirmware{h: hal.FramebufferHandoff{Base: 0xE0000000, Width: 1024, Height: 768, FormatCode: pixel.HandoffBltOnly}, ok: true}

	s, err := Start(h, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Firmware {
		t.Fatalf("blt-only handoff accepted")
	}
	info := s.Framebuffer.Info()
	if info.Width != 1366 || info.Height != 768 || info.PixelsPerScanLine != 2048 {
		t.Fatalf("direct defaults not used: %v", info)
	}
	if !h.logged("firmware framebuffer") {
		t.Fatalf("handoff failure not logged: %v", h.log.got)
	}
}

func TestStartBrokenGPUKeepsFirmware(t *testing.T) {
	fb.ClearActive()
	t.Cleanup(fb.ClearActive)
	m := hal.NewMachine()
	m.EnableVBE(0x1234) // not a DISPI id
	m.AttachPCI(&hal.SimPCIDevice{Device: 2, VendorID: 0x1234, DeviceID: 0x1111, Class: 3,
		BARs: [6]uint32{0xE0000008}, BARSizes: [6]uint32{16 << 20}})
	m.AddRAM(0xE0000000, 16<<20)
	h := &testHAL{m: m, log: &lines{}, fw: fixedFirmware{ok: true, h: hal.FramebufferHandoff{
		Base: 0xE0000000, Width: 640, Height: 480, PixelsPerScanLine: 640, FormatCode: pixel.HandoffRGB,
	}}}

	s, err := Start(h, Config{Width: 800, Height: 600, BPP: 16})
	if err != nil {
		t.Fatal(err)
	}
	if s.GPU != nil {
		t.Fatalf("failed controller exposed")
	}
	if info := s.Framebuffer.Info(); info.Width != 640 || info.Format != pixel.RGB888 {
		t.Fatalf("info=%v", info)
	}
	if !h.logged("[boot] error: gpu") || !h.logged("mode 800x600x16") {
		t.Fatalf("log=%v", h.log.got)
	}
}

func TestStartNothingUsable(t *testing.T) {
	fb.ClearActive()
	h := &testHAL{m: hal.NewMachine(), fw: fixedFirmware{}, log: &lines{}}
	_, err := Start(h, Config{})
	if !errors.Is(err, display.ErrGpuNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestHandoff(t *testing.T) {
	cases := []struct {
		name string
		h    Handoff
		f    pixel.Format
		err  error
	}{
		{"rgb", Handoff{Base: 0x100000, Width: 8, Height: 8, FormatCode: 0}, pixel.RGB888, nil},
		{"bgr", Handoff{Base: 0x100000, Width: 8, Height: 8, FormatCode: 1}, pixel.BGR888, nil},
		{"mask565", Handoff{Base: 0x100000, Width: 8, Height: 8, FormatCode: 2,
			RedMask: 0xF800, GreenMask: 0x07E0, BlueMask: 0x001F}, pixel.RGB565, nil},
		{"mask8888", Handoff{Base: 0x100000, Width: 8, Height: 8, FormatCode: 2,
			RedMask: 0x00FF0000, GreenMask: 0x0000FF00, BlueMask: 0x000000FF, ReservedMask: 0xFF000000}, pixel.RGBA8888, nil},
		{"blt", Handoff{Base: 0x100000, Width: 8, Height: 8, FormatCode: 3}, pixel.Unknown, display.ErrUnsupportedPixelFormat},
		{"nobase", Handoff{Width: 8, Height: 8, FormatCode: 1}, pixel.BGR888, display.ErrInvalidParameter},
		{"nowidth", Handoff{Base: 0x100000, Height: 8, FormatCode: 1}, pixel.BGR888, display.ErrInvalidParameter},
	}
	for _, tc := range cases {
		if got := tc.h.Format(); got != tc.f {
			t.Fatalf("%s: format=%v want %v", tc.name, got, tc.f)
		}
		err := tc.h.Validate()
		if tc.err == nil && err != nil || tc.err != nil && !errors.Is(err, tc.err) {
			t.Fatalf("%s: err=%v want %v", tc.name, err, tc.err)
		}
	}

	info := Handoff{Base: 0x2000, Width: 10, Height: 4, PixelsPerScanLine: 16, FormatCode: 1}.Info()
	if info.StrideBytes() != 48 || info.Size() != 192 || info.Mask != pixel.BGR888.Masks() {
		t.Fatalf("info=%v stride=%d", info, info.StrideBytes())
	}
}
