package gpu

import (
	"errors"
	"testing"

	"kdisplay/display"
	"kdisplay/display/fb"
	"kdisplay/display/pixel"
)

func TestStandardModes(t *testing.T) {
	modes := StandardModes()
	if len(modes) != 36 {
		t.Fatalf("modes=%d", len(modes))
	}
	if got := modes[0].String(); got != "640x480 @32bpp (60Hz)" {
		t.Fatalf("String=%q", got)
	}
	safe := 0
	for _, m := range modes {
		if m.Safe() {
			safe++
		}
	}
	if safe != 30 {
		t.Fatalf("safe modes=%d", safe)
	}
	for _, m := range []Mode{
		{Width: 3840, Height: 2160, BPP: 32, Refresh: 60},
		{Width: 1024, Height: 768, BPP: 8, Refresh: 60},
		{Width: 1024, Height: 768, BPP: 32, Refresh: 85},
	} {
		if m.Safe() {
			t.Fatalf("%v considered safe", m)
		}
	}
}

func TestModeManagerBochsHighest(t *testing.T) {
	fb.ClearActive()
	c, pc, dev := newSim(t, "bochs")
	if err := c.Initialize(dev); err != nil {
		t.Fatal(err)
	}
	m := NewModeManager(c)
	if len(m.Modes()) != 30 {
		t.Fatalf("available=%d", len(m.Modes()))
	}
	if _, ok := m.Current(); ok {
		t.Fatalf("current mode before any set")
	}
	info, err := m.SetHighest()
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 1920 || info.Height != 1080 || info.Format != pixel.RGBA8888 {
		t.Fatalf("info=%v", info)
	}
	regs := pc.VBE()
	if regs[VBEIndexXRes] != 1920 || regs[VBEIndexYRes] != 1080 || regs[VBEIndexBPP] != 32 {
		t.Fatalf("dispi regs=%v", regs)
	}
	if cur, _ := m.Current(); cur.Name != "fhd" || cur.BPP != 32 {
		t.Fatalf("current=%+v", cur)
	}
}

func TestModeManagerNvidia(t *testing.T) {
	c, _, dev := newSim(t, "nvidia")
	if err := c.Initialize(dev); err != nil {
		t.Fatal(err)
	}
	m := NewModeManager(c)

	info, err := m.SetSafest()
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 1024 || info.Height != 768 || info.Base != 0xC0000000 {
		t.Fatalf("safest=%v", info)
	}
	if rec, ok := m.Recommended(); !ok || rec.Width != 1024 || rec.BPP != 32 {
		t.Fatalf("recommended=%+v", rec)
	}

	info, err = m.SetByName(" 1080P ")
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Fatalf("by name=%v", info)
	}

	for _, tc := range []struct {
		name string
		set  func() (fb.Info, error)
		want error
	}{
		{"4k", func() (fb.Info, error) { return m.SetByName("4k") }, ErrModeNotFound},
		{"unknown name", func() (fb.Info, error) { return m.SetByName("ultra") }, ErrUnsupportedResolution},
		{"odd size", func() (fb.Info, error) { return m.SetMode(1000, 700, 32) }, ErrUnsupportedResolution},
		{"odd depth", func() (fb.Info, error) { return m.SetMode(1024, 768, 8) }, ErrModeNotFound},
		{"zero", func() (fb.Info, error) { return m.SetMode(0, 768, 32) }, display.ErrInvalidParameter},
	} {
		if _, err := tc.set(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err=%v want %v", tc.name, err, tc.want)
		}
	}
	if cur, _ := m.Current(); cur.Width != 1920 {
		t.Fatalf("failed requests changed the current mode: %+v", cur)
	}

	info, err = m.Select("recommended")
	if err != nil || info.Width != 1024 {
		t.Fatalf("select recommended: %v %v", info, err)
	}
	info, err = m.Select("svga")
	if err != nil || info.Width != 800 {
		t.Fatalf("select svga: %v %v", info, err)
	}
}

func TestModeManagerSmallAperture(t *testing.T) {
	c, _, dev := newSim(t, "nvidia")
	if err := c.Initialize(dev); err != nil {
		t.Fatal(err)
	}
	v, err := NewVRAM(0xC0000000, 4<<20)
	if err != nil {
		t.Fatal(err)
	}
	c.vram = v
	m := NewModeManager(c)
	if _, ok := m.Find(1280, 1024, 32); ok {
		t.Fatalf("1280x1024x32 does not fit 4MiB")
	}
	if _, ok := m.Find(1280, 1024, 16); !ok {
		t.Fatalf("1280x1024x16 fits 4MiB")
	}
	info, err := m.SetHighest()
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 1920 || info.Format != pixel.RGB565 {
		t.Fatalf("highest=%v", info)
	}
	info, err = m.SetSafest()
	if err != nil || info.Width != 1024 || info.Format != pixel.RGBA8888 {
		t.Fatalf("safest=%v %v", info, err)
	}
}

func TestModeManagerNothingFits(t *testing.T) {
	c, _, dev := newSim(t, "nvidia")
	if err := c.Initialize(dev); err != nil {
		t.Fatal(err)
	}
	v, err := NewVRAM(0xC0000000, VRAMPageSize)
	if err != nil {
		t.Fatal(err)
	}
	c.vram = v
	m := NewModeManager(c)
	if len(m.Modes()) != 0 {
		t.Fatalf("modes=%v", m.Modes())
	}
	if _, err := m.SetHighest(); !errors.Is(err, ErrModeNotFound) {
		t.Fatalf("highest: %v", err)
	}
	if _, err := m.SetSafest(); !errors.Is(err, ErrModeNotFound) {
		t.Fatalf("safest: %v", err)
	}
	if _, ok := m.Recommended(); ok {
		t.Fatalf("recommended with no modes")
	}
}
