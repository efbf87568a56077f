// Package direct binds a framebuffer straight to a GPU's aperture, keeping
// the mode the platform firmware left active.
package direct

import (
	"fmt"

	"kdisplay/display"
	"kdisplay/display/fb"
	"kdisplay/display/gpu"
	"kdisplay/display/pci"
	"kdisplay/display/pixel"
	"kdisplay/hal"
	"kdisplay/internal/klog"
)

// Platform geometry assumed when nothing is bound yet.
const (
	DefaultWidth  = 1366
	DefaultHeight = 768
	DefaultStride = 2048
)

// Legacy VGA text buffer used when the platform mode is too small for a
// graphical framebuffer.
const (
	TextBase   = 0xB8000
	TextCols   = 80
	TextRows   = 25
	TextMemory = 0x8000

	minGraphicsWidth  = 640
	minGraphicsHeight = 480

	// Fallback aperture of the Bochs adapter when BAR0 is unprogrammed.
	bochsAperture = 0xE0000000

	hwFormat32 = 0x20
)

// Info describes a framebuffer bound directly to a GPU aperture.
type Info struct {
	Base              uint64
	Width             uint32
	Height            uint32
	PixelsPerScanLine uint32
	Format            pixel.Format

	VendorID   uint16
	DeviceID   uint16
	Type       pci.GpuType
	MemorySize uint64
	// TextMode marks the VGA text buffer (2 bytes per cell).
	TextMode bool
}

// FB converts i into the framebuffer description fb.Driver.Init takes.
func (i Info) FB() fb.Info {
	return fb.Info{
		Base:              i.Base,
		Width:             i.Width,
		Height:            i.Height,
		PixelsPerScanLine: i.PixelsPerScanLine,
		Format:            i.Format,
		Mask:              i.Format.Masks(),
	}
}

func (i Info) String() string {
	mode := ""
	if i.TextMode {
		mode = " text"
	}
	return fmt.Sprintf("direct fb %dx%d @%#x%s (%v %04x:%04x)", i.Width, i.Height, i.Base, mode, i.Type, i.VendorID, i.DeviceID)
}

// Preferred framebuffer BARs per vendor, first match wins.
var apertureBARs = map[pci.GpuType][]int{
	pci.Nvidia: {1, 0},
	pci.Amd:    {2, 0},
	pci.Intel:  {2, 0},
	pci.Vmware: {1, 0},
	pci.Virtio: {0},
}

// Driver configures and creates the direct framebuffer.
type Driver struct {
	ctrl *gpu.Controller
	mem  hal.MemoryMapper
	log  *klog.Logger

	info       Info
	configured bool
}

// New returns a driver that programs registers through ctrl and maps pixels
// through mem. ctrl may be nil when no controller came up; hardware init
// then fails for every vendor that needs registers.
func New(ctrl *gpu.Controller, mem hal.MemoryMapper, log *klog.Logger) *Driver {
	return &Driver{ctrl: ctrl, mem: mem, log: log}
}

// Current returns the last configuration.
func (d *Driver) Current() (Info, bool) {
	return d.info, d.configured
}

type platformMode struct {
	width, height, stride uint32
	format                pixel.Format
}

func platform() platformMode {
	if cur, ok := fb.ActiveInfo(); ok {
		stride := cur.PixelsPerScanLine
		if stride < cur.Width {
			stride = cur.Width
		}
		return platformMode{cur.Width, cur.Height, stride, cur.Format}
	}
	return platformMode{DefaultWidth, DefaultHeight, DefaultStride, pixel.BGR888}
}

// DetectAndConfigure picks the framebuffer aperture of dev and describes it
// with the platform's current geometry. No mode is set.
func (d *Driver) DetectAndConfigure(dev pci.Device) (Info, error) {
	mode := platform()
	info := Info{
		Width:             mode.width,
		Height:            mode.height,
		PixelsPerScanLine: mode.stride,
		Format:            mode.format,
		VendorID:          dev.VendorID,
		DeviceID:          dev.DeviceID,
		Type:              dev.Type,
		MemorySize:        dev.MemorySize,
	}

	switch dev.Type {
	case pci.QemuBochs:
		if mode.width < minGraphicsWidth || mode.height < minGraphicsHeight {
			info.Base = TextBase
			info.Width, info.Height = TextCols, TextRows
			info.PixelsPerScanLine = TextCols
			info.Format = pixel.RGB565
			info.MemorySize = TextMemory
			info.TextMode = true
			break
		}
		base, ok := dev.BARAddress(0)
		if !ok {
			base = bochsAperture
		}
		info.Base = base
		info.MemorySize = uint64(mode.height) * uint64(mode.stride) * uint64(mode.format.BytesPerPixel())
	case pci.Nvidia, pci.Amd, pci.Intel, pci.Vmware, pci.Virtio:
		base, bar, ok := aperture(dev)
		if !ok {
			return Info{}, fmt.Errorf("direct: %v has no framebuffer BAR: %w", dev, display.ErrGpuNotFound)
		}
		d.log.Debugf("%v framebuffer in BAR%d", dev.Type, bar)
		info.Base = base
	default:
		return Info{}, fmt.Errorf("direct: %v: %w", dev, display.ErrUnsupportedGpu)
	}

	d.info = info
	d.configured = true
	d.log.Infof("%v", info)
	return info, nil
}

func aperture(dev pci.Device) (base uint64, bar int, ok bool) {
	for _, i := range apertureBARs[dev.Type] {
		if addr, ok := dev.BARAddress(i); ok {
			return addr, i, true
		}
	}
	return 0, -1, false
}

type regWrite struct {
	index, v uint32
}

func baseRegs(info Info) []regWrite {
	return []regWrite{
		{0x0, 0},
		{0x1, info.Width},
		{0x2, info.Height},
		{0x3, info.PixelsPerScanLine},
		{0x4, hwFormat32},
		{0x5, uint32(info.Base)},
	}
}

func hardwareSequence(info Info) []regWrite {
	switch info.Type {
	case pci.Nvidia:
		return append(baseRegs(info),
			regWrite{0x6, uint32(info.Base >> 32)},
			regWrite{0x10, 1}, // 2D engine
			regWrite{0x11, 1}, // cursor
			regWrite{0x12, 1}, // scrolling
		)
	case pci.Amd, pci.Intel:
		return append(baseRegs(info), regWrite{0x10, 1}, regWrite{0x11, 1})
	case pci.QemuBochs:
		return []regWrite{{0x0, 1}, {0x1, info.Width}, {0x2, info.Height}}
	}
	return baseRegs(info)
}

// InitializeHardwareFramebuffer points the controller's scanout registers at
// the configured framebuffer.
func (d *Driver) InitializeHardwareFramebuffer() error {
	if !d.configured {
		return fmt.Errorf("direct: hardware init before configure: %w", display.ErrInvalidParameter)
	}
	return d.program(d.info)
}

func (d *Driver) program(info Info) error {
	if info.Type == pci.QemuBochs && (d.ctrl == nil || !d.ctrl.HasMMIO()) {
		d.log.Infof("qemu: no register window, keeping firmware scanout")
		return nil
	}
	if d.ctrl == nil {
		return fmt.Errorf("direct: no controller for %v: %w", info.Type, display.ErrGpuNotFound)
	}
	for _, w := range hardwareSequence(info) {
		if err := d.ctrl.WriteRegister(w.index*4, w.v); err != nil {
			return fmt.Errorf("direct: %v register %#x: %w", info.Type, w.index, err)
		}
	}
	return nil
}

// Reconfigure reprograms the hardware for a framebuffer produced by a later
// mode set and records it as current.
func (d *Driver) Reconfigure(f fb.Info) error {
	if !d.configured {
		return fmt.Errorf("direct: reconfigure before configure: %w", display.ErrInvalidParameter)
	}
	next := d.info
	next.Base = f.Base
	next.Width, next.Height = f.Width, f.Height
	next.PixelsPerScanLine = f.PixelsPerScanLine
	next.Format = f.Format
	next.TextMode = false
	if err := d.program(next); err != nil {
		return err
	}
	d.info = next
	return nil
}

// CreateFramebufferDriver maps the configured framebuffer and makes it the
// active one.
func (d *Driver) CreateFramebufferDriver() (*fb.Driver, error) {
	if !d.configured {
		return nil, fmt.Errorf("direct: no configured framebuffer: %w", display.ErrInvalidParameter)
	}
	i := d.info.FB()
	drv := fb.New(d.mem, d.log.With("fb"))
	if err := drv.Init(i.Base, i.Width, i.Height, i.PixelsPerScanLine, i.Format, i.Mask); err != nil {
		return nil, err
	}
	if prev := fb.SetActive(drv); prev != nil {
		d.log.Debugf("replaced active framebuffer %v", prev.Info())
	}
	return drv, nil
}
