// Package gpu drives a display controller's registers: BAR discovery, MMIO
// mapping, vendor bring-up and mode setting (MMIO for discrete GPUs, the
// Bochs VBE DISPI ports for emulated ones).
package gpu

import (
	"errors"
	"fmt"

	"kdisplay/display"
	"kdisplay/display/fb"
	"kdisplay/display/pci"
	"kdisplay/display/pixel"
	"kdisplay/hal"
	"kdisplay/internal/klog"
)

const (
	// KernelVirtualOffset is where the kernel's direct map of physical
	// memory starts; KernelVirtualLimit is the last mapped byte.
	KernelVirtualOffset = 0xFFFF800000000000
	KernelVirtualLimit  = 0xFFFF8000FFFFFFFF

	// Pauses after every register store.
	writeSettlePauses = 10
	// Pauses after a VBE mode switch.
	vbeSettleSpins = 20000

	barAddressMask = 0xFFFFFFF0
)

// Fixed bases used when an emulated device's BAR0 is still unprogrammed.
var simulatedBase = map[pci.GpuType]uint64{
	pci.QemuBochs: 0xE0000000,
	pci.Vmware:    0xE1000000,
	pci.Virtio:    0xE2000000,
}

// Smallest MMIO window each vendor needs for the registers we touch.
var minMMIOSize = map[pci.GpuType]uint32{
	pci.Nvidia: 1 << 20,
	pci.Amd:    512 << 10,
	pci.Intel:  256 << 10,
}

const defaultMMIOSize = 64 << 10

// Controller owns one display controller's register window.
type Controller struct {
	log   *klog.Logger
	cfg   *pci.ConfigSpace
	ports hal.PortIO
	mem   hal.MemoryMapper

	dev         pci.Device
	typ         pci.GpuType
	physBase    uint64
	mmioSize    uint32
	mmio        *hal.Region
	initialized bool

	vram     *VRAM
	modeAddr uint64
	modeSize int
}

func New(ports hal.PortIO, mem hal.MemoryMapper, log *klog.Logger) *Controller {
	return &Controller{
		log:   log,
		cfg:   pci.NewConfigSpace(ports),
		ports: ports,
		mem:   mem,
	}
}

func (c *Controller) Type() pci.GpuType  { return c.typ }
func (c *Controller) Device() pci.Device { return c.dev }
func (c *Controller) Initialized() bool  { return c.initialized }
func (c *Controller) PhysBase() uint64   { return c.physBase }
func (c *Controller) MMIOSize() uint32   { return c.mmioSize }
func (c *Controller) HasMMIO() bool      { return c.mmio != nil }
func (c *Controller) VRAM() *VRAM        { return c.vram }

// VirtualBase is the kernel address of the register window, or 0 when
// nothing is mapped (Bochs).
func (c *Controller) VirtualBase() uint64 {
	if c.mmio == nil {
		return 0
	}
	return c.physBase + KernelVirtualOffset
}

// Initialize discovers and maps dev's register window and runs the vendor
// bring-up. On failure the controller is left uninitialized with nothing
// mapped.
func (c *Controller) Initialize(dev pci.Device) error {
	if c.initialized {
		return nil
	}
	c.dev = dev
	c.typ = dev.Type

	base, err := c.readBase()
	if err != nil {
		return err
	}
	c.physBase = base
	c.mmioSize = c.windowSize()

	if err := c.mapWindow(); err != nil {
		return err
	}
	c.vram = c.newVRAM()

	c.initialized = true
	if err := c.setup(); err != nil {
		c.initialized = false
		c.mmio = nil
		c.vram = nil
		c.log.Errorf("%v bring-up failed: %v", c.typ, err)
		return &display.DriverInitError{Module: "gpu", Msg: fmt.Sprintf("%v bring-up", c.typ), Err: err}
	}
	c.log.Infof("%v ready: mmio %#x+%#x virt %#x", dev, c.physBase, c.mmioSize, c.VirtualBase())
	return nil
}

// readBase decodes BAR0 (BAR0+BAR1 for 64-bit memory BARs) from config space.
func (c *Controller) readBase() (uint64, error) {
	d := c.dev
	bar0 := c.cfg.Read32(d.Bus, d.Slot, d.Function, pci.OffBAR0)
	base := uint64(bar0 & barAddressMask)
	if bar0&0x7 == 0x4 {
		hi := c.cfg.Read32(d.Bus, d.Slot, d.Function, pci.OffBAR0+4)
		base |= uint64(hi) << 32
	}
	if base != 0 {
		return base, nil
	}
	sim, ok := simulatedBase[c.typ]
	if !ok {
		return 0, fmt.Errorf("gpu: %v has no BAR0 address: %w", d, display.ErrGpuNotFound)
	}
	c.log.Warnf("%v BAR0 unprogrammed, assuming %#x", d, sim)
	return sim, nil
}

func (c *Controller) windowSize() uint32 {
	if c.typ == pci.QemuBochs {
		return defaultMMIOSize
	}
	floor, ok := minMMIOSize[c.typ]
	if !ok {
		floor = defaultMMIOSize
	}
	size := c.dev.BARSizes[0]
	if size < uint64(floor) {
		return floor
	}
	if size > 1<<31 {
		return 1 << 31
	}
	return uint32(size)
}

// mapWindow maps the register window. The Bochs adapter is programmed
// through I/O ports, so it gets no mapping at all.
func (c *Controller) mapWindow() error {
	if c.typ == pci.QemuBochs {
		c.mmio = nil
		return nil
	}
	virt := c.physBase + KernelVirtualOffset
	end := virt + uint64(c.mmioSize) - 1
	if virt < c.physBase || end < virt || end > KernelVirtualLimit {
		return fmt.Errorf("gpu: window %#x+%#x outside the kernel map: %w", c.physBase, c.mmioSize, display.ErrMappingFailure)
	}
	r, err := c.mem.Map(c.physBase, int(c.mmioSize))
	if err != nil {
		return fmt.Errorf("gpu: map %#x: %w: %v", c.physBase, display.ErrMappingFailure, err)
	}
	c.mmio = r
	return nil
}

// newVRAM builds the allocator over the largest memory BAR other than the
// register BAR. Devices without one simply cannot set modes through MMIO.
func (c *Controller) newVRAM() *VRAM {
	if c.typ == pci.QemuBochs {
		return nil
	}
	best, bestSize := uint64(0), uint64(0)
	for i := 1; i < 6; i++ {
		addr, ok := c.dev.BARAddress(i)
		if !ok || c.dev.BARSizes[i] <= bestSize {
			continue
		}
		best, bestSize = addr, c.dev.BARSizes[i]
	}
	if bestSize == 0 {
		return nil
	}
	v, err := NewVRAM(best, bestSize)
	if err != nil {
		c.log.Warnf("no vram allocator: %v", err)
		return nil
	}
	return v
}

// WriteRegister stores v at MMIO offset off, then waits out the device's
// write latency.
func (c *Controller) WriteRegister(off, v uint32) error {
	if err := c.checkRegister(off); err != nil {
		return err
	}
	if err := c.mmio.Write32(int(off), v); err != nil {
		return fmt.Errorf("gpu: write %#x: %w: %v", off, display.ErrRegisterOutOfRange, err)
	}
	for i := 0; i < writeSettlePauses; i++ {
		c.ports.Pause()
	}
	return nil
}

// Pause issues one spin-wait hint on the controller's bus.
func (c *Controller) Pause() { c.ports.Pause() }

func (c *Controller) ReadRegister(off uint32) (uint32, error) {
	if err := c.checkRegister(off); err != nil {
		return 0, err
	}
	v, err := c.mmio.Read32(int(off))
	if err != nil {
		return 0, fmt.Errorf("gpu: read %#x: %w: %v", off, display.ErrRegisterOutOfRange, err)
	}
	return v, nil
}

func (c *Controller) checkRegister(off uint32) error {
	if !c.initialized {
		return fmt.Errorf("gpu: register access: %w", display.ErrGpuNotFound)
	}
	if c.mmio == nil {
		return fmt.Errorf("gpu: %v has no register window: %w", c.typ, display.ErrMappingFailure)
	}
	if off >= c.mmioSize || off%4 != 0 {
		return fmt.Errorf("gpu: offset %#x (window %#x): %w", off, c.mmioSize, display.ErrRegisterOutOfRange)
	}
	return nil
}

// writeSequence stores each (offset, value) pair in order, stopping at the
// first failure.
func (c *Controller) writeSequence(seq []regWrite) error {
	for _, w := range seq {
		if err := c.WriteRegister(w.off, w.v); err != nil {
			return err
		}
	}
	return nil
}

type regWrite struct {
	off, v uint32
}

var (
	nvidiaSetup = []regWrite{
		{0x00, 0x12345678}, {0x04, 1}, {0x08, 0}, {0x0C, 1},
		{0x10, 1}, {0x14, 0}, {0x18, 1}, {0x1C, 1},
	}
	amdSetup   = []regWrite{{0x00, 0x87654321}, {0x04, 1}, {0x08, 0}}
	intelSetup = []regWrite{{0x00, 0x11111111}, {0x04, 1}, {0x08, 0}}
)

func (c *Controller) setup() error {
	switch c.typ {
	case pci.Nvidia:
		return c.writeSequence(nvidiaSetup)
	case pci.Amd:
		return c.writeSequence(amdSetup)
	case pci.Intel:
		return c.writeSequence(intelSetup)
	case pci.QemuBochs:
		return c.setupQEMU()
	case pci.Vmware, pci.Virtio:
		return nil
	}
	return fmt.Errorf("gpu: %v: %w", c.dev, display.ErrUnsupportedGpu)
}

// setupQEMU needs no MMIO; it only confirms the DISPI interface answers.
func (c *Controller) setupQEMU() error {
	id := c.vbeRead(VBEIndexID)
	if id < VBEDispiID0 || id > VBEDispiID5 {
		return fmt.Errorf("gpu: vbe dispi id %#x not supported", id)
	}
	c.log.Debugf("vbe dispi id %#x", id)
	return nil
}

// ChangeResolution programs a new display mode and returns the framebuffer
// it produced.
func (c *Controller) ChangeResolution(width, height, bpp uint32) (fb.Info, error) {
	if !c.initialized {
		return fb.Info{}, fmt.Errorf("gpu: change resolution: %w", display.ErrGpuNotFound)
	}
	if width == 0 || height == 0 || width > fb.MaxDimension || height > fb.MaxDimension {
		return fb.Info{}, fmt.Errorf("gpu: mode %dx%d: %w", width, height, display.ErrInvalidParameter)
	}
	format := pixel.FormatForDepth(int(bpp))
	if format == pixel.Unknown {
		return fb.Info{}, fmt.Errorf("gpu: depth %d: %w", bpp, display.ErrInvalidParameter)
	}

	switch c.typ {
	case pci.QemuBochs:
		return c.setModeVBE(width, height, bpp, format), nil
	case pci.Nvidia, pci.Amd, pci.Intel:
		info, err := c.setModeMMIO(width, height, bpp, format)
		if err != nil {
			c.log.Errorf("mode %dx%dx%d failed: %v", width, height, bpp, err)
			return fb.Info{}, fmt.Errorf("gpu: %w: %w", display.ErrSetModeFailed, err)
		}
		return info, nil
	}
	return fb.Info{}, fmt.Errorf("gpu: %v has no mode-set protocol: %w", c.typ, display.ErrSetModeFailed)
}

// Mode registers of the discrete path.
const (
	regModeControl = 0x10
	regModeWidth   = 0x14
	regModeHeight  = 0x18
	regModeDepth   = 0x1C
	regModeStride  = 0x20
	regModeBaseLo  = 0x24
	regModeBaseHi  = 0x28
)

// modeRegs is the discrete mode register file in programming order.
var modeRegs = []uint32{
	regModeControl, regModeWidth, regModeHeight, regModeDepth,
	regModeStride, regModeBaseLo, regModeBaseHi,
}

// setModeMMIO reserves the scanout first so an exhausted aperture leaves the
// registers untouched. A failed register write puts the previous mode and
// reservation back.
func (c *Controller) setModeMMIO(width, height, bpp uint32, format pixel.Format) (fb.Info, error) {
	stride := width * (bpp / 8)
	addr, undo, err := c.swapScanout(int(stride) * int(height))
	if err != nil {
		return fb.Info{}, err
	}
	saved, err := c.readModeRegs()
	if err != nil {
		undo()
		return fb.Info{}, err
	}
	if err := c.writeSequence([]regWrite{
		{regModeControl, 0},
		{regModeWidth, width},
		{regModeHeight, height},
		{regModeDepth, bpp},
		{regModeStride, stride},
		{regModeBaseLo, uint32(addr)},
		{regModeBaseHi, uint32(addr >> 32)},
		{regModeControl, 1},
	}); err != nil {
		if rerr := c.restoreModeRegs(saved); rerr != nil {
			err = errors.Join(err, rerr)
		}
		undo()
		return fb.Info{}, err
	}

	c.log.Infof("mode %dx%dx%d scanout %#x", width, height, bpp, addr)
	return fb.Info{
		Base:              addr,
		Width:             width,
		Height:            height,
		PixelsPerScanLine: width,
		Format:            format,
		Mask:              format.Masks(),
	}, nil
}

func (c *Controller) readModeRegs() ([]uint32, error) {
	saved := make([]uint32, len(modeRegs))
	for i, off := range modeRegs {
		v, err := c.ReadRegister(off)
		if err != nil {
			return nil, err
		}
		saved[i] = v
	}
	return saved, nil
}

// restoreModeRegs disables scanout, rewrites the saved geometry and then the
// saved control value.
func (c *Controller) restoreModeRegs(saved []uint32) error {
	seq := []regWrite{{regModeControl, 0}}
	for i, off := range modeRegs[1:] {
		seq = append(seq, regWrite{off, saved[i+1]})
	}
	seq = append(seq, regWrite{regModeControl, saved[0]})
	return c.writeSequence(seq)
}

// swapScanout moves the scanout reservation to a range of size bytes. The
// pages of the current scanout may be reused. When no range fits, the
// current reservation is left as it was. undo restores it after a later
// failure.
func (c *Controller) swapScanout(size int) (addr uint64, undo func(), err error) {
	if c.vram == nil {
		return 0, nil, fmt.Errorf("gpu: %v exposes no framebuffer aperture", c.dev)
	}
	prevAddr, prevSize := c.modeAddr, c.modeSize
	if prevSize > 0 {
		if err := c.vram.Free(prevAddr, prevSize); err != nil {
			return 0, nil, err
		}
	}
	keep := func() error {
		if prevSize == 0 {
			return nil
		}
		return c.vram.Reserve(prevAddr, prevSize)
	}
	addr, err = c.vram.Alloc(size)
	if err != nil {
		if rerr := keep(); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return 0, nil, err
	}
	c.modeAddr, c.modeSize = addr, size
	undo = func() {
		if err := c.vram.Free(addr, size); err != nil {
			c.log.Errorf("scanout rollback: %v", err)
		}
		if err := keep(); err != nil {
			c.log.Errorf("scanout rollback: %v", err)
		}
		c.modeAddr, c.modeSize = prevAddr, prevSize
	}
	return addr, undo, nil
}
