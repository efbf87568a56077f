package hal

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// MachineConfig selects the simulated display hardware.
type MachineConfig struct {
	// GPU is one of "bochs", "nvidia", "amd", "intel", "vmware", "virtio".
	GPU string
	// Firmware mode left active at boot.
	Width  int
	Height int
}

type gpuPreset struct {
	vendor, device uint16
	bars           [6]uint32
	sizes          [6]uint32
	fbBAR          int
	mmioBAR        int
}

const (
	mib = 1 << 20
	kib = 1 << 10
)

var gpuPresets = map[string]gpuPreset{
	"bochs": {
		vendor: 0x1234, device: 0x1111,
		bars:  [6]uint32{0xE0000008, 0, 0xFEBF0000},
		sizes: [6]uint32{16 * mib, 0, 4 * kib},
		fbBAR: 0, mmioBAR: 2,
	},
	"nvidia": {
		vendor: 0x10DE, device: 0x1C82,
		bars:  [6]uint32{0xFD000000, 0xC000000C, 0},
		sizes: [6]uint32{1 * mib, 32 * mib, 0},
		fbBAR: 1, mmioBAR: 0,
	},
	"amd": {
		vendor: 0x1002, device: 0x67DF,
		bars:  [6]uint32{0xFE000000, 0, 0xD000000C, 0},
		sizes: [6]uint32{512 * kib, 0, 32 * mib, 0},
		fbBAR: 2, mmioBAR: 0,
	},
	"intel": {
		vendor: 0x8086, device: 0x3E92,
		bars:  [6]uint32{0xF6000004, 0, 0xB000000C, 0},
		sizes: [6]uint32{256 * kib, 0, 32 * mib, 0},
		fbBAR: 2, mmioBAR: 0,
	},
	"vmware": {
		vendor: 0x15AD, device: 0x0405,
		bars:  [6]uint32{0xFE400000, 0xE8000008},
		sizes: [6]uint32{64 * kib, 32 * mib},
		fbBAR: 1, mmioBAR: 0,
	},
	"virtio": {
		vendor: 0x1AF4, device: 0x1050,
		bars:  [6]uint32{0xE2000008},
		sizes: [6]uint32{16 * mib},
		fbBAR: 0, mmioBAR: -1,
	},
}

// GPUNames lists the simulated GPUs NewSimulatedPC accepts.
func GPUNames() []string {
	return []string{"bochs", "nvidia", "amd", "intel", "vmware", "virtio"}
}

// SimulatedPC is a Machine populated like a small PC with one display
// adapter, plus the firmware handoff describing the boot mode.
type SimulatedPC struct {
	*Machine
	handoff FramebufferHandoff
}

// NewSimulatedPC builds a machine with a host bridge and the selected GPU at
// 00:02.0. The firmware framebuffer is BGR888 at the GPU's aperture.
func NewSimulatedPC(cfg MachineConfig) (*SimulatedPC, error) {
	if cfg.GPU == "" {
		cfg.GPU = "bochs"
	}
	if cfg.Width <= 0 {
		cfg.Width = 1024
	}
	if cfg.Height <= 0 {
		cfg.Height = 768
	}
	p, ok := gpuPresets[strings.ToLower(cfg.GPU)]
	if !ok {
		return nil, fmt.Errorf("unknown simulated gpu %q", cfg.GPU)
	}

	m := NewMachine()
	m.AttachPCI(&SimPCIDevice{
		VendorID: 0x8086, DeviceID: 0x1237,
		Class: 0x06,
	})
	m.AttachPCI(&SimPCIDevice{
		Device:   2,
		VendorID: p.vendor, DeviceID: p.device,
		Class: 0x03,
		BARs:  p.bars, BARSizes: p.sizes,
	})

	// Legacy VGA text buffer.
	m.AddRAM(0xB8000, 0x8000)

	fbBase := uint64(p.bars[p.fbBAR] &^ 0xF)
	m.AddRAM(fbBase, int(p.sizes[p.fbBAR]))
	if p.mmioBAR >= 0 {
		m.AddMMIO(uint64(p.bars[p.mmioBAR]&^0xF), int(p.sizes[p.mmioBAR]))
	}
	if p.vendor == 0x1234 {
		m.EnableVBE(0xB0C5)
	}

	need := cfg.Width * cfg.Height * 3
	if need > int(p.sizes[p.fbBAR]) {
		return nil, fmt.Errorf("firmware mode %dx%d does not fit the %s aperture", cfg.Width, cfg.Height, cfg.GPU)
	}

	return &SimulatedPC{
		Machine: m,
		handoff: FramebufferHandoff{
			Base:              fbBase,
			Width:             uint32(cfg.Width),
			Height:            uint32(cfg.Height),
			PixelsPerScanLine: uint32(cfg.Width),
			FormatCode:        1,
			RedMask:           0x000000FF,
			GreenMask:         0x0000FF00,
			BlueMask:          0x00FF0000,
		},
	}, nil
}

func (pc *SimulatedPC) FramebufferHandoff() (FramebufferHandoff, bool) {
	return pc.handoff, true
}

type hostHAL struct {
	logger *hostLogger
	ports  PortIO
	mem    MemoryMapper
	disp   *hostDisplay
	fw     Firmware
}

// New returns a host HAL over the simulated PC.
func New(pc *SimulatedPC) HAL {
	return &hostHAL{
		logger: &hostLogger{w: os.Stdout},
		ports:  pc.Machine,
		mem:    pc.Machine,
		disp:   newHostDisplay(),
		fw:     pc,
	}
}

func (h *hostHAL) Logger() Logger       { return h.logger }
func (h *hostHAL) Ports() PortIO        { return h.ports }
func (h *hostHAL) Memory() MemoryMapper { return h.mem }
func (h *hostHAL) Display() Display     { return h.disp }
func (h *hostHAL) Firmware() Firmware   { return h.fw }

type noFirmware struct{}

func (noFirmware) FramebufferHandoff() (FramebufferHandoff, bool) {
	return FramebufferHandoff{}, false
}

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
