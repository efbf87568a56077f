package hal

import (
	"errors"
	"image"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// PortIO is the x86 I/O port capability.
//
// Pause executes one spin-loop hint (PAUSE on x86). Drivers use it for the
// fixed busy-waits that follow register writes.
type PortIO interface {
	In8(port uint16) uint8
	Out8(port uint16, v uint8)
	In16(port uint16) uint16
	Out16(port uint16, v uint16)
	In32(port uint16) uint32
	Out32(port uint16, v uint32)
	Pause()
}

// MemoryMapper maps a physical address range into an owned Region.
type MemoryMapper interface {
	Map(phys uint64, size int) (*Region, error)
}

// Display receives finished frames for presentation (window, snapshot).
type Display interface {
	Present(src image.Image) error
}

// HAL provides the only contact point between the display layer and the machine.
type HAL interface {
	Logger() Logger
	Ports() PortIO
	Memory() MemoryMapper
	Display() Display
	Firmware() Firmware
}

// FramebufferHandoff is the boot-time description of the display mode the
// firmware left active (a UEFI GOP mode or equivalent).
//
// FormatCode: 0=RGB, 1=BGR, 2=bitmask, 3=blt-only.
type FramebufferHandoff struct {
	Base              uint64
	Width             uint32
	Height            uint32
	PixelsPerScanLine uint32
	FormatCode        uint32
	RedMask           uint32
	GreenMask         uint32
	BlueMask          uint32
	ReservedMask      uint32
}

// Firmware exposes the platform handoff, when the platform has one.
type Firmware interface {
	FramebufferHandoff() (FramebufferHandoff, bool)
}
