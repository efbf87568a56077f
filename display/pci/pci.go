// Package pci reads PCI configuration space through configuration mechanism
// #1 (ports 0xCF8/0xCFC) and classifies display controllers.
package pci

import (
	"fmt"

	"kdisplay/display"
	"kdisplay/hal"
)

const (
	PortConfigAddress = 0xCF8
	PortConfigData    = 0xCFC

	ClassDisplay = 0x03

	OffVendorID   = 0x00
	OffCommand    = 0x04
	OffClass      = 0x08
	OffHeaderType = 0x0C
	OffBAR0       = 0x10

	cmdIOSpace  = 0x1
	cmdMemSpace = 0x2
)

// Address encodes a configuration address: enable bit, bus, device,
// function and a dword-aligned register offset.
func Address(bus, slot, fn, off uint8) uint32 {
	return 1<<31 | uint32(bus)<<16 | uint32(slot&0x1F)<<11 | uint32(fn&0x7)<<8 | uint32(off&0xFC)
}

// ConfigSpace accesses configuration registers through port I/O.
type ConfigSpace struct {
	ports hal.PortIO
}

func NewConfigSpace(ports hal.PortIO) *ConfigSpace {
	return &ConfigSpace{ports: ports}
}

func (c *ConfigSpace) Read32(bus, slot, fn, off uint8) uint32 {
	c.ports.Out32(PortConfigAddress, Address(bus, slot, fn, off))
	return c.ports.In32(PortConfigData)
}

func (c *ConfigSpace) Write32(bus, slot, fn, off uint8, v uint32) {
	c.ports.Out32(PortConfigAddress, Address(bus, slot, fn, off))
	c.ports.Out32(PortConfigData, v)
}

func (c *ConfigSpace) Read16(bus, slot, fn, off uint8) uint16 {
	return uint16(c.Read32(bus, slot, fn, off) >> (8 * uint(off&2)))
}

// ProbeBARSize sizes BAR i by writing all-ones and reading back the
// writable bits. Decoding is disabled during the probe and the original
// values are restored. 64-bit memory BARs are sized across both dwords.
func (c *ConfigSpace) ProbeBARSize(bus, slot, fn uint8, i int) uint64 {
	if i < 0 || i > 5 {
		return 0
	}
	off := uint8(OffBAR0 + 4*i)
	orig := c.Read32(bus, slot, fn, off)

	cmd := c.Read32(bus, slot, fn, OffCommand)
	c.Write32(bus, slot, fn, OffCommand, cmd&^(cmdIOSpace|cmdMemSpace))
	defer c.Write32(bus, slot, fn, OffCommand, cmd)

	c.Write32(bus, slot, fn, off, 0xFFFFFFFF)
	lo := c.Read32(bus, slot, fn, off)
	c.Write32(bus, slot, fn, off, orig)

	if orig&0x1 == 0x1 {
		mask := lo &^ 0x3
		if mask == 0 {
			return 0
		}
		return uint64(^mask&0xFFFF) + 1
	}

	mask := uint64(lo &^ 0xF)
	if orig&0x7 == 0x4 && i < 5 {
		hiOff := off + 4
		origHi := c.Read32(bus, slot, fn, hiOff)
		c.Write32(bus, slot, fn, hiOff, 0xFFFFFFFF)
		hi := c.Read32(bus, slot, fn, hiOff)
		c.Write32(bus, slot, fn, hiOff, origHi)
		mask |= uint64(hi) << 32
	} else {
		mask |= 0xFFFFFFFF << 32
	}
	if mask&0xFFFFFFFF == 0 && mask>>32 == 0xFFFFFFFF {
		return 0
	}
	return ^mask + 1
}

// ReadDevice decodes the header at bus:slot.fn. ok is false when no
// function responds there.
func (c *ConfigSpace) ReadDevice(bus, slot, fn uint8) (dev Device, ok bool) {
	id := c.Read32(bus, slot, fn, OffVendorID)
	if uint16(id) == 0xFFFF {
		return Device{}, false
	}
	class := c.Read32(bus, slot, fn, OffClass)
	dev = Device{
		Bus:      bus,
		Slot:     slot,
		Function: fn,
		VendorID: uint16(id),
		DeviceID: uint16(id >> 16),
		Class:    uint8(class >> 24),
		Subclass: uint8(class >> 16),
		ProgIF:   uint8(class >> 8),
	}
	dev.Type = Classify(dev.VendorID, dev.DeviceID)
	if c.Read32(bus, slot, fn, OffHeaderType)>>16&0x7F != 0 {
		// Bridges have only two BARs and a different layout.
		return dev, true
	}
	for i := 0; i < 6; i++ {
		dev.BARs[i] = c.Read32(bus, slot, fn, uint8(OffBAR0+4*i))
	}
	for i := 0; i < 6; i++ {
		if dev.isUpperHalf(i) {
			continue
		}
		dev.BARSizes[i] = c.ProbeBARSize(bus, slot, fn, i)
		if dev.BARs[i]&0x1 == 0 && dev.BARSizes[i] > dev.MemorySize {
			dev.MemorySize = dev.BARSizes[i]
		}
	}
	return dev, true
}

// Scan walks every bus, slot and function and returns the responding ones.
func (c *ConfigSpace) Scan() []Device {
	var out []Device
	for bus := 0; bus < 256; bus++ {
		for slot := uint8(0); slot < 32; slot++ {
			dev, ok := c.ReadDevice(uint8(bus), slot, 0)
			if !ok {
				continue
			}
			out = append(out, dev)
			if c.Read32(uint8(bus), slot, 0, OffHeaderType)>>16&0x80 == 0 {
				continue
			}
			for fn := uint8(1); fn < 8; fn++ {
				if dev, ok := c.ReadDevice(uint8(bus), slot, fn); ok {
					out = append(out, dev)
				}
			}
		}
	}
	return out
}

// FindDisplay returns the first display-class function on the bus.
func (c *ConfigSpace) FindDisplay() (Device, error) {
	for _, dev := range c.Scan() {
		if dev.Class == ClassDisplay {
			return dev, nil
		}
	}
	return Device{}, fmt.Errorf("pci: no display controller: %w", display.ErrGpuNotFound)
}
