package pci

import "fmt"

type GpuType uint8

const (
	Unknown GpuType = iota
	Nvidia
	Amd
	Intel
	QemuBochs
	Vmware
	Virtio
)

func (t GpuType) String() string {
	switch t {
	case Nvidia:
		return "nvidia"
	case Amd:
		return "amd"
	case Intel:
		return "intel"
	case QemuBochs:
		return "qemu-bochs"
	case Vmware:
		return "vmware"
	case Virtio:
		return "virtio"
	}
	return "unknown"
}

// Vendor IDs of the display controllers the drivers know.
const (
	VendorNvidia = 0x10DE
	VendorAMD    = 0x1002
	VendorIntel  = 0x8086
	VendorQEMU   = 0x1234
	VendorVMware = 0x15AD
	VendorRedHat = 0x1AF4

	DeviceBochsVGA = 0x1111
)

func Classify(vendor, device uint16) GpuType {
	switch vendor {
	case VendorNvidia:
		return Nvidia
	case VendorAMD:
		return Amd
	case VendorIntel:
		return Intel
	case VendorQEMU:
		if device == DeviceBochsVGA {
			return QemuBochs
		}
	case VendorVMware:
		return Vmware
	case VendorRedHat:
		return Virtio
	}
	return Unknown
}

// Device is one PCI function as seen by the display drivers.
type Device struct {
	Bus, Slot, Function uint8

	VendorID, DeviceID      uint16
	Class, Subclass, ProgIF uint8
	Type                    GpuType

	BARs     [6]uint32
	BARSizes [6]uint64
	// MemorySize is the largest memory BAR window.
	MemorySize uint64
}

func (d Device) String() string {
	return fmt.Sprintf("%02x:%02x.%d %04x:%04x %v", d.Bus, d.Slot, d.Function, d.VendorID, d.DeviceID, d.Type)
}

// isUpperHalf reports whether slot i holds the high dword of the 64-bit
// memory BAR below it. The walk starts at BAR0 because a high dword is plain
// address bits and can look like a 64-bit BAR itself.
func (d Device) isUpperHalf(i int) bool {
	for j := 0; j < i; j++ {
		if d.BARs[j]&0x7 == 0x4 {
			if j+1 == i {
				return true
			}
			j++
		}
	}
	return false
}

// IsMemoryBAR reports whether BAR i decodes memory space (and is not the
// upper dword of a 64-bit BAR).
func (d Device) IsMemoryBAR(i int) bool {
	return i >= 0 && i < 6 && d.BARs[i]&0x1 == 0 && !d.isUpperHalf(i)
}

// BARAddress decodes the base of memory BAR i, including the upper dword of
// 64-bit BARs. ok is false for I/O BARs and unprogrammed BARs.
func (d Device) BARAddress(i int) (addr uint64, ok bool) {
	if !d.IsMemoryBAR(i) {
		return 0, false
	}
	addr = uint64(d.BARs[i] & 0xFFFFFFF0)
	if d.BARs[i]&0x7 == 0x4 && i < 5 {
		addr |= uint64(d.BARs[i+1]) << 32
	}
	return addr, addr != 0
}
