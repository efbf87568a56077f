package hal

// SimPCIDevice is one function on the simulated PCI bus.
//
// BARs hold the programmed values including the low flag bits. BARSizes hold
// the decoded window size for each BAR (0 for unimplemented BARs and for the
// upper half of a 64-bit BAR).
type SimPCIDevice struct {
	Bus, Device, Function uint8

	VendorID, DeviceID uint16
	Class, Subclass    uint8
	ProgIF, Revision   uint8

	BARs     [6]uint32
	BARSizes [6]uint32

	command uint16
}

func (d *SimPCIDevice) readConfig(off uint8) uint32 {
	switch off & 0xFC {
	case 0x00:
		return uint32(d.VendorID) | uint32(d.DeviceID)<<16
	case 0x04:
		return uint32(d.command)
	case 0x08:
		return uint32(d.Revision) | uint32(d.ProgIF)<<8 | uint32(d.Subclass)<<16 | uint32(d.Class)<<24
	case 0x0C:
		return 0
	case 0x10, 0x14, 0x18, 0x1C, 0x20, 0x24:
		return d.BARs[(off-0x10)/4]
	}
	return 0
}

func (d *SimPCIDevice) writeConfig(off uint8, v uint32) {
	switch off & 0xFC {
	case 0x04:
		d.command = uint16(v)
	case 0x10, 0x14, 0x18, 0x1C, 0x20, 0x24:
		i := (off - 0x10) / 4
		d.BARs[i] = d.barWriteValue(int(i), v)
	}
}

// barWriteValue mimics the read-only low bits of a real BAR: only the
// address bits covered by the decoded size are writable.
func (d *SimPCIDevice) barWriteValue(i int, v uint32) uint32 {
	size := d.BARSizes[i]
	if size == 0 {
		if i > 0 && d.BARs[i-1]&0x7 == 0x4 && d.BARSizes[i-1] != 0 {
			// Upper dword of a 64-bit BAR below 4 GiB.
			return v
		}
		return 0
	}
	flags := d.BARs[i] & 0xF
	if flags&0x1 == 0x1 {
		flags = d.BARs[i] & 0x3
	}
	return v&^(size-1)&^0xF | flags
}
