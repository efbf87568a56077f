package gpu

import (
	"kdisplay/display/fb"
	"kdisplay/display/pixel"
	"kdisplay/hal"
)

// Bochs VBE DISPI interface.
const (
	VBEPortIndex = 0x01CE
	VBEPortData  = 0x01CF

	VBEIndexID         = 0
	VBEIndexXRes       = 1
	VBEIndexYRes       = 2
	VBEIndexBPP        = 3
	VBEIndexEnable     = 4
	VBEIndexBank       = 5
	VBEIndexVirtWidth  = 6
	VBEIndexVirtHeight = 7
	VBEIndexXOffset    = 8
	VBEIndexYOffset    = 9

	VBEDispiID0 = 0xB0C0
	VBEDispiID5 = 0xB0C5

	VBEDisabled   = 0x00
	VBEEnabled    = 0x01
	VBELFBEnabled = 0x40
	VBENoClearMem = 0x80
)

func (c *Controller) vbeWrite(index, v uint16) {
	c.ports.Out16(VBEPortIndex, index)
	c.ports.Out16(VBEPortData, v)
}

func (c *Controller) vbeRead(index uint16) uint16 {
	c.ports.Out16(VBEPortIndex, index)
	return c.ports.In16(VBEPortData)
}

// setModeVBE runs the DISPI sequence: disable, geometry, depth, virtual
// size, offsets, enable. The resulting framebuffer keeps the active
// framebuffer's base, pitch and layout when one is bound.
func (c *Controller) setModeVBE(width, height, bpp uint32, format pixel.Format) fb.Info {
	c.vbeWrite(VBEIndexEnable, VBEDisabled)
	c.vbeWrite(VBEIndexXRes, uint16(width))
	c.vbeWrite(VBEIndexYRes, uint16(height))
	c.vbeWrite(VBEIndexBPP, uint16(bpp))
	c.vbeWrite(VBEIndexVirtWidth, uint16(width))
	c.vbeWrite(VBEIndexVirtHeight, uint16(height))
	c.vbeWrite(VBEIndexXOffset, 0)
	c.vbeWrite(VBEIndexYOffset, 0)
	c.vbeWrite(VBEIndexEnable, VBEEnabled|VBELFBEnabled|VBENoClearMem)

	spin(c.ports, vbeSettleSpins)

	info := fb.Info{
		Base:              c.physBase,
		Width:             width,
		Height:            height,
		PixelsPerScanLine: width,
		Format:            format,
		Mask:              format.Masks(),
	}
	if cur, ok := fb.ActiveInfo(); ok {
		info.Base = cur.Base
		info.PixelsPerScanLine = cur.PixelsPerScanLine
		info.Format = cur.Format
		info.Mask = cur.Mask
	}
	if info.PixelsPerScanLine < width {
		info.PixelsPerScanLine = width
	}
	c.log.Infof("vbe mode %dx%dx%d -> %v", width, height, bpp, info)
	return info
}

func spin(p hal.PortIO, n int) {
	for i := 0; i < n; i++ {
		p.Pause()
	}
}
