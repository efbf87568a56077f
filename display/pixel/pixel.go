// Package pixel converts between Color and packed pixel values for every
// framebuffer layout the display drivers understand.
//
// Packed values are little-endian in memory: a BGRA8888 pixel is stored as the
// bytes R, G, B, A at increasing addresses.
package pixel

import (
	"fmt"
	"image/color"
)

type Format uint8

const (
	Unknown Format = iota
	RGB888
	BGR888
	RGBA8888
	BGRA8888
	RGB565
	BGR565
)

func (f Format) String() string {
	switch f {
	case RGB888:
		return "RGB888"
	case BGR888:
		return "BGR888"
	case RGBA8888:
		return "RGBA8888"
	case BGRA8888:
		return "BGRA8888"
	case RGB565:
		return "RGB565"
	case BGR565:
		return "BGR565"
	case Unknown:
		return "Unknown"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// BytesPerPixel is 4 for Unknown so stride math never collapses to zero.
func (f Format) BytesPerPixel() int {
	switch f {
	case RGB888, BGR888:
		return 3
	case RGB565, BGR565:
		return 2
	}
	return 4
}

// Mask is the bit layout of one packed pixel.
type Mask struct {
	Red, Green, Blue, Reserved uint32
}

// Masks derives the channel masks from the format.
func (f Format) Masks() Mask {
	switch f {
	case RGB888:
		return Mask{Red: 0xFF0000, Green: 0x00FF00, Blue: 0x0000FF}
	case BGR888:
		return Mask{Red: 0x0000FF, Green: 0x00FF00, Blue: 0xFF0000}
	case RGBA8888:
		return Mask{Red: 0xFF0000, Green: 0x00FF00, Blue: 0x0000FF, Reserved: 0xFF000000}
	case BGRA8888:
		return Mask{Red: 0x0000FF, Green: 0x00FF00, Blue: 0xFF0000, Reserved: 0xFF000000}
	case RGB565:
		return Mask{Red: 0xF800, Green: 0x07E0, Blue: 0x001F}
	case BGR565:
		return Mask{Red: 0x001F, Green: 0x07E0, Blue: 0xF800}
	}
	return Mask{}
}

// Color is a format-independent RGBA color.
type Color struct {
	R, G, B, A uint8
}

var (
	Black = Color{A: 0xFF}
	White = Color{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	Red   = Color{R: 0xFF, A: 0xFF}
	Green = Color{G: 0xFF, A: 0xFF}
	Blue  = Color{B: 0xFF, A: 0xFF}
)

func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 0xFF} }

// RGBA implements color.Color with the same channel meaning as color.RGBA.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.ToRGBA().RGBA()
}

func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// FromColor converts any image/color value.
func FromColor(c color.Color) Color {
	n := color.RGBAModel.Convert(c).(color.RGBA)
	return Color{R: n.R, G: n.G, B: n.B, A: n.A}
}

// Encode packs c for format f. Unknown encodes to 0.
func Encode(c Color, f Format) uint32 {
	r, g, b, a := uint32(c.R), uint32(c.G), uint32(c.B), uint32(c.A)
	switch f {
	case RGBA8888:
		return a<<24 | r<<16 | g<<8 | b
	case BGRA8888:
		return a<<24 | b<<16 | g<<8 | r
	case RGB888:
		return r<<16 | g<<8 | b
	case BGR888:
		return b<<16 | g<<8 | r
	case RGB565:
		return (r>>3)<<11 | (g>>2)<<5 | b>>3
	case BGR565:
		return (b>>3)<<11 | (g>>2)<<5 | r>>3
	}
	return 0
}

// Decode unpacks v. Formats without alpha decode opaque; Unknown decodes
// to opaque black.
func Decode(v uint32, f Format) Color {
	switch f {
	case RGBA8888:
		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: uint8(v >> 24)}
	case BGRA8888:
		return Color{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: uint8(v >> 24)}
	case RGB888:
		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
	case BGR888:
		return Color{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: 0xFF}
	case RGB565:
		return Color{
			R: uint8((v>>11)&0x1F) << 3,
			G: uint8((v>>5)&0x3F) << 2,
			B: uint8(v&0x1F) << 3,
			A: 0xFF,
		}
	case BGR565:
		return Color{
			R: uint8(v&0x1F) << 3,
			G: uint8((v>>5)&0x3F) << 2,
			B: uint8((v>>11)&0x1F) << 3,
			A: 0xFF,
		}
	}
	return Black
}

// Truncate returns c as it survives a round trip through f.
func Truncate(c Color, f Format) Color {
	return Decode(Encode(c, f), f)
}

// Firmware pixel format codes (GOP EFI_GRAPHICS_PIXEL_FORMAT order).
const (
	HandoffRGB     = 0
	HandoffBGR     = 1
	HandoffBitmask = 2
	HandoffBltOnly = 3
)

// FormatFromHandoff maps a firmware pixel format code. Bitmask layouts are
// matched against the known masks and fall back to RGB565. Blt-only modes
// have no linear framebuffer and map to Unknown.
func FormatFromHandoff(code uint32, m Mask) Format {
	switch code {
	case HandoffRGB:
		return RGB888
	case HandoffBGR:
		return BGR888
	case HandoffBitmask:
		for _, f := range []Format{RGBA8888, BGRA8888, RGB888, BGR888, RGB565, BGR565} {
			fm := f.Masks()
			if fm.Red == m.Red && fm.Green == m.Green && fm.Blue == m.Blue && fm.Reserved == m.Reserved {
				return f
			}
		}
		return RGB565
	}
	return Unknown
}

// FormatForDepth picks the linear framebuffer layout a VBE/DISPI style mode
// of the given depth uses.
func FormatForDepth(bpp int) Format {
	switch bpp {
	case 32:
		return RGBA8888
	case 24:
		return RGB888
	case 16:
		return RGB565
	}
	return Unknown
}
