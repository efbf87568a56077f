// Package fb is the linear framebuffer driver: one mapped pixel region with
// bounds-checked pixel I/O and software rasterization on top of it.
//
// Pixel operations never fail. Out-of-bounds writes are dropped and reads
// return black, whether or not the driver has been initialized.
package fb

import (
	"fmt"

	"kdisplay/display"
	"kdisplay/display/pixel"
	"kdisplay/hal"
	"kdisplay/internal/klog"
)

const (
	// MinBase is the lowest physical address accepted for a framebuffer.
	MinBase = 0x1000
	// MaxDimension bounds width and height against garbage handoffs.
	MaxDimension = 16384
)

// Info describes one linear framebuffer.
type Info struct {
	Base              uint64
	Width             uint32
	Height            uint32
	PixelsPerScanLine uint32
	Format            pixel.Format
	Mask              pixel.Mask
}

// StrideBytes is max(ppsl, width) * bytes per pixel.
func (i Info) StrideBytes() int {
	ppsl := i.PixelsPerScanLine
	if ppsl < i.Width {
		ppsl = i.Width
	}
	return int(ppsl) * i.Format.BytesPerPixel()
}

// Size is the number of bytes the mapping must cover.
func (i Info) Size() int {
	return int(i.Height) * i.StrideBytes()
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d ppsl=%d %v @%#x", i.Width, i.Height, i.PixelsPerScanLine, i.Format, i.Base)
}

// Driver owns one mapped framebuffer.
type Driver struct {
	mem hal.MemoryMapper
	log *klog.Logger

	info   Info
	bpp    int
	stride int
	width  int
	height int
	region *hal.Region
}

// New returns an uninitialized driver that maps memory through mem.
func New(mem hal.MemoryMapper, log *klog.Logger) *Driver {
	return &Driver{mem: mem, log: log}
}

// Init validates the geometry, maps the framebuffer and probes it.
// mask is advisory; the channel masks always follow format. The screen is
// left untouched.
func (d *Driver) Init(base uint64, width, height, ppsl uint32, format pixel.Format, mask pixel.Mask) error {
	if base < MinBase {
		return fmt.Errorf("fb: base %#x: %w", base, display.ErrInvalidParameter)
	}
	if width == 0 || height == 0 || width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("fb: geometry %dx%d: %w", width, height, display.ErrInvalidParameter)
	}
	if format == pixel.Unknown || format > pixel.BGR565 {
		return fmt.Errorf("fb: format %v: %w", format, display.ErrUnsupportedPixelFormat)
	}
	if d.mem == nil {
		return fmt.Errorf("fb: no memory mapper: %w", display.ErrMappingFailure)
	}

	info := Info{
		Base:              base,
		Width:             width,
		Height:            height,
		PixelsPerScanLine: ppsl,
		Format:            format,
		Mask:              format.Masks(),
	}
	if mask != (pixel.Mask{}) && mask != info.Mask {
		d.log.Debugf("firmware mask %+v ignored, using %v layout", mask, format)
	}

	region, err := d.mem.Map(base, info.Size())
	if err != nil {
		return fmt.Errorf("fb: map %#x+%#x: %w: %v", base, info.Size(), display.ErrMappingFailure, err)
	}

	// Read-then-restore one byte to prove the mapping is live.
	v, err := region.Read8(0)
	if err == nil {
		err = region.Write8(0, v)
	}
	if err != nil {
		return fmt.Errorf("fb: probe %#x: %w: %v", base, display.ErrMappingFailure, err)
	}

	d.info = info
	d.bpp = format.BytesPerPixel()
	d.stride = info.StrideBytes()
	d.width = int(width)
	d.height = int(height)
	d.region = region
	d.log.Infof("framebuffer %v stride=%d", info, d.stride)
	return nil
}

func (d *Driver) Initialized() bool { return d != nil && d.region != nil }

// Info returns the bound framebuffer description (zero when uninitialized).
func (d *Driver) Info() Info {
	if d == nil {
		return Info{}
	}
	return d.info
}

func (d *Driver) Width() int {
	if !d.Initialized() {
		return 0
	}
	return d.width
}

func (d *Driver) Height() int {
	if !d.Initialized() {
		return 0
	}
	return d.height
}

func (d *Driver) StrideBytes() int {
	if !d.Initialized() {
		return 0
	}
	return d.stride
}

func (d *Driver) inBounds(x, y int) bool {
	return d.Initialized() && x >= 0 && y >= 0 && x < d.width && y < d.height
}

func (d *Driver) offset(x, y int) int {
	return y*d.stride + x*d.bpp
}

func (d *Driver) PutPixel(x, y int, c pixel.Color) {
	if !d.inBounds(x, y) {
		return
	}
	_ = d.region.WriteN(d.offset(x, y), d.bpp, pixel.Encode(c, d.info.Format))
}

func (d *Driver) GetPixel(x, y int) pixel.Color {
	if !d.inBounds(x, y) {
		return pixel.Black
	}
	v, err := d.region.ReadN(d.offset(x, y), d.bpp)
	if err != nil {
		return pixel.Black
	}
	return pixel.Decode(v, d.info.Format)
}

// putRaw writes an already-encoded pixel.
func (d *Driver) putRaw(x, y int, v uint32) {
	if !d.inBounds(x, y) {
		return
	}
	_ = d.region.WriteN(d.offset(x, y), d.bpp, v)
}
