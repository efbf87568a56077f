package boot

import (
	"fmt"

	"kdisplay/display"
	"kdisplay/display/fb"
	"kdisplay/display/pixel"
	"kdisplay/hal"
)

// Handoff is the framebuffer the platform firmware left active.
type Handoff hal.FramebufferHandoff

func (h Handoff) mask() pixel.Mask {
	return pixel.Mask{Red: h.RedMask, Green: h.GreenMask, Blue: h.BlueMask, Reserved: h.ReservedMask}
}

func (h Handoff) Format() pixel.Format {
	return pixel.FormatFromHandoff(h.FormatCode, h.mask())
}

func (h Handoff) Info() fb.Info {
	f := h.Format()
	return fb.Info{
		Base:              h.Base,
		Width:             h.Width,
		Height:            h.Height,
		PixelsPerScanLine: h.PixelsPerScanLine,
		Format:            f,
		Mask:              f.Masks(),
	}
}

// Validate rejects handoffs no linear framebuffer can be built from.
func (h Handoff) Validate() error {
	if h.Base < fb.MinBase {
		return fmt.Errorf("handoff: base %#x: %w", h.Base, display.ErrInvalidParameter)
	}
	if h.Width == 0 || h.Height == 0 || h.Width > fb.MaxDimension || h.Height > fb.MaxDimension {
		return fmt.Errorf("handoff: geometry %dx%d: %w", h.Width, h.Height, display.ErrInvalidParameter)
	}
	if h.Format() == pixel.Unknown {
		return fmt.Errorf("handoff: format code %d: %w", h.FormatCode, display.ErrUnsupportedPixelFormat)
	}
	return nil
}
