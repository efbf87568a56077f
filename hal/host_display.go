package hal

import (
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// hostDisplay keeps the last presented frame for the window and snapshots.
type hostDisplay struct {
	mu    sync.Mutex
	frame *image.RGBA
	count uint64
}

func newHostDisplay() *hostDisplay {
	return &hostDisplay{}
}

func (d *hostDisplay) Present(src image.Image) error {
	if src == nil {
		return nil
	}
	b := src.Bounds()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frame == nil || d.frame.Bounds().Size() != b.Size() {
		d.frame = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	draw.Copy(d.frame, image.Point{}, src, b, draw.Src, nil)
	d.count++
	return nil
}

// snapshot copies the last frame into dst, reallocating when the size changed.
func (d *hostDisplay) snapshot(dst *image.RGBA) (*image.RGBA, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frame == nil {
		return dst, false
	}
	if dst == nil || dst.Bounds() != d.frame.Bounds() {
		dst = image.NewRGBA(d.frame.Bounds())
	}
	copy(dst.Pix, d.frame.Pix)
	return dst, true
}

// LastFrame returns a copy of the most recently presented frame.
func LastFrame(h HAL) (image.Image, bool) {
	hh, ok := h.(*hostHAL)
	if !ok || hh.disp == nil {
		return nil, false
	}
	img, ok := hh.disp.snapshot(nil)
	if !ok {
		return nil, false
	}
	return img, true
}
