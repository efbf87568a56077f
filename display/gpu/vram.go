package gpu

import (
	"errors"
	"fmt"
	"math/bits"
)

// VRAMPageSize is the allocation granule of the framebuffer aperture.
const VRAMPageSize = 64 << 10

var ErrVRAMExhausted = errors.New("vram: no contiguous range large enough")

// VRAM hands out page-aligned ranges of a device's framebuffer aperture.
// One bit per page; a set bit marks the page as reserved.
type VRAM struct {
	base   uint64
	pages  int
	free   int
	bitmap []uint64
}

func NewVRAM(base, size uint64) (*VRAM, error) {
	if base%VRAMPageSize != 0 {
		return nil, fmt.Errorf("vram: base %#x not page aligned", base)
	}
	pages := int(size / VRAMPageSize)
	if pages == 0 {
		return nil, fmt.Errorf("vram: aperture of %#x bytes holds no page", size)
	}
	return &VRAM{
		base:   base,
		pages:  pages,
		free:   pages,
		bitmap: make([]uint64, (pages+63)/64),
	}, nil
}

func (v *VRAM) Base() uint64    { return v.base }
func (v *VRAM) Size() uint64    { return uint64(v.pages) * VRAMPageSize }
func (v *VRAM) FreePages() int  { return v.free }
func (v *VRAM) TotalPages() int { return v.pages }

func (v *VRAM) used(page int) bool {
	return v.bitmap[page/64]&(1<<(uint(page)%64)) != 0
}

func (v *VRAM) mark(page int, used bool) {
	mask := uint64(1) << (uint(page) % 64)
	if used {
		v.bitmap[page/64] |= mask
	} else {
		v.bitmap[page/64] &^= mask
	}
}

// Alloc reserves the lowest run of pages that fits size bytes.
func (v *VRAM) Alloc(size int) (uint64, error) {
	if size <= 0 {
		return 0, fmt.Errorf("vram: invalid size %d", size)
	}
	need := (size + VRAMPageSize - 1) / VRAMPageSize
	if need > v.free {
		return 0, fmt.Errorf("%w: need %d pages, %d free", ErrVRAMExhausted, need, v.free)
	}

	run := 0
	for page := 0; page < v.pages; page++ {
		// Skip fully reserved words.
		if run == 0 && page%64 == 0 && v.bitmap[page/64] == ^uint64(0) {
			page += 63
			continue
		}
		if v.used(page) {
			run = 0
			continue
		}
		run++
		if run == need {
			first := page - need + 1
			for p := first; p <= page; p++ {
				v.mark(p, true)
			}
			v.free -= need
			return v.base + uint64(first)*VRAMPageSize, nil
		}
	}
	return 0, fmt.Errorf("%w: need %d pages, largest run is shorter", ErrVRAMExhausted, need)
}

// span converts a range handed out by Alloc back into pages.
func (v *VRAM) span(addr uint64, size int) (first, n int, err error) {
	if addr < v.base || (addr-v.base)%VRAMPageSize != 0 || size <= 0 {
		return 0, 0, fmt.Errorf("vram: bad range %#x+%#x", addr, size)
	}
	first = int((addr - v.base) / VRAMPageSize)
	n = (size + VRAMPageSize - 1) / VRAMPageSize
	if first+n > v.pages {
		return 0, 0, fmt.Errorf("vram: range %#x+%#x beyond aperture", addr, size)
	}
	return first, n, nil
}

// Free releases a range returned by Alloc.
func (v *VRAM) Free(addr uint64, size int) error {
	first, n, err := v.span(addr, size)
	if err != nil {
		return err
	}
	for p := first; p < first+n; p++ {
		if !v.used(p) {
			return fmt.Errorf("vram: double free of page %d", p)
		}
	}
	for p := first; p < first+n; p++ {
		v.mark(p, false)
	}
	v.free += n
	return nil
}

// Reserve marks a specific free range as used, as Alloc would have.
func (v *VRAM) Reserve(addr uint64, size int) error {
	first, n, err := v.span(addr, size)
	if err != nil {
		return err
	}
	for p := first; p < first+n; p++ {
		if v.used(p) {
			return fmt.Errorf("vram: page %d already reserved", p)
		}
	}
	for p := first; p < first+n; p++ {
		v.mark(p, true)
	}
	v.free -= n
	return nil
}

// UsedPages counts reserved pages straight from the bitmap.
func (v *VRAM) UsedPages() int {
	n := 0
	for _, w := range v.bitmap {
		n += bits.OnesCount64(w)
	}
	return n
}
