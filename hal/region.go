package hal

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// ErrOutOfBounds reports an access outside a mapped Region.
var ErrOutOfBounds = errors.New("region access out of bounds")

// WriteTrace observes stores into a Region. phys is the physical address of
// the first byte written.
type WriteTrace func(phys uint64, size int, v uint32)

// Region is an owned window of mapped memory (pixel memory or MMIO).
//
// All accessors are bounds-checked; the backing address is never exposed.
// Multi-byte values are little-endian. Aligned 32-bit accesses are single
// atomic loads/stores so they are neither split nor elided. Region assumes a
// little-endian host, like the machines it maps.
type Region struct {
	phys  uint64
	buf   []byte
	trace WriteTrace
}

// NewRegion wraps buf, which is mapped at physical address phys.
func NewRegion(phys uint64, buf []byte) *Region {
	return &Region{phys: phys, buf: buf}
}

// NewTracedRegion is NewRegion with a write observer.
func NewTracedRegion(phys uint64, buf []byte, trace WriteTrace) *Region {
	return &Region{phys: phys, buf: buf, trace: trace}
}

func (r *Region) Len() int {
	if r == nil {
		return 0
	}
	return len(r.buf)
}

func (r *Region) Phys() uint64 {
	if r == nil {
		return 0
	}
	return r.phys
}

func (r *Region) check(off, size int) error {
	if r == nil || off < 0 || size <= 0 || off+size > len(r.buf) || off+size < off {
		return fmt.Errorf("%w: off=%#x size=%d len=%#x", ErrOutOfBounds, off, size, r.Len())
	}
	return nil
}

func (r *Region) Read8(off int) (uint8, error) {
	if err := r.check(off, 1); err != nil {
		return 0, err
	}
	return r.buf[off], nil
}

func (r *Region) Write8(off int, v uint8) error {
	if err := r.check(off, 1); err != nil {
		return err
	}
	r.buf[off] = v
	r.traceWrite(off, 1, uint32(v))
	return nil
}

func (r *Region) Read16(off int) (uint16, error) {
	v, err := r.ReadN(off, 2)
	return uint16(v), err
}

func (r *Region) Write16(off int, v uint16) error {
	return r.WriteN(off, 2, uint32(v))
}

func (r *Region) Read32(off int) (uint32, error) {
	return r.ReadN(off, 4)
}

func (r *Region) Write32(off int, v uint32) error {
	return r.WriteN(off, 4, v)
}

// ReadN reads an n-byte (1..4) little-endian value.
func (r *Region) ReadN(off, n int) (uint32, error) {
	if n < 1 || n > 4 {
		return 0, fmt.Errorf("%w: width %d", ErrOutOfBounds, n)
	}
	if err := r.check(off, n); err != nil {
		return 0, err
	}
	if n == 4 && off%4 == 0 {
		return atomic.LoadUint32((*uint32)(unsafe.Pointer(&r.buf[off]))), nil
	}
	var v uint32
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint32(r.buf[off+i])
	}
	return v, nil
}

// WriteN writes the low n bytes (1..4) of v little-endian.
func (r *Region) WriteN(off, n int, v uint32) error {
	if n < 1 || n > 4 {
		return fmt.Errorf("%w: width %d", ErrOutOfBounds, n)
	}
	if err := r.check(off, n); err != nil {
		return err
	}
	if n == 4 && off%4 == 0 {
		atomic.StoreUint32((*uint32)(unsafe.Pointer(&r.buf[off])), v)
	} else {
		for i := 0; i < n; i++ {
			r.buf[off+i] = byte(v >> (8 * i))
		}
	}
	r.traceWrite(off, n, v)
	return nil
}

// Fill stores the n-byte pattern v count times starting at off.
func (r *Region) Fill(off, n, count int, v uint32) error {
	if count <= 0 {
		return nil
	}
	if err := r.check(off, n*count); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if err := r.WriteN(off+i*n, n, v); err != nil {
			return err
		}
	}
	return nil
}

// Move copies n bytes from src to dst within r. Overlapping ranges are
// handled like memmove. Traced regions see one byte write per byte moved.
func (r *Region) Move(dst, src, n int) error {
	if n <= 0 {
		return nil
	}
	if err := r.check(src, n); err != nil {
		return err
	}
	if err := r.check(dst, n); err != nil {
		return err
	}
	if r.trace == nil {
		copy(r.buf[dst:dst+n], r.buf[src:src+n])
		return nil
	}
	start, end, step := 0, n, 1
	if dst > src {
		start, end, step = n-1, -1, -1
	}
	for i := start; i != end; i += step {
		r.buf[dst+i] = r.buf[src+i]
		r.traceWrite(dst+i, 1, uint32(r.buf[dst+i]))
	}
	return nil
}

func (r *Region) traceWrite(off, size int, v uint32) {
	if r.trace != nil {
		r.trace(r.phys+uint64(off), size, v)
	}
}
