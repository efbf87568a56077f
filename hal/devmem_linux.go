//go:build linux

package hal

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// DevMem maps physical memory through /dev/mem. It needs CAP_SYS_RAWIO and a
// kernel built without STRICT_DEVMEM (or iomem=relaxed) for device BARs.
type DevMem struct {
	mu   sync.Mutex
	f    *os.File
	maps [][]byte
}

func OpenDevMem() (*DevMem, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/mem: %w", err)
	}
	return &DevMem{f: f}, nil
}

func (d *DevMem) Map(phys uint64, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("map %#x: invalid size %d", phys, size)
	}
	page := uint64(unix.Getpagesize())
	delta := phys % page
	base := phys - delta

	b, err := unix.Mmap(int(d.f.Fd()), int64(base), int(delta)+size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %#x+%#x: %w", phys, size, err)
	}

	d.mu.Lock()
	d.maps = append(d.maps, b)
	d.mu.Unlock()

	return NewRegion(phys, b[delta:int(delta)+size:int(delta)+size]), nil
}

// Close unmaps every region handed out by Map.
func (d *DevMem) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.maps {
		_ = unix.Munmap(b)
	}
	d.maps = nil
	return d.f.Close()
}
