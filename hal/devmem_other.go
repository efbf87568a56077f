//go:build !linux

package hal

type DevMem struct{}

func OpenDevMem() (*DevMem, error) { return nil, ErrNotImplemented }

func (d *DevMem) Map(phys uint64, size int) (*Region, error) { return nil, ErrNotImplemented }

func (d *DevMem) Close() error { return nil }
