package hal

import (
	"errors"
	"os"
)

// NewHardware returns a HAL over the real machine (/dev/mem, raw port I/O).
// There is no firmware handoff on this path; boot falls back to PCI probing.
// The returned close func unmaps every region.
func NewHardware() (HAL, func() error, error) {
	mem, err := OpenDevMem()
	if err != nil {
		return nil, nil, err
	}
	ports, err := OpenDevPort()
	if err != nil {
		return nil, nil, errors.Join(err, mem.Close())
	}
	return &hostHAL{
		logger: &hostLogger{w: os.Stdout},
		ports:  ports,
		mem:    mem,
		disp:   newHostDisplay(),
		fw:     noFirmware{},
	}, mem.Close, nil
}
