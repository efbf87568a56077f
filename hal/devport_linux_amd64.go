//go:build linux && amd64

package hal

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func portIn8(port uint16) uint8
func portIn16(port uint16) uint16
func portIn32(port uint16) uint32
func portOut8(port uint16, v uint8)
func portOut16(port uint16, v uint16)
func portOut32(port uint16, v uint32)
func cpuPause()

// DevPort issues IN/OUT directly after raising the I/O privilege level.
type DevPort struct{}

// OpenDevPort raises IOPL to 3 for the calling thread. Callers must keep
// port access on a goroutine locked to that thread (runtime.LockOSThread).
func OpenDevPort() (*DevPort, error) {
	if err := unix.Iopl(3); err != nil {
		return nil, fmt.Errorf("iopl: %w", err)
	}
	return &DevPort{}, nil
}

func (DevPort) In8(port uint16) uint8       { return portIn8(port) }
func (DevPort) Out8(port uint16, v uint8)   { portOut8(port, v) }
func (DevPort) In16(port uint16) uint16     { return portIn16(port) }
func (DevPort) Out16(port uint16, v uint16) { portOut16(port, v) }
func (DevPort) In32(port uint16) uint32     { return portIn32(port) }
func (DevPort) Out32(port uint16, v uint32) { portOut32(port, v) }
func (DevPort) Pause()                      { cpuPause() }
