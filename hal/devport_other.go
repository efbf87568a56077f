//go:build !(linux && amd64)

package hal

type DevPort struct{}

func OpenDevPort() (*DevPort, error) { return nil, ErrNotImplemented }

func (DevPort) In8(port uint16) uint8       { return 0xFF }
func (DevPort) Out8(port uint16, v uint8)   {}
func (DevPort) In16(port uint16) uint16     { return 0xFFFF }
func (DevPort) Out16(port uint16, v uint16) {}
func (DevPort) In32(port uint16) uint32     { return 0xFFFFFFFF }
func (DevPort) Out32(port uint16, v uint32) {}
func (DevPort) Pause()                      {}
