package hal

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnmapped reports a physical range no memory window covers.
var ErrUnmapped = errors.New("physical range not backed")

// Legacy port numbers decoded by the simulated chipset.
const (
	PortPCIConfigAddress uint16 = 0x0CF8
	PortPCIConfigData    uint16 = 0x0CFC
	PortVBEIndex         uint16 = 0x01CE
	PortVBEData          uint16 = 0x01CF
)

// PortWrite is one recorded OUT instruction.
type PortWrite struct {
	Port  uint16
	Width int
	Value uint32
}

// MemWrite is one recorded store into a traced window.
type MemWrite struct {
	Addr  uint64
	Width int
	Value uint32
}

type memWindow struct {
	phys   uint64
	buf    []byte
	traced bool
}

// Machine is a simulated PC: a PCI configuration mechanism #1, a Bochs VBE
// DISPI register file and a set of physical memory windows. It implements
// PortIO and MemoryMapper so drivers can run unmodified on a host.
type Machine struct {
	mu sync.Mutex

	cfgAddr uint32
	devices []*SimPCIDevice

	vbeIndex uint16
	vbe      *[10]uint16

	windows []*memWindow

	portLog []PortWrite
	memLog  []MemWrite
	pauses  uint64
}

func NewMachine() *Machine {
	return &Machine{}
}

// AttachPCI plugs d into the bus.
func (m *Machine) AttachPCI(d *SimPCIDevice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, d)
}

// EnableVBE makes the Bochs DISPI interface respond with the given ID.
func (m *Machine) EnableVBE(id uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vbe = &[10]uint16{}
	m.vbe[0] = id
}

// AddRAM backs [phys, phys+size) with plain memory.
func (m *Machine) AddRAM(phys uint64, size int) {
	m.addWindow(phys, size, false)
}

// AddMMIO backs [phys, phys+size) with memory whose stores are recorded.
func (m *Machine) AddMMIO(phys uint64, size int) {
	m.addWindow(phys, size, true)
}

func (m *Machine) addWindow(phys uint64, size int, traced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, &memWindow{phys: phys, buf: make([]byte, size), traced: traced})
	sort.Slice(m.windows, func(i, j int) bool { return m.windows[i].phys < m.windows[j].phys })
}

// Map implements MemoryMapper.
func (m *Machine) Map(phys uint64, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("map %#x: invalid size %d", phys, size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.windows {
		if phys < w.phys || phys-w.phys+uint64(size) > uint64(len(w.buf)) {
			continue
		}
		off := int(phys - w.phys)
		buf := w.buf[off : off+size : off+size]
		if w.traced {
			return NewTracedRegion(phys, buf, m.recordMem), nil
		}
		return NewRegion(phys, buf), nil
	}
	return nil, fmt.Errorf("map %#x+%#x: %w", phys, size, ErrUnmapped)
}

func (m *Machine) recordMem(addr uint64, size int, v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memLog = append(m.memLog, MemWrite{Addr: addr, Width: size, Value: v})
}

func (m *Machine) Pause() {
	m.mu.Lock()
	m.pauses++
	m.mu.Unlock()
}

func (m *Machine) In8(port uint16) uint8 {
	return uint8(m.in(port, 1))
}

func (m *Machine) Out8(port uint16, v uint8) {
	m.out(port, 1, uint32(v))
}

func (m *Machine) In16(port uint16) uint16 {
	return uint16(m.in(port, 2))
}

func (m *Machine) Out16(port uint16, v uint16) {
	m.out(port, 2, uint32(v))
}

func (m *Machine) In32(port uint16) uint32 {
	return m.in(port, 4)
}

func (m *Machine) Out32(port uint16, v uint32) {
	m.out(port, 4, v)
}

func (m *Machine) in(port uint16, width int) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case port == PortPCIConfigAddress && width == 4:
		return m.cfgAddr
	case port >= PortPCIConfigData && port < PortPCIConfigData+4:
		v := m.configRead()
		return v >> (8 * uint(port-PortPCIConfigData))
	case port == PortVBEIndex && m.vbe != nil:
		return uint32(m.vbeIndex)
	case port == PortVBEData && m.vbe != nil:
		if int(m.vbeIndex) < len(m.vbe) {
			return uint32(m.vbe[m.vbeIndex])
		}
		return 0
	}
	// Floating bus.
	return 0xFFFFFFFF >> (32 - 8*uint(width))
}

func (m *Machine) out(port uint16, width int, v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portLog = append(m.portLog, PortWrite{Port: port, Width: width, Value: v})

	switch {
	case port == PortPCIConfigAddress && width == 4:
		m.cfgAddr = v
	case port == PortPCIConfigData && width == 4:
		m.configWrite(v)
	case port == PortVBEIndex && m.vbe != nil:
		m.vbeIndex = uint16(v)
	case port == PortVBEData && m.vbe != nil:
		if int(m.vbeIndex) < len(m.vbe) {
			m.vbe[m.vbeIndex] = uint16(v)
		}
	}
}

func (m *Machine) selected() (*SimPCIDevice, uint8) {
	if m.cfgAddr&0x80000000 == 0 {
		return nil, 0
	}
	bus := uint8(m.cfgAddr >> 16)
	dev := uint8(m.cfgAddr>>11) & 0x1F
	fn := uint8(m.cfgAddr>>8) & 0x7
	off := uint8(m.cfgAddr) & 0xFC
	for _, d := range m.devices {
		if d.Bus == bus && d.Device == dev && d.Function == fn {
			return d, off
		}
	}
	return nil, off
}

func (m *Machine) configRead() uint32 {
	d, off := m.selected()
	if d == nil {
		return 0xFFFFFFFF
	}
	return d.readConfig(off)
}

func (m *Machine) configWrite(v uint32) {
	if d, off := m.selected(); d != nil {
		d.writeConfig(off, v)
	}
}

// PortWrites returns a copy of every OUT issued since the last ResetTrace.
func (m *Machine) PortWrites() []PortWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PortWrite(nil), m.portLog...)
}

// MemWrites returns a copy of every store into traced windows since the last ResetTrace.
func (m *Machine) MemWrites() []MemWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MemWrite(nil), m.memLog...)
}

func (m *Machine) Pauses() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses
}

func (m *Machine) ResetTrace() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portLog = nil
	m.memLog = nil
	m.pauses = 0
}

// VBE returns the DISPI register file (zero value when VBE is disabled).
func (m *Machine) VBE() [10]uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vbe == nil {
		return [10]uint16{}
	}
	return *m.vbe
}
