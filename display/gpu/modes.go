package gpu

import (
	"errors"
	"fmt"
	"strings"

	"kdisplay/display"
	"kdisplay/display/fb"
)

var (
	ErrModeNotFound          = errors.New("gpu: mode not available")
	ErrUnsupportedResolution = errors.New("gpu: unsupported resolution")
)

// Limits of a mode every supported controller can scan out.
const (
	MaxSafeWidth   = 1920
	MaxSafeHeight  = 1080
	MaxSafeRefresh = 75
)

// Mode is one display mode of the standard table.
type Mode struct {
	Width, Height, BPP uint32
	Refresh            uint32
	// Name is the short resolution name ("xga", "fhd"); empty if it has none.
	Name string
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d @%dbpp (%dHz)", m.Width, m.Height, m.BPP, m.Refresh)
}

// Bytes is the scanout size of m without row padding.
func (m Mode) Bytes() uint64 {
	return uint64(m.Width) * uint64(m.Height) * uint64(m.BPP/8)
}

// Safe reports whether m stays within the limits every controller handles.
func (m Mode) Safe() bool {
	switch m.BPP {
	case 16, 24, 32:
	default:
		return false
	}
	return m.Refresh <= MaxSafeRefresh && m.Width <= MaxSafeWidth && m.Height <= MaxSafeHeight
}

type resolution struct {
	w, h uint32
	name string
}

var resolutions = []resolution{
	{640, 480, "vga"},
	{800, 600, "svga"},
	{1024, 768, "xga"},
	{1280, 720, "hd"},
	{1280, 1024, "sxga"},
	{1366, 768, "wxga"},
	{1440, 900, "wxga+"},
	{1600, 900, "hd+"},
	{1680, 1050, "wsxga+"},
	{1920, 1080, "fhd"},
	{2560, 1440, "qhd"},
	{3840, 2160, "4k"},
}

var nameAliases = map[string]string{
	"1080p": "fhd",
	"1440p": "qhd",
	"2160p": "4k",
}

var modeDepths = []uint32{32, 24, 16}

// StandardModes lists every resolution of the table at every depth, deepest
// first, all at 60Hz.
func StandardModes() []Mode {
	modes := make([]Mode, 0, len(resolutions)*len(modeDepths))
	for _, r := range resolutions {
		for _, bpp := range modeDepths {
			modes = append(modes, Mode{Width: r.w, Height: r.h, BPP: bpp, Refresh: 60, Name: r.name})
		}
	}
	return modes
}

func standardResolution(w, h uint32) bool {
	for _, r := range resolutions {
		if r.w == w && r.h == h {
			return true
		}
	}
	return false
}

// Preference lists, tried in order at 32bpp.
var (
	safestOrder      = [][2]uint32{{1024, 768}, {800, 600}, {1280, 720}, {1280, 1024}, {1366, 768}, {640, 480}}
	recommendedOrder = [][2]uint32{{1024, 768}, {1280, 720}, {1280, 1024}, {1366, 768}, {800, 600}}
)

// ModeManager picks modes from the standard table and programs them through
// a Controller. Only safe modes whose scanout fits the aperture are
// available.
type ModeManager struct {
	ctrl  *Controller
	modes []Mode

	cur    Mode
	hasCur bool
}

func NewModeManager(c *Controller) *ModeManager {
	m := &ModeManager{ctrl: c}
	limit := c.apertureSize()
	for _, mode := range StandardModes() {
		if !mode.Safe() {
			continue
		}
		if limit != 0 && scanoutBytes(c, mode) > limit {
			continue
		}
		m.modes = append(m.modes, mode)
	}
	return m
}

// apertureSize is the space a scanout can occupy; 0 means unknown.
func (c *Controller) apertureSize() uint64 {
	if c.vram != nil {
		return c.vram.Size()
	}
	return c.dev.MemorySize
}

// scanoutBytes rounds to the allocation granule when c hands out VRAM pages.
func scanoutBytes(c *Controller, m Mode) uint64 {
	n := m.Bytes()
	if c.vram != nil {
		n = (n + VRAMPageSize - 1) / VRAMPageSize * VRAMPageSize
	}
	return n
}

// Modes returns the available modes.
func (m *ModeManager) Modes() []Mode {
	return append([]Mode(nil), m.modes...)
}

// Find looks up an available mode.
func (m *ModeManager) Find(width, height, bpp uint32) (Mode, bool) {
	for _, mode := range m.modes {
		if mode.Width == width && mode.Height == height && mode.BPP == bpp {
			return mode, true
		}
	}
	return Mode{}, false
}

// Current is the last mode set through m.
func (m *ModeManager) Current() (Mode, bool) {
	return m.cur, m.hasCur
}

// SetMode programs an available mode. Resolutions outside the table are
// rejected with ErrUnsupportedResolution, table entries that are unsafe or
// too large for the aperture with ErrModeNotFound.
func (m *ModeManager) SetMode(width, height, bpp uint32) (fb.Info, error) {
	if width == 0 || height == 0 || bpp == 0 {
		return fb.Info{}, fmt.Errorf("gpu: mode %dx%dx%d: %w", width, height, bpp, display.ErrInvalidParameter)
	}
	if !standardResolution(width, height) {
		return fb.Info{}, fmt.Errorf("%w: %dx%d", ErrUnsupportedResolution, width, height)
	}
	mode, ok := m.Find(width, height, bpp)
	if !ok {
		return fb.Info{}, fmt.Errorf("%w: %dx%dx%d", ErrModeNotFound, width, height, bpp)
	}
	return m.apply(mode)
}

func (m *ModeManager) apply(mode Mode) (fb.Info, error) {
	info, err := m.ctrl.ChangeResolution(mode.Width, mode.Height, mode.BPP)
	if err != nil {
		return fb.Info{}, err
	}
	m.cur, m.hasCur = mode, true
	return info, nil
}

// SetHighest programs the available mode with the most pixels, preferring
// the deepest color at equal size.
func (m *ModeManager) SetHighest() (fb.Info, error) {
	if len(m.modes) == 0 {
		return fb.Info{}, ErrModeNotFound
	}
	best := m.modes[0]
	for _, mode := range m.modes[1:] {
		a, b := uint64(mode.Width)*uint64(mode.Height), uint64(best.Width)*uint64(best.Height)
		if a > b || a == b && mode.BPP > best.BPP {
			best = mode
		}
	}
	return m.apply(best)
}

// SetSafest programs the first available 32bpp mode of a fixed preference
// list, or the first available mode if none of them is.
func (m *ModeManager) SetSafest() (fb.Info, error) {
	if mode, ok := m.first(safestOrder); ok {
		return m.apply(mode)
	}
	if len(m.modes) == 0 {
		return fb.Info{}, ErrModeNotFound
	}
	return m.apply(m.modes[0])
}

// Recommended is the mode a caller without a preference should use.
func (m *ModeManager) Recommended() (Mode, bool) {
	return m.first(recommendedOrder)
}

func (m *ModeManager) first(order [][2]uint32) (Mode, bool) {
	for _, wh := range order {
		if mode, ok := m.Find(wh[0], wh[1], 32); ok {
			return mode, true
		}
	}
	return Mode{}, false
}

// SetByName programs a named resolution ("xga", "1080p", ...) at 32bpp.
// Names are case-insensitive.
func (m *ModeManager) SetByName(name string) (fb.Info, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := nameAliases[key]; ok {
		key = alias
	}
	for _, r := range resolutions {
		if r.name == key {
			return m.SetMode(r.w, r.h, 32)
		}
	}
	return fb.Info{}, fmt.Errorf("%w: unknown name %q", ErrUnsupportedResolution, name)
}

// Select dispatches a mode request: "highest", "safest", "recommended" or a
// resolution name.
func (m *ModeManager) Select(req string) (fb.Info, error) {
	switch strings.ToLower(strings.TrimSpace(req)) {
	case "highest":
		return m.SetHighest()
	case "safest":
		return m.SetSafest()
	case "recommended":
		mode, ok := m.Recommended()
		if !ok {
			return fb.Info{}, ErrModeNotFound
		}
		return m.apply(mode)
	}
	return m.SetByName(req)
}
