// Package accel runs 2D drawing operations on a vendor engine when one is
// available and on the framebuffer's software rasterizer otherwise.
package accel

import (
	"fmt"

	"kdisplay/display"
	"kdisplay/display/fb"
	"kdisplay/display/gpu"
	"kdisplay/display/pci"
	"kdisplay/internal/klog"
)

// Type names the backend executing operations.
type Type uint8

const (
	None Type = iota
	Intel
	Nvidia
	Amd
	Software
)

func (t Type) String() string {
	switch t {
	case Intel:
		return "intel"
	case Nvidia:
		return "nvidia"
	case Amd:
		return "amd"
	case Software:
		return "software"
	}
	return "none"
}

// Result reports how an operation was carried out.
type Result uint8

const (
	Success Result = iota
	HardwareAccelerated
	SoftwareFallback
	UnsupportedOperation
	DriverError
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case HardwareAccelerated:
		return "hardware"
	case SoftwareFallback:
		return "software"
	case UnsupportedOperation:
		return "unsupported"
	case DriverError:
		return "driver error"
	}
	return fmt.Sprintf("result(%d)", uint8(r))
}

// Accelerator dispatches operations for one framebuffer.
type Accelerator struct {
	fb  *fb.Driver
	log *klog.Logger

	engine  *Engine
	typ     Type
	enabled bool
}

func New(d *fb.Driver, log *klog.Logger) *Accelerator {
	return &Accelerator{fb: d, log: log}
}

func (a *Accelerator) Type() Type    { return a.typ }
func (a *Accelerator) Enabled() bool { return a.enabled }

func typeFor(g pci.GpuType) (Type, bool) {
	switch g {
	case pci.Intel:
		return Intel, true
	case pci.Nvidia:
		return Nvidia, true
	case pci.Amd:
		return Amd, true
	}
	return Software, false
}

// InitializeWithGPU brings up the vendor engine for dev. Devices without an
// engine select the software path and succeed with SoftwareFallback.
func (a *Accelerator) InitializeWithGPU(dev pci.Device, ctrl *gpu.Controller) (Result, error) {
	a.enabled = false
	a.engine = nil

	typ, hw := typeFor(dev.Type)
	if !hw {
		a.typ = Software
		a.log.Infof("%v: no 2D engine, using software", dev.Type)
		return SoftwareFallback, nil
	}

	e, err := a.startEngine(typ, ctrl)
	if err != nil {
		a.typ = Software
		a.log.Warnf("%v engine unavailable: %v", typ, err)
		return DriverError, err
	}
	a.engine = e
	a.typ = typ
	a.enabled = true
	a.log.Infof("%v 2D engine ready", typ)
	return HardwareAccelerated, nil
}

func (a *Accelerator) startEngine(typ Type, ctrl *gpu.Controller) (*Engine, error) {
	if ctrl == nil || !ctrl.Initialized() {
		return nil, fmt.Errorf("accel: controller not initialized: %w", display.ErrGpuNotFound)
	}
	if !ctrl.HasMMIO() {
		return nil, fmt.Errorf("accel: %v has no register window: %w", typ, display.ErrMappingFailure)
	}
	e, err := NewEngine(typ, ctrl, a.fb.Width(), a.fb.Height())
	if err != nil {
		return nil, err
	}
	if err := e.Reset(); err != nil {
		return nil, err
	}
	return e, nil
}

// Execute runs op on the engine when hardware acceleration is enabled and
// on the framebuffer otherwise. Line thickness only applies to the engine.
func (a *Accelerator) Execute(op Operation) (Result, error) {
	if op == nil {
		return UnsupportedOperation, fmt.Errorf("accel: nil operation: %w", display.ErrInvalidParameter)
	}
	if a.enabled && a.engine != nil && a.engine.Type() == a.typ {
		if err := a.engine.Render(op); err != nil {
			a.log.Errorf("%v render %T: %v", a.typ, op, err)
			return DriverError, err
		}
		return HardwareAccelerated, nil
	}
	if a.fb == nil {
		return UnsupportedOperation, fmt.Errorf("accel: no framebuffer: %w", display.ErrInvalidParameter)
	}
	if !software(a.fb, op) {
		return UnsupportedOperation, fmt.Errorf("accel: %T: %w", op, display.ErrInvalidParameter)
	}
	return SoftwareFallback, nil
}

// IsOperationSupported reports whether op would run on hardware.
func (a *Accelerator) IsOperationSupported(op Operation) bool {
	return a.enabled && op != nil
}
