// Package boot brings the display stack up on a HAL: firmware framebuffer,
// PCI discovery, controller bring-up, direct framebuffer, optional mode set
// and 2D acceleration. Every stage past the firmware framebuffer is
// optional; failures are logged and the previous stage's result is kept.
package boot

import (
	"errors"
	"fmt"

	"kdisplay/display"
	"kdisplay/display/accel"
	"kdisplay/display/direct"
	"kdisplay/display/fb"
	"kdisplay/display/gpu"
	"kdisplay/display/pci"
	"kdisplay/hal"
	"kdisplay/internal/buildinfo"
	"kdisplay/internal/klog"
)

// Config selects what Start does beyond keeping the firmware mode.
type Config struct {
	// Mode requested after bring-up. It must be a standard mode the
	// controller can scan out. Zero width keeps the firmware mode.
	Width, Height, BPP uint32
	// ModeName is used when Width is zero: "highest", "safest",
	// "recommended" or a resolution name such as "xga" or "1080p".
	ModeName string

	DisableAccel bool
	// LogLevel is the minimum level logged; the zero value logs everything.
	LogLevel klog.Level
}

// System is the display stack after Start.
type System struct {
	Framebuffer *fb.Driver
	Accel       *accel.Accelerator

	// Device and GPU are set when a display controller was found; GPU is
	// nil if its bring-up failed.
	Device   *pci.Device
	GPU      *gpu.Controller
	Modes    *gpu.ModeManager
	Direct   *direct.Driver
	Firmware bool
}

// Start runs the bring-up sequence. It fails only when no framebuffer at all
// could be bound.
func Start(h hal.HAL, cfg Config) (*System, error) {
	log := klog.New(h.Logger(), "boot")
	log.SetLevel(cfg.LogLevel)
	log.Infof("kdisplay %s", buildinfo.Short())

	s := &System{}
	var errs []error

	if err := s.firmwareFramebuffer(h, log.With("fb")); err != nil {
		log.Warnf("firmware framebuffer: %v", err)
		errs = append(errs, err)
	}

	dev, err := pci.NewConfigSpace(h.Ports()).FindDisplay()
	if err != nil {
		log.Warnf("pci: %v", err)
	} else {
		s.Device = &dev
		log.Infof("display controller %v", dev)
		s.bringUp(h, dev, log)
	}

	switch {
	case cfg.Width != 0:
		err := s.setMode(h, log, func(m *gpu.ModeManager) (fb.Info, error) {
			return m.SetMode(cfg.Width, cfg.Height, cfg.BPP)
		})
		if err != nil {
			log.Errorf("mode %dx%dx%d: %v", cfg.Width, cfg.Height, cfg.BPP, err)
		}
	case cfg.ModeName != "":
		err := s.setMode(h, log, func(m *gpu.ModeManager) (fb.Info, error) {
			return m.Select(cfg.ModeName)
		})
		if err != nil {
			log.Errorf("mode %q: %v", cfg.ModeName, err)
		}
	}

	s.Framebuffer = fb.Active()
	if !s.Framebuffer.Initialized() {
		errs = append(errs, fmt.Errorf("boot: no usable framebuffer: %w", display.ErrGpuNotFound))
		return nil, errors.Join(errs...)
	}

	s.Accel = accel.New(s.Framebuffer, log.With("accel"))
	switch {
	case cfg.DisableAccel:
		log.Infof("acceleration disabled")
	case s.Device != nil:
		if res, err := s.Accel.InitializeWithGPU(*s.Device, s.GPU); err != nil {
			log.Warnf("acceleration: %v (%v)", res, err)
		}
	}

	log.Infof("framebuffer %v, accel %v", s.Framebuffer.Info(), s.Accel.Type())
	return s, nil
}

func (s *System) firmwareFramebuffer(h hal.HAL, log *klog.Logger) error {
	fw := h.Firmware()
	if fw == nil {
		return errors.New("no firmware interface")
	}
	raw, ok := fw.FramebufferHandoff()
	if !ok {
		return errors.New("no framebuffer handoff")
	}
	ho := Handoff(raw)
	if err := ho.Validate(); err != nil {
		return err
	}
	i := ho.Info()
	d := fb.New(h.Memory(), log)
	if err := d.Init(i.Base, i.Width, i.Height, i.PixelsPerScanLine, i.Format, ho.mask()); err != nil {
		return err
	}
	fb.SetActive(d)
	s.Firmware = true
	return nil
}

// bringUp initializes the controller and, when that works or the device
// needs no registers, switches to the direct framebuffer.
func (s *System) bringUp(h hal.HAL, dev pci.Device, log *klog.Logger) {
	ctrl := gpu.New(h.Ports(), h.Memory(), log.With("gpu"))
	if err := ctrl.Initialize(dev); err != nil {
		log.Errorf("gpu: %v", err)
	} else {
		s.GPU = ctrl
		s.Modes = gpu.NewModeManager(ctrl)
		log.Debugf("%d display modes available", len(s.Modes.Modes()))
	}

	d := direct.New(s.GPU, h.Memory(), log.With("direct"))
	if _, err := d.DetectAndConfigure(dev); err != nil {
		log.Warnf("direct framebuffer: %v", err)
		return
	}
	s.Direct = d
	if err := d.InitializeHardwareFramebuffer(); err != nil {
		log.Warnf("direct hardware init: %v", err)
		return
	}
	if _, err := d.CreateFramebufferDriver(); err != nil {
		log.Warnf("direct framebuffer: %v", err)
	}
}

func (s *System) setMode(h hal.HAL, log *klog.Logger, set func(*gpu.ModeManager) (fb.Info, error)) error {
	if s.Modes == nil {
		return fmt.Errorf("no controller: %w", display.ErrGpuNotFound)
	}
	info, err := set(s.Modes)
	if err != nil {
		return err
	}
	d := fb.New(h.Memory(), log.With("fb"))
	if err := d.Init(info.Base, info.Width, info.Height, info.PixelsPerScanLine, info.Format, info.Mask); err != nil {
		return err
	}
	fb.SetActive(d)
	if s.Direct != nil {
		if err := s.Direct.Reconfigure(info); err != nil {
			log.Warnf("direct reconfigure: %v", err)
		}
	}
	return nil
}

// Shutdown releases the active framebuffer.
func (s *System) Shutdown() {
	if fb.Active() == s.Framebuffer {
		fb.ClearActive()
	}
}
