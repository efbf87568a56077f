// Package display holds the error taxonomy shared by the display drivers.
package display

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter       = errors.New("invalid parameter")
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	ErrMappingFailure         = errors.New("mapping failure")
	ErrRegisterOutOfRange     = errors.New("register offset out of range")
	ErrSetModeFailed          = errors.New("set mode failed")
	ErrGpuNotFound            = errors.New("gpu not found")
	ErrUnsupportedGpu         = errors.New("unsupported gpu")
)

// DriverInitError reports a failed vendor bring-up.
type DriverInitError struct {
	Module string
	Msg    string
	Err    error
}

func (e *DriverInitError) Error() string {
	s := e.Msg
	if e.Module != "" {
		s = "[" + e.Module + "] " + s
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

func (e *DriverInitError) Unwrap() error { return e.Err }
