// Package klog writes module-tagged, leveled lines to a hal.Logger.
package klog

import (
	"fmt"
	"strings"
	"sync/atomic"

	"kdisplay/hal"
)

type Level uint32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", uint32(l))
}

// ParseLevel accepts the names printed by Level.String.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is safe to use as nil; a nil Logger drops everything.
type Logger struct {
	out    hal.Logger
	module string
	min    *atomic.Uint32
}

func New(out hal.Logger, module string) *Logger {
	lvl := new(atomic.Uint32)
	lvl.Store(uint32(LevelInfo))
	return &Logger{out: out, module: module, min: lvl}
}

// With returns a logger for another module sharing the same sink and level.
func (l *Logger) With(module string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{out: l.out, module: module, min: l.min}
}

func (l *Logger) SetLevel(lv Level) {
	if l == nil {
		return
	}
	l.min.Store(uint32(lv))
}

func (l *Logger) Enabled(lv Level) bool {
	return l != nil && l.out != nil && uint32(lv) >= l.min.Load()
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(lv Level, format string, args ...any) {
	if !l.Enabled(lv) {
		return
	}
	var b strings.Builder
	b.Grow(len(l.module) + len(format) + 16)
	if l.module != "" {
		b.WriteByte('[')
		b.WriteString(l.module)
		b.WriteString("] ")
	}
	b.WriteString(lv.String())
	b.WriteString(": ")
	fmt.Fprintf(&b, format, args...)
	l.out.WriteLineString(b.String())
}
