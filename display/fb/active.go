package fb

import "sync"

// The active framebuffer is the process-wide drawing surface. Every swap
// goes through one lock so a rebind is never observed half-done.
var active struct {
	mu sync.Mutex
	d  *Driver
}

// SetActive publishes d as the active framebuffer and returns the previous one.
func SetActive(d *Driver) (prev *Driver) {
	active.mu.Lock()
	defer active.mu.Unlock()
	prev, active.d = active.d, d
	return prev
}

// Active returns the active framebuffer, or nil.
func Active() *Driver {
	active.mu.Lock()
	defer active.mu.Unlock()
	return active.d
}

// ActiveInfo returns the active framebuffer's description.
func ActiveInfo() (Info, bool) {
	d := Active()
	if !d.Initialized() {
		return Info{}, false
	}
	return d.Info(), true
}

// ClearActive drops the active framebuffer (shutdown, tests).
func ClearActive() {
	SetActive(nil)
}
