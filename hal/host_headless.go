package hal

import (
	"context"
	"fmt"
	"time"
)

// Headless steps an app from a ticker without a window. Steps run on the
// calling goroutine, so a caller that locked its OS thread (for port
// privilege) keeps every step on that thread.
type Headless struct {
	// Rate is steps per second; 0 means 60.
	Rate int
	// Limit ends the run after that many steps; 0 runs until ctx is done.
	Limit uint64
	// AfterStep, if set, runs after every successful step with its 1-based
	// number. An error ends the run.
	AfterStep func(step uint64) error
}

// Run performs the first step right away and the rest on every tick.
func (r Headless) Run(ctx context.Context, h HAL, newApp func(HAL) func() error) error {
	rate := r.Rate
	if rate == 0 {
		rate = 60
	}
	period := time.Second / time.Duration(rate)
	if rate < 0 || period <= 0 {
		return fmt.Errorf("headless: invalid rate %d", r.Rate)
	}

	step := newApp(h)
	var n uint64
	do := func() (bool, error) {
		if step != nil {
			if err := step(); err != nil {
				return true, fmt.Errorf("headless step %d: %w", n+1, err)
			}
		}
		n++
		if r.AfterStep != nil {
			if err := r.AfterStep(n); err != nil {
				return true, err
			}
		}
		return r.Limit > 0 && n >= r.Limit, nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if done, err := do(); done || err != nil {
		return err
	}
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if done, err := do(); done || err != nil {
				return err
			}
		}
	}
}
