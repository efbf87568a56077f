package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"kdisplay/app"
	"kdisplay/display/fb"
	"kdisplay/hal"
	"kdisplay/internal/buildinfo"
	"kdisplay/internal/klog"
)

// options are the flags that constrain each other.
type options struct {
	headless      bool
	devmem        bool
	width, height uint
	mode          string
	snapshot      string
	snapshotEvery uint64
}

func (o options) validate() error {
	switch {
	case o.devmem && !o.headless:
		// The window loop steps the app from its own thread, which lacks the
		// port privilege granted to the main thread.
		return errors.New("-devmem requires -headless")
	case o.width != 0 && o.height == 0:
		return errors.New("-width needs -height")
	case o.width != 0 && o.mode != "":
		return errors.New("-mode and -width are exclusive")
	case o.snapshotEvery != 0 && o.snapshot == "":
		return errors.New("-snapshot-every needs -snapshot")
	}
	return nil
}

// framePath numbers path for periodic snapshots: shot.bmp -> shot-000120.bmp.
func framePath(path string, step uint64) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%06d%s", strings.TrimSuffix(path, ext), step, ext)
}

func main() {
	var (
		opts    options
		run     hal.Headless
		machine hal.MachineConfig
		appCfg  app.Config
		level   string
		version bool
	)
	flag.BoolVar(&opts.headless, "headless", false, "Run without a window.")
	flag.IntVar(&run.Rate, "hz", 60, "Step rate in headless mode.")
	flag.Uint64Var(&run.Limit, "ticks", 0, "Stop after N steps in headless mode (0 = run forever).")
	flag.StringVar(&machine.GPU, "gpu", "bochs", "Simulated display adapter: "+strings.Join(hal.GPUNames(), ", ")+".")
	flag.IntVar(&machine.Width, "fw-width", 1024, "Width of the firmware framebuffer.")
	flag.IntVar(&machine.Height, "fw-height", 768, "Height of the firmware framebuffer.")
	flag.UintVar(&opts.width, "width", 0, "Mode width to set after boot (0 keeps the firmware mode).")
	flag.UintVar(&opts.height, "height", 0, "Mode height to set after boot.")
	bpp := flag.Uint("bpp", 32, "Mode depth to set after boot: 16, 24 or 32.")
	flag.StringVar(&opts.mode, "mode", "", "Mode to set after boot by name: highest, safest, recommended, vga, svga, xga, hd, 1080p, ...")
	flag.BoolVar(&appCfg.Boot.DisableAccel, "no-accel", false, "Draw with the software rasterizer only. Simulated engines record commands but do not render them.")
	flag.StringVar(&opts.snapshot, "snapshot", "", "Write the final framebuffer to this BMP file (headless mode).")
	flag.Uint64Var(&opts.snapshotEvery, "snapshot-every", 0, "Also write a numbered snapshot every N steps (headless mode).")
	flag.BoolVar(&opts.devmem, "devmem", false, "Drive real hardware through /dev/mem and raw port I/O (root, linux/amd64, headless only).")
	flag.StringVar(&level, "log-level", "info", "Minimum log level: debug, info, warn, error.")
	flag.BoolVar(&version, "version", false, "Print the build version and exit.")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.String())
		return
	}
	if err := opts.validate(); err != nil {
		fail(err)
	}

	lv, err := klog.ParseLevel(level)
	if err != nil {
		fail(err)
	}
	appCfg.Boot.LogLevel = lv
	appCfg.Boot.Width, appCfg.Boot.Height, appCfg.Boot.BPP = uint32(opts.width), uint32(opts.height), uint32(*bpp)
	appCfg.Boot.ModeName = opts.mode

	var h hal.HAL
	if opts.devmem {
		// Port privilege is per thread; headless steps stay on this one.
		runtime.LockOSThread()
		hw, closeHW, err := hal.NewHardware()
		if err != nil {
			fail(err)
		}
		defer closeHW()
		h = hw
	} else {
		pc, err := hal.NewSimulatedPC(machine)
		if err != nil {
			fail(err)
		}
		h = hal.New(pc)
	}

	newApp := func(h hal.HAL) func() error { return app.NewWithConfig(h, appCfg) }

	if opts.headless {
		if every := opts.snapshotEvery; every != 0 {
			run.AfterStep = func(step uint64) error {
				if step%every != 0 {
					return nil
				}
				return writeSnapshot(framePath(opts.snapshot, step))
			}
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err := run.Run(ctx, h, newApp)
		if err != nil && !errors.Is(err, context.Canceled) {
			fail(err)
		}
		if opts.snapshot != "" {
			if err := writeSnapshot(opts.snapshot); err != nil {
				fail(err)
			}
		}
		return
	}

	if err := hal.RunWindow(h, newApp); err != nil {
		fail(err)
	}
}

func writeSnapshot(path string) error {
	d := fb.Active()
	if !d.Initialized() {
		return errors.New("snapshot: no active framebuffer")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.SnapshotBMP(f); err != nil {
		f.Close()
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	return f.Close()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
