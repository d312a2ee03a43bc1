// hydra-smoke runs the blit smoke test against a Hydra device.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/c35s/hydra/hydra"
	"github.com/c35s/hydra/script"
	"github.com/c35s/hydra/uapi"
	"github.com/schollz/progressbar/v3"
)

func main() {

	var (
		dev     = flag.String("dev", uapi.DevicePath, "open the device at `addr` (a path, sim, bar:PATH, vsock:CID:PORT, unix:PATH or tcp:ADDR)")
		lua     = flag.String("script", "", "run the Lua script at `path` instead of the smoke test")
		soak    = flag.Int("soak", 0, "repeat the smoke test `n` times")
		timeout = flag.Duration("timeout", time.Second, "wait this long for each blit")
		verbose = flag.Bool("v", false, "log debug messages")
	)

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	c, err := hydra.Dial(*dev, hydra.Config{})
	if err != nil {
		fail(err)
	}

	defer c.Close()

	info, err := c.Info()
	if err != nil {
		fail(err)
	}

	fmt.Printf("Hydra: vendor=%#04x device=%#04x irq=%d bar0=%#x len=%#x irq_count=%d\n",
		info.Vendor, info.Device, info.IRQ, info.BAR0Start, info.BAR0Len, info.IRQCount)

	switch {
	case *lua != "":
		err = script.RunFile(c, *lua)

	case *soak > 0:
		err = soakTest(c, *soak, *timeout)

	default:
		err = smoke(c, *timeout, os.Stdout)
	}

	if err != nil {
		fail(err)
	}
}

func soakTest(c *hydra.Client, n int, timeout time.Duration) error {
	bar := progressbar.Default(int64(n), "soak")

	var failed int
	for i := range n {
		if err := smoke(c, timeout, io.Discard); err != nil {
			slog.Debug("hydra-smoke: soak run failed", "run", i, "err", err)
			failed++
		}

		bar.Add(1)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, n)
	}

	return nil
}

func fail(err error) {
	slog.Error("hydra-smoke: failed", "err", err)
	os.Exit(1)
}
