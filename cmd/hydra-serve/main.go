// hydra-serve serves an emulated Hydra device to remote clients.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/c35s/hydra/device"
	"github.com/c35s/hydra/remote"
)

func main() {

	var (
		listen  = flag.String("listen", "unix:/tmp/hydra.sock", "listen on `addr` (vsock:[CID:]PORT, unix:PATH or tcp:HOST:PORT)")
		latency = flag.Int("latency", 0, "keep DMA and blits busy for `n` register accesses (-1 for never)")
		verbose = flag.Bool("v", false, "log debug messages")
	)

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	d, err := device.New(device.Config{
		Latency: *latency,
		Notify: func(cause uint32) {
			slog.Debug("hydra-serve: interrupt", "cause", cause)
		},
	})

	if err != nil {
		panic(err)
	}

	if path, ok := strings.CutPrefix(*listen, "unix:"); ok {
		os.Remove(path)
	}

	l, err := remote.Listen(*listen)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("hydra-serve: serving", "addr", *listen, "latency", *latency)

	srv := remote.Server{Device: d}
	if err := srv.Serve(ctx, l); err != nil {
		panic(err)
	}
}
