// hydra-view runs the scanout simulation and shows its frames with the
// selected presentation backend. Press q to quit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/c35s/hydra/device"
	"github.com/c35s/hydra/present"
	_ "github.com/c35s/hydra/present/all"
	"github.com/c35s/hydra/present/window"
	"github.com/c35s/hydra/sim"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// config is the viewer configuration. It's read from the -config file,
// then overridden by flags that were set.
type config struct {
	Backend string `yaml:"backend"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Scale   int    `yaml:"scale"`
	VSync   bool   `yaml:"vsync"`
	Frames  int    `yaml:"frames"`
	Record  string `yaml:"record"`
	HUD     bool   `yaml:"hud"`

	// Source is "pattern" for the built-in test pattern or "device" for
	// the pixel RAM of an in-process emulated device.
	Source string `yaml:"source"`
}

func main() {

	var (
		cfgPath = flag.String("config", "", "read a YAML config from file or URL")
		backend = flag.String("backend", "", "use the named backend instead of "+present.EnvBackend+" or automatic selection")
		width   = flag.Int("width", sim.WidthDefault, "set the frame width in pixels")
		height  = flag.Int("height", sim.HeightDefault, "set the frame height in pixels")
		scale   = flag.Int("scale", present.ScaleDefault, "scale frames by `n` for display")
		vsync   = flag.Bool("vsync", true, "wait for vertical sync")
		frames  = flag.Int("frames", 0, "stop after `n` frames (0 runs until q)")
		record  = flag.String("record", "", "record frames as PNGs into a cpio archive at `path` (gzipped if it ends in .gz)")
		hud     = flag.Bool("hud", true, "draw the status overlay")
		source  = flag.String("source", "pattern", "render the test pattern or the emulated device's pixel RAM (pattern or device)")
		list    = flag.Bool("list", false, "list the backends and exit")
		verbose = flag.Bool("v", false, "log debug messages")
	)

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *list {
		for _, s := range present.Registered() {
			fmt.Printf("%-18s registered=%-5v supported=%v\n", s.Kind, s.Registered, s.Supported)
		}

		return
	}

	cfg := config{
		Width:  *width,
		Height: *height,
		Scale:  *scale,
		VSync:  *vsync,
		HUD:    *hud,
		Source: *source,
	}

	if *cfgPath != "" {
		b, err := readURL(*cfgPath)
		if err != nil {
			fail(err)
		}

		if err := yaml.Unmarshal(b, &cfg); err != nil {
			fail(fmt.Errorf("hydra-view: config %s: %w", *cfgPath, err))
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "scale":
			cfg.Scale = *scale
		case "vsync":
			cfg.VSync = *vsync
		case "frames":
			cfg.Frames = *frames
		case "record":
			cfg.Record = *record
		case "hud":
			cfg.HUD = *hud
		case "source":
			cfg.Source = *source
		}
	})

	// Windowed backends need their game loop on the main goroutine.
	err := window.Run(func() error {
		return run(cfg)
	})

	if err != nil {
		fail(err)
	}
}

func run(cfg config) error {
	sel := present.FromEnv()
	if cfg.Backend != "" {
		sel.Override = cfg.Backend
	}

	pc, err := sel.Open(present.Config{
		Width:  cfg.Width,
		Height: cfg.Height,
		Scale:  cfg.Scale,
		VSync:  cfg.VSync,
		Title:  "Hydra",
	})

	if err != nil {
		return err
	}

	defer pc.Shutdown()

	slog.Info("hydra-view: presenting", "backend", pc.Kind(), "width", cfg.Width, "height", cfg.Height)

	var (
		dev *device.Device
		src sim.Source
	)

	switch cfg.Source {
	case "", "pattern":
	case "device":
		dev, err = device.New(device.Config{})
		if err != nil {
			return err
		}

		src = sim.DeviceSource(dev, cfg.Width)

	default:
		return fmt.Errorf("hydra-view: unknown source %q", cfg.Source)
	}

	h, err := sim.New(sim.NewScanout(cfg.Width, cfg.Height, src), sim.Config{
		Width:  cfg.Width,
		Height: cfg.Height,
		Device: dev,
	})

	if err != nil {
		return err
	}

	if err := h.Reset(0); err != nil {
		return err
	}

	v := sim.Viewer{Harness: h, Context: pc, HUD: cfg.HUD}

	if cfg.Record != "" {
		rec, closeRec, err := createRecorder(cfg.Record)
		if err != nil {
			return err
		}

		defer func() {
			if err := closeRec(); err != nil {
				slog.Error("hydra-view: close recording", "path", cfg.Record, "err", err)
			}
		}()

		v.Recorder = rec
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		old, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return err
		}

		defer term.Restore(int(os.Stdin.Fd()), old)

		// The read can't be interrupted, so this goroutine outlives run.
		go watchKeys(os.Stdin, cancel)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return v.Run(ctx, cfg.Frames)
	})

	g.Go(func() error {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				slog.Debug("hydra-view: status", "frames", pc.Frames(), "cycles", h.Time())
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("hydra-view: done", "frames", pc.Frames())
	return nil
}

// watchKeys calls quit when q or ^C is read from r.
func watchKeys(r io.Reader, quit func()) {
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if b == 'q' || b == 'Q' || b == 3 {
				quit()
				return
			}
		}

		if err != nil {
			return
		}
	}
}

// createRecorder creates a recorder writing to path. The returned func
// finishes the recording and closes the file.
func createRecorder(path string) (*sim.Recorder, func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	rec := sim.NewRecorder(f, strings.HasSuffix(path, ".gz"))

	closeRec := func() error {
		err := rec.Close()
		if cerr := f.Close(); err == nil {
			err = cerr
		}

		if err == nil {
			slog.Info("hydra-view: recorded", "path", path, "frames", rec.Frames())
		}

		return err
	}

	return rec, closeRec, nil
}

func readURL(s string) (body []byte, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("hydra-view: read URL %s: %w", s, err)
		}
	}()

	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "", "file":
		return os.ReadFile(u.Path)

	case "http", "https":
		res, err := http.Get(u.String())
		if err != nil {
			return nil, err
		}

		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("response status %d != %d", res.StatusCode, http.StatusOK)
		}

		return io.ReadAll(res.Body)

	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func fail(err error) {
	slog.Error("hydra-view: failed", "err", err)
	os.Exit(1)
}
