package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c35s/hydra/present"
)

// Viewer renders a harness's frames into a presentation context.
type Viewer struct {

	// Harness produces the frames. It should already be reset.
	Harness *Harness

	// Context displays the frames. It must be initialized.
	Context *present.Context

	// Recorder, if set, records each frame before the HUD is drawn.
	Recorder *Recorder

	// HUD enables the status overlay.
	HUD bool
}

// Run renders frames until ctx is done or n frames have been shown.
// If n is 0, Run doesn't stop on its own.
func (v *Viewer) Run(ctx context.Context, n int) error {
	w, h := v.Harness.Size()

	var (
		f    = present.Frame{Pix: make([]uint32, w*h), Width: w, Height: h}
		hud  HUD
		last = time.Now()
		fps  float64
	)

	for i := 0; n == 0 || i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := v.Harness.Frame(f.Pix); err != nil {
			return err
		}

		now := time.Now()
		if dt := now.Sub(last).Seconds(); dt > 0 {
			fps = 1 / dt
		}

		last = now

		if v.Recorder != nil {
			if err := v.Recorder.Record(f); err != nil {
				return fmt.Errorf("sim: record frame %d: %w", i, err)
			}
		}

		if v.HUD {
			hud.Draw(f,
				fmt.Sprintf("frame %d  fps %.1f", v.Harness.Frames(), fps),
				fmt.Sprintf("backend %s  %dx%d", v.Context.Kind(), w, h),
				fmt.Sprintf("cycles %d", v.Harness.Time()))
		}

		if err := v.Context.Present(f); err != nil {
			return err
		}

		if i%100 == 99 {
			slog.Debug("sim: frames shown", "n", i+1, "fps", fps)
		}
	}

	return nil
}
