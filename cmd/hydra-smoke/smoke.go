package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/c35s/hydra/hydra"
	"github.com/c35s/hydra/uapi"
)

const (
	smokeDst   = 0x100 // byte address, pixel index 0x40
	smokeWords = 4
)

var errMismatch = errors.New("pixel mismatch")

// smoke pushes four words through the blit FIFO into pixel RAM and reads
// them back, reporting to w.
func smoke(c *hydra.Client, timeout time.Duration, w io.Writer) error {
	return c.Exclusive(func(tx *hydra.Tx) error {
		if err := tx.ClearInterrupts(^uint32(0)); err != nil {
			return err
		}

		if err := tx.SetInterruptMask(uapi.IntFrameDone | uapi.IntDMADone | uapi.IntBlitDone); err != nil {
			return err
		}

		words := make([]uint32, smokeWords)
		for i := range words {
			words[i] = 0xA0A00000 | uint32(i)
		}

		if err := tx.Write32(uapi.RegBlitSrc, 0); err != nil {
			return err
		}

		if err := tx.Blit(smokeDst, words); err != nil {
			return err
		}

		status, waitErr := tx.WaitBlitDone(timeout)

		blit, err := tx.Read32(uapi.RegBlitStatus)
		if err != nil {
			return err
		}

		ints, err := tx.InterruptStatus()
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Final STATUS=0x%08x BLIT_STATUS=0x%08x INT_STATUS=0x%08x\n", status, blit, ints)
		if waitErr != nil {
			return waitErr
		}

		var bad int
		for i, want := range words {
			got, err := tx.ReadPixel(smokeDst/4 + uint32(i))
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "PIX[%d]=0x%08x\n", i, got)
			if got != want {
				bad++
			}
		}

		if bad > 0 {
			return fmt.Errorf("%w: %d of %d words", errMismatch, bad, len(words))
		}

		return nil
	})
}
