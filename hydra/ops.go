package hydra

import (
	"fmt"
	"math"
	"time"

	"github.com/c35s/hydra/uapi"
)

// Tx is exclusive use of a Client. See Client.Exclusive.
type Tx struct {
	c *Client
}

// Read32 reads the register at off.
func (tx *Tx) Read32(off uint32) (uint32, error) {
	if err := uapi.CheckAccess(off, tx.c.size); err != nil {
		return 0, err
	}

	return tx.c.t.Read32(off)
}

// Write32 writes v to the register at off.
func (tx *Tx) Write32(off, v uint32) error {
	if err := uapi.CheckAccess(off, tx.c.size); err != nil {
		return err
	}

	return tx.c.t.Write32(off, v)
}

// writes performs register writes in order, stopping at the first error.
func (tx *Tx) writes(regs ...uapi.RegRW) error {
	for _, r := range regs {
		if err := tx.Write32(r.Offset, r.Value); err != nil {
			return fmt.Errorf("write %#x: %w", r.Offset, err)
		}
	}

	return nil
}

// ClearInterrupts acknowledges the interrupt causes set in mask.
func (tx *Tx) ClearInterrupts(mask uint32) error {
	return tx.Write32(uapi.RegIntStatus, mask)
}

// SetInterruptMask replaces the interrupt enable mask.
func (tx *Tx) SetInterruptMask(mask uint32) error {
	return tx.Write32(uapi.RegIntMask, mask)
}

// InterruptStatus returns the pending interrupt causes.
func (tx *Tx) InterruptStatus() (uint32, error) {
	return tx.Read32(uapi.RegIntStatus)
}

// TestInterrupt raises the software test cause.
func (tx *Tx) TestInterrupt() error {
	return tx.Write32(uapi.RegIRQTest, 1)
}

// SoftReset resets the device's engines and interrupt state.
func (tx *Tx) SoftReset() error {
	return tx.Write32(uapi.RegCtrl, uapi.CtrlSoftReset)
}

// StartFrame asks the renderer for a new frame.
func (tx *Tx) StartFrame() error {
	return tx.Write32(uapi.RegCtrl, uapi.CtrlStartFrame)
}

// PushFIFO pushes a word onto the blit FIFO.
func (tx *Tx) PushFIFO(word uint32) error {
	return tx.Write32(uapi.RegBlitFIFOData, word)
}

// KickBlit starts a FIFO-sourced blit of n bytes to dst.
// DST and LEN are written before CTRL, which latches them.
func (tx *Tx) KickBlit(dst, n uint32) error {
	return tx.writes(
		uapi.RegRW{Offset: uapi.RegBlitDst, Value: dst},
		uapi.RegRW{Offset: uapi.RegBlitLen, Value: n},
		uapi.RegRW{Offset: uapi.RegBlitCtrl, Value: uapi.BlitCtrlStart | uapi.BlitCtrlUseFIFO},
	)
}

// Blit pushes words onto the FIFO and kicks a blit of all of them to dst.
func (tx *Tx) Blit(dst uint32, words []uint32) error {
	if len(words) == 0 || len(words) > math.MaxUint32/4 {
		return fmt.Errorf("%w: blit of %d words", uapi.ErrInvalidLength, len(words))
	}

	for i, w := range words {
		if err := tx.PushFIFO(w); err != nil {
			return fmt.Errorf("push word %d: %w", i, err)
		}
	}

	return tx.KickBlit(dst, uint32(4*len(words)))
}

// CopyBlit starts a blit of n bytes from src to dst within pixel RAM.
func (tx *Tx) CopyBlit(src, dst, n uint32) error {
	return tx.writes(
		uapi.RegRW{Offset: uapi.RegBlitSrc, Value: src},
		uapi.RegRW{Offset: uapi.RegBlitDst, Value: dst},
		uapi.RegRW{Offset: uapi.RegBlitLen, Value: n},
		uapi.RegRW{Offset: uapi.RegBlitCtrl, Value: uapi.BlitCtrlStart},
	)
}

// ReadPixel reads the pixel RAM word at index i.
func (tx *Tx) ReadPixel(i uint32) (uint32, error) {
	if err := tx.Write32(uapi.RegBlitPixAddr, i); err != nil {
		return 0, err
	}

	return tx.Read32(uapi.RegBlitPixData)
}

// WaitBlitDone polls STATUS until the blit-done bit is set. It returns the
// last status it read, and uapi.ErrTimeout if the bit never appeared.
// A non-positive timeout allows 1000 polls.
func (tx *Tx) WaitBlitDone(timeout time.Duration) (uint32, error) {
	return tx.poll(uapi.RegStatus, uapi.StatusBlitDone, timeout)
}

// WaitDMADone polls DMA_STATUS until the engine reports done or error.
// It returns the last status it read and uapi.ErrDMA if the engine
// reported an error.
func (tx *Tx) WaitDMADone(timeout time.Duration) (uint32, error) {
	st, err := tx.poll(uapi.RegDMAStatus, uapi.DMADone|uapi.DMAError, timeout)
	if err != nil {
		return st, err
	}

	if st&uapi.DMAError != 0 {
		return st, fmt.Errorf("%w: DMA status %#x", uapi.ErrDMA, st)
	}

	return st, nil
}

// SubmitDMA validates req against the register window and runs it with the
// client's DMA execution model.
func (tx *Tx) SubmitDMA(req uapi.DMARequest) error {
	if err := uapi.ValidateDMA(req, tx.c.size); err != nil {
		return err
	}

	if req.Src > math.MaxUint32 || req.Dst > math.MaxUint32 {
		return fmt.Errorf("%w: DMA addresses exceed 32 bits", uapi.ErrInvalidOffset)
	}

	ds, ok := tx.c.t.(DMASubmitter)

	switch tx.c.cfg.DMA {
	case DMAAuto:
		if ok {
			return ds.SubmitDMA(req)
		}

	case DMAImmediate:
		return ds.SubmitDMA(req)
	}

	err := tx.writes(
		uapi.RegRW{Offset: uapi.RegDMASrc, Value: uint32(req.Src)},
		uapi.RegRW{Offset: uapi.RegDMADst, Value: uint32(req.Dst)},
		uapi.RegRW{Offset: uapi.RegDMALen, Value: req.Len},
		uapi.RegRW{Offset: uapi.RegDMACmd, Value: uapi.DMAStart},
	)

	if err != nil {
		return err
	}

	_, err = tx.WaitDMADone(tx.c.cfg.DMATimeout)
	return err
}

// poll reads the register at off until one of the bits in mask is set,
// sleeping for the poll interval between reads. The number of reads is
// bounded so that a stuck device can't hang the caller.
func (tx *Tx) poll(off, mask uint32, timeout time.Duration) (uint32, error) {
	q := tx.c.cfg.PollInterval

	loops := pollLoopsDefault
	if timeout > 0 {
		n := timeout / q
		if timeout%q != 0 {
			n++
		}

		loops = int(min(n, pollLoopsMax))
	}

	var st uint32
	for range loops {
		v, err := tx.Read32(off)
		if err != nil {
			return st, err
		}

		st = v
		if st&mask != 0 {
			return st, nil
		}

		time.Sleep(q)
	}

	return st, fmt.Errorf("%w: %#x & %#x still clear after %d polls (status %#x)", uapi.ErrTimeout, off, mask, loops, st)
}

// Client wrappers. Each holds the client lock for the whole operation.

// Read32 reads the register at off.
func (c *Client) Read32(off uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().Read32(off)
}

// Write32 writes v to the register at off.
func (c *Client) Write32(off, v uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().Write32(off, v)
}

// ClearInterrupts acknowledges the interrupt causes set in mask.
func (c *Client) ClearInterrupts(mask uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().ClearInterrupts(mask)
}

// SetInterruptMask replaces the interrupt enable mask.
func (c *Client) SetInterruptMask(mask uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().SetInterruptMask(mask)
}

// InterruptStatus returns the pending interrupt causes.
func (c *Client) InterruptStatus() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().InterruptStatus()
}

// TestInterrupt raises the software test cause.
func (c *Client) TestInterrupt() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().TestInterrupt()
}

// SoftReset resets the device's engines and interrupt state.
func (c *Client) SoftReset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().SoftReset()
}

// StartFrame asks the renderer for a new frame.
func (c *Client) StartFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().StartFrame()
}

// PushFIFO pushes a word onto the blit FIFO.
func (c *Client) PushFIFO(word uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().PushFIFO(word)
}

// KickBlit starts a FIFO-sourced blit of n bytes to dst.
func (c *Client) KickBlit(dst, n uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().KickBlit(dst, n)
}

// Blit pushes words onto the FIFO and kicks a blit of all of them to dst.
func (c *Client) Blit(dst uint32, words []uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().Blit(dst, words)
}

// CopyBlit starts a blit of n bytes from src to dst within pixel RAM.
func (c *Client) CopyBlit(src, dst, n uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().CopyBlit(src, dst, n)
}

// ReadPixel reads the pixel RAM word at index i.
func (c *Client) ReadPixel(i uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().ReadPixel(i)
}

// WaitBlitDone polls STATUS until the blit-done bit is set.
// See Tx.WaitBlitDone.
func (c *Client) WaitBlitDone(timeout time.Duration) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().WaitBlitDone(timeout)
}

// WaitDMADone polls DMA_STATUS until the engine reports done or error.
func (c *Client) WaitDMADone(timeout time.Duration) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().WaitDMADone(timeout)
}

// SubmitDMA runs a DMA request. See Tx.SubmitDMA.
func (c *Client) SubmitDMA(req uapi.DMARequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx().SubmitDMA(req)
}
