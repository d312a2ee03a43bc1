// Package device emulates the driver side of a Hydra function: the BAR0
// register file with its interrupt, DMA, and blitter semantics.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/c35s/hydra/mmio"
	"github.com/c35s/hydra/uapi"
)

// Config describes a new device.
type Config struct {

	// Vendor and Device are reported by RegID and Info.
	// If zero, uapi.VendorID and uapi.DeviceID are used.
	Vendor, Device uint16

	// Revision is reported by RegRev.
	Revision uint32

	// IRQ is the interrupt line reported by Info.
	IRQ int32

	// BAR0Start and BAR1Start are the bus addresses reported by Info.
	BAR0Start, BAR1Start uint64

	// BAR0 backs the register window. It must be at least big enough to hold
	// the register map. If BAR0 is nil, the device gets uapi.BAR0Size bytes
	// of ordinary memory.
	BAR0 mmio.Window

	// BAR1 backs the secondary window. If BAR1 is nil, the window is absent
	// and reads from it return zero.
	BAR1 mmio.Window

	// PixelWords is the size of the blitter's pixel RAM in 32-bit words.
	// If PixelWords is 0, the device has 64K words.
	PixelWords int

	// FIFODepth is the capacity of the blit FIFO in words.
	// If FIFODepth is 0, the FIFO holds 256 words.
	FIFODepth int

	// Latency is the number of register accesses a triggered DMA or blit
	// stays busy for. If Latency is 0, operations complete on the trigger
	// write. If Latency is negative, they never complete.
	Latency int

	// Notify, if set, is called when an enabled interrupt cause fires.
	// It's called without the device lock held.
	Notify func(cause uint32)
}

// Counters counts the interrupt causes a device has raised, enabled or not.
type Counters struct {
	FrameDone uint64
	DMADone   uint64
	DMAError  uint64
	Test      uint64
	BlitDone  uint64
}

// Device is one emulated Hydra function.
// It implements the same operations as the driver's control interface.
type Device struct {
	cfg  Config
	bar0 mmio.Window
	bar1 mmio.Window

	mu     sync.Mutex
	state  deviceState
	pix    []uint32
	fifo   []uint32
	notify uint32 // causes to deliver on unlock
	closed bool
}

type deviceState struct {
	intStatus  uint32
	intMask    uint32
	dmaStatus  uint32
	blitStatus uint32
	frameDone  bool
	pixAddr    uint32

	dma  job
	blit job

	irqCount uint64
	counts   Counters
}

// job is an engine operation waiting to complete.
type job struct {
	active bool
	left   int // accesses until completion, <0 for never
}

const (
	PixelWordsDefault = 1 << 16
	FIFODepthDefault  = 256

	bar0SizeMin = uapi.RegBlitPixData + 4
)

var ErrConfig = errors.New("device: invalid config")

// New creates a new device.
func New(cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	d := &Device{
		cfg:  cfg,
		bar0: cfg.BAR0,
		bar1: cfg.BAR1,
		pix:  make([]uint32, cfg.PixelWords),
		fifo: make([]uint32, 0, cfg.FIFODepth),
	}

	return d, nil
}

// Info returns a snapshot of the device's identity and interrupt count.
func (d *Device) Info() (uapi.Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return uapi.Info{}, uapi.ErrDeviceUnavailable
	}

	info := uapi.Info{
		Vendor:    uint32(d.cfg.Vendor),
		Device:    uint32(d.cfg.Device),
		IRQ:       d.cfg.IRQ,
		BAR0Start: d.cfg.BAR0Start,
		BAR0Len:   uint64(d.bar0.Size()),
		IRQCount:  d.state.irqCount,
	}

	if n := d.bar1.Size(); n > 0 {
		info.BAR1Start = d.cfg.BAR1Start
		info.BAR1Len = uint64(n)
	}

	return info, nil
}

// Read32 reads the BAR0 register at off.
func (d *Device) Read32(off uint32) (uint32, error) {
	d.mu.Lock()
	defer d.unlock()

	if err := d.checkAccess(off); err != nil {
		return 0, err
	}

	d.advance(1)
	return d.readReg(off), nil
}

// Write32 writes v to the BAR0 register at off.
func (d *Device) Write32(off, v uint32) error {
	d.mu.Lock()
	defer d.unlock()

	if err := d.checkAccess(off); err != nil {
		return err
	}

	d.advance(1)
	d.writeReg(off, v)

	return nil
}

// ReadBAR1 reads a word from the secondary window.
// If the window is absent, every aligned read returns zero.
func (d *Device) ReadBAR1(off uint32) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, uapi.ErrDeviceUnavailable
	}

	if d.bar1.Size() == 0 {
		if off&3 != 0 {
			return 0, fmt.Errorf("%w: %#x is not 4-byte aligned", uapi.ErrInvalidOffset, off)
		}

		return 0, nil
	}

	if err := uapi.CheckAccess(off, uint64(d.bar1.Size())); err != nil {
		return 0, err
	}

	return d.bar1.Load32(int(off)), nil
}

// WriteBAR1 writes a word to the secondary window.
// Writes to an absent window are discarded.
func (d *Device) WriteBAR1(off, v uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return uapi.ErrDeviceUnavailable
	}

	if d.bar1.Size() == 0 {
		if off&3 != 0 {
			return fmt.Errorf("%w: %#x is not 4-byte aligned", uapi.ErrInvalidOffset, off)
		}

		return nil
	}

	if err := uapi.CheckAccess(off, uint64(d.bar1.Size())); err != nil {
		return err
	}

	d.bar1.Store32(int(off), v)
	return nil
}

// SubmitDMA validates req, programs the DMA registers, and performs the
// transfer before returning. It's the driver's DMA command: completion is
// immediate regardless of the configured latency.
func (d *Device) SubmitDMA(req uapi.DMARequest) error {
	d.mu.Lock()
	defer d.unlock()

	if d.closed {
		return uapi.ErrDeviceUnavailable
	}

	if err := uapi.ValidateDMA(req, uint64(d.bar0.Size())); err != nil {
		return err
	}

	d.bar0.Store32(uapi.RegDMASrc, uint32(req.Src))
	d.bar0.Store32(uapi.RegDMADst, uint32(req.Dst))
	d.bar0.Store32(uapi.RegDMALen, req.Len)
	d.bar0.Store32(uapi.RegDMACmd, uapi.DMAStart)

	d.state.dma = job{}
	d.completeDMA()

	if d.state.dmaStatus&uapi.DMAError != 0 {
		return uapi.ErrDMA
	}

	return nil
}

// Raise fires the given interrupt causes as if the hardware had signaled
// them. It's how external event sources like a frame generator report in.
func (d *Device) Raise(cause uint32) {
	d.mu.Lock()
	defer d.unlock()

	if d.closed {
		return
	}

	d.raise(cause)
}

// Tick advances the device by n register-access cycles.
func (d *Device) Tick(n int) {
	d.mu.Lock()
	defer d.unlock()

	d.advance(n)
}

// Counters returns the number of times each interrupt cause has fired.
func (d *Device) Counters() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state.counts
}

// Pixels copies the blitter's pixel RAM into dst, growing it if necessary.
func (d *Device) Pixels(dst []uint32) []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cap(dst) < len(d.pix) {
		dst = make([]uint32, len(d.pix))
	}

	dst = dst[:len(d.pix)]
	copy(dst, d.pix)

	return dst
}

// Close unmaps the device. Every later operation fails with
// uapi.ErrDeviceUnavailable.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return nil
}

func (d *Device) checkAccess(off uint32) error {
	if d.closed {
		return uapi.ErrDeviceUnavailable
	}

	return uapi.CheckAccess(off, uint64(d.bar0.Size()))
}

// unlock releases the device lock and then delivers interrupts raised
// while it was held.
func (d *Device) unlock() {
	cause := d.notify
	d.notify = 0
	d.mu.Unlock()

	if cause != 0 && d.cfg.Notify != nil {
		d.cfg.Notify(cause)
	}
}

func (d *Device) raise(cause uint32) {
	cause &= uapi.IntAll
	if cause == 0 {
		return
	}

	d.state.intStatus |= cause

	c := &d.state.counts
	if cause&uapi.IntFrameDone != 0 {
		c.FrameDone++
		d.state.frameDone = true
	}

	if cause&uapi.IntDMADone != 0 {
		c.DMADone++
	}

	if cause&uapi.IntDMAError != 0 {
		c.DMAError++
	}

	if cause&uapi.IntTest != 0 {
		c.Test++
	}

	if cause&uapi.IntBlitDone != 0 {
		c.BlitDone++
	}

	if on := cause & d.state.intMask; on != 0 {
		d.state.irqCount++
		d.notify |= on
	}
}

func (d *Device) reset() {
	slog.Debug("hydra device soft reset", "vendor", d.cfg.Vendor, "device", d.cfg.Device)

	d.state = deviceState{
		irqCount: d.state.irqCount,
		counts:   d.state.counts,
	}

	d.fifo = d.fifo[:0]
	d.notify = 0
}

func (c Config) validate() error {
	if c.BAR0.Size() < bar0SizeMin {
		return fmt.Errorf("BAR0 is too small: %#x < %#x", c.BAR0.Size(), bar0SizeMin)
	}

	if c.BAR0.Size()%4 != 0 || c.BAR1.Size()%4 != 0 {
		return fmt.Errorf("BAR sizes must be multiples of 4: %#x, %#x", c.BAR0.Size(), c.BAR1.Size())
	}

	if c.PixelWords < 0 {
		return fmt.Errorf("pixel RAM size is negative: %d", c.PixelWords)
	}

	if c.FIFODepth < 0 {
		return fmt.Errorf("FIFO depth is negative: %d", c.FIFODepth)
	}

	return nil
}

func (c Config) withDefaults() Config {
	if c.Vendor == 0 {
		c.Vendor = uapi.VendorID
	}

	if c.Device == 0 {
		c.Device = uapi.DeviceID
	}

	if c.BAR0 == nil {
		c.BAR0 = mmio.NewMemory(uapi.BAR0Size)
	}

	if c.BAR1 == nil {
		c.BAR1 = mmio.Absent{}
	}

	if c.PixelWords == 0 {
		c.PixelWords = PixelWordsDefault
	}

	if c.FIFODepth == 0 {
		c.FIFODepth = FIFODepthDefault
	}

	return c
}
