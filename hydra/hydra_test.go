package hydra_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/c35s/hydra/device"
	"github.com/c35s/hydra/hydra"
	"github.com/c35s/hydra/mmio"
	"github.com/c35s/hydra/uapi"
	"github.com/google/go-cmp/cmp"
)

type access struct {
	Write bool
	Off   uint32
	Val   uint32
}

// recTransport records every access and serves reads from regs.
type recTransport struct {
	log     []access
	regs    map[uint32]uint32
	readErr error
	dma     []uapi.DMARequest
}

func newRec() *recTransport {
	return &recTransport{regs: map[uint32]uint32{}}
}

func (r *recTransport) Info() (uapi.Info, error) {
	return uapi.Info{Vendor: uapi.VendorID, Device: uapi.DeviceID, BAR0Len: uapi.BAR0Size}, nil
}

func (r *recTransport) Read32(off uint32) (uint32, error) {
	r.log = append(r.log, access{Off: off})
	if r.readErr != nil {
		return 0, r.readErr
	}

	return r.regs[off], nil
}

func (r *recTransport) Write32(off, v uint32) error {
	r.log = append(r.log, access{Write: true, Off: off, Val: v})
	r.regs[off] = v
	return nil
}

func (r *recTransport) Close() error { return nil }

// dmaTransport is a recTransport with a DMA command.
type dmaTransport struct {
	*recTransport
}

func (d dmaTransport) SubmitDMA(req uapi.DMARequest) error {
	d.dma = append(d.dma, req)
	return nil
}

func newClient(t *testing.T, tr hydra.Transport, cfg hydra.Config) *hydra.Client {
	t.Helper()

	c, err := hydra.New(tr, cfg)
	if err != nil {
		t.Fatal(err)
	}

	return c
}

func newSim(t *testing.T, cfg device.Config) *device.Device {
	t.Helper()

	d, err := device.New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	return d
}

func TestKickBlitOrder(t *testing.T) {
	rec := newRec()
	c := newClient(t, rec, hydra.Config{})

	if err := c.Blit(0x100, []uint32{1, 2}); err != nil {
		t.Fatal(err)
	}

	want := []access{
		{Write: true, Off: uapi.RegBlitFIFOData, Val: 1},
		{Write: true, Off: uapi.RegBlitFIFOData, Val: 2},
		{Write: true, Off: uapi.RegBlitDst, Val: 0x100},
		{Write: true, Off: uapi.RegBlitLen, Val: 8},
		{Write: true, Off: uapi.RegBlitCtrl, Val: uapi.BlitCtrlStart | uapi.BlitCtrlUseFIFO},
	}

	if diff := cmp.Diff(want, rec.log); diff != "" {
		t.Fatalf("accesses differ: %s", diff)
	}
}

func TestValidationIsLocal(t *testing.T) {
	rec := newRec()
	c := newClient(t, rec, hydra.Config{})

	if _, err := c.Read32(3); !errors.Is(err, uapi.ErrInvalidOffset) {
		t.Errorf("misaligned read: error isn't ErrInvalidOffset: %v", err)
	}

	if err := c.Write32(uapi.BAR0Size, 1); !errors.Is(err, uapi.ErrInvalidOffset) {
		t.Errorf("out of range write: error isn't ErrInvalidOffset: %v", err)
	}

	if err := c.SubmitDMA(uapi.DMARequest{Src: 0xffff0, Len: 0x20}); !errors.Is(err, uapi.ErrInvalidOffset) {
		t.Errorf("out of range DMA: error isn't ErrInvalidOffset: %v", err)
	}

	if err := c.SubmitDMA(uapi.DMARequest{}); !errors.Is(err, uapi.ErrInvalidLength) {
		t.Errorf("zero-length DMA: error isn't ErrInvalidLength: %v", err)
	}

	if len(rec.log) != 0 {
		t.Fatalf("invalid requests reached the transport: %+v", rec.log)
	}
}

func TestBlitSmoke(t *testing.T) {
	c := newClient(t, newSim(t, device.Config{Latency: 2}), hydra.Config{})

	if err := c.ClearInterrupts(0xffffffff); err != nil {
		t.Fatal(err)
	}

	if err := c.SetInterruptMask(uapi.IntFrameDone | uapi.IntDMADone | uapi.IntBlitDone); err != nil {
		t.Fatal(err)
	}

	words := []uint32{0xa0a00000, 0xa0a00001, 0xa0a00002, 0xa0a00003}
	if err := c.Blit(0x100, words); err != nil {
		t.Fatal(err)
	}

	st, err := c.WaitBlitDone(time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if st&uapi.StatusBlitDone == 0 {
		t.Fatalf("status %#x lacks blit done", st)
	}

	is, err := c.InterruptStatus()
	if err != nil {
		t.Fatal(err)
	}

	if is != uapi.IntBlitDone {
		t.Fatalf("interrupt status %#x", is)
	}

	for i, w := range words {
		px, err := c.ReadPixel(0x40 + uint32(i))
		if err != nil {
			t.Fatal(err)
		}

		if px != w {
			t.Errorf("pixel %#x = %#x, want %#x", 0x40+i, px, w)
		}
	}
}

func TestWaitBlitDoneTimeout(t *testing.T) {
	c := newClient(t, newSim(t, device.Config{Latency: -1}), hydra.Config{})

	if err := c.Blit(0, []uint32{1}); err != nil {
		t.Fatal(err)
	}

	const timeout = 25 * time.Millisecond

	start := time.Now()
	st, err := c.WaitBlitDone(timeout)
	elapsed := time.Since(start)

	if !errors.Is(err, uapi.ErrTimeout) {
		t.Fatalf("error isn't ErrTimeout: %v", err)
	}

	if st&uapi.StatusBlitBusy == 0 {
		t.Errorf("last status %#x isn't busy", st)
	}

	if elapsed < timeout {
		t.Errorf("gave up after %v < %v", elapsed, timeout)
	}

	if elapsed > 5*time.Second {
		t.Errorf("took %v", elapsed)
	}
}

func TestWaitHugeTimeout(t *testing.T) {
	c := newClient(t, newSim(t, device.Config{Latency: 3}), hydra.Config{})

	if err := c.Blit(0, []uint32{1}); err != nil {
		t.Fatal(err)
	}

	st, err := c.WaitBlitDone(time.Duration(math.MaxInt64))
	if err != nil {
		t.Fatal(err)
	}

	if st&uapi.StatusBlitDone == 0 {
		t.Errorf("status %#x isn't done", st)
	}
}

func TestWaitDefaultBudget(t *testing.T) {
	rec := newRec()
	c := newClient(t, rec, hydra.Config{PollInterval: time.Microsecond})

	if _, err := c.WaitBlitDone(0); !errors.Is(err, uapi.ErrTimeout) {
		t.Fatalf("error isn't ErrTimeout: %v", err)
	}

	if n := len(rec.log); n != 1000 {
		t.Fatalf("%d polls != 1000", n)
	}
}

func TestWaitTransportError(t *testing.T) {
	boom := errors.New("boom")
	rec := newRec()
	c := newClient(t, rec, hydra.Config{})

	rec.readErr = boom

	_, err := c.WaitBlitDone(time.Hour)
	if !errors.Is(err, boom) {
		t.Fatalf("no boom: %v", err)
	}

	if errors.Is(err, uapi.ErrTimeout) {
		t.Fatalf("transport error reported as a timeout: %v", err)
	}
}

func TestSubmitDMA(t *testing.T) {
	req := uapi.DMARequest{Src: 0x1000, Dst: 0x2000, Len: 8}

	t.Run("auto immediate", func(t *testing.T) {
		tr := dmaTransport{newRec()}
		c := newClient(t, tr, hydra.Config{})

		if err := c.SubmitDMA(req); err != nil {
			t.Fatal(err)
		}

		if diff := cmp.Diff([]uapi.DMARequest{req}, tr.dma); diff != "" {
			t.Fatalf("requests differ: %s", diff)
		}

		if len(tr.log) != 0 {
			t.Fatalf("immediate DMA touched registers: %+v", tr.log)
		}
	})

	t.Run("auto polling", func(t *testing.T) {
		rec := newRec()
		rec.regs[uapi.RegDMAStatus] = uapi.DMADone
		c := newClient(t, rec, hydra.Config{})

		if err := c.SubmitDMA(req); err != nil {
			t.Fatal(err)
		}

		want := []access{
			{Write: true, Off: uapi.RegDMASrc, Val: 0x1000},
			{Write: true, Off: uapi.RegDMADst, Val: 0x2000},
			{Write: true, Off: uapi.RegDMALen, Val: 8},
			{Write: true, Off: uapi.RegDMACmd, Val: uapi.DMAStart},
			{Off: uapi.RegDMAStatus},
		}

		if diff := cmp.Diff(want, rec.log); diff != "" {
			t.Fatalf("accesses differ: %s", diff)
		}
	})

	t.Run("polling device", func(t *testing.T) {
		d := newSim(t, device.Config{Latency: 3})
		c := newClient(t, d, hydra.Config{DMA: hydra.DMAPolling})

		if err := c.Write32(0x1004, 0x12345678); err != nil {
			t.Fatal(err)
		}

		if err := c.SubmitDMA(req); err != nil {
			t.Fatal(err)
		}

		v, err := c.Read32(0x2004)
		if err != nil {
			t.Fatal(err)
		}

		if v != 0x12345678 {
			t.Fatalf("DMA destination %#x", v)
		}
	})

	t.Run("polling timeout", func(t *testing.T) {
		d := newSim(t, device.Config{Latency: -1})
		c := newClient(t, d, hydra.Config{DMA: hydra.DMAPolling, DMATimeout: 10 * time.Millisecond})

		if err := c.SubmitDMA(req); !errors.Is(err, uapi.ErrTimeout) {
			t.Fatalf("error isn't ErrTimeout: %v", err)
		}
	})

	t.Run("polling error", func(t *testing.T) {
		rec := newRec()
		rec.regs[uapi.RegDMAStatus] = uapi.DMAError
		c := newClient(t, rec, hydra.Config{})

		if err := c.SubmitDMA(req); !errors.Is(err, uapi.ErrDMA) {
			t.Fatalf("error isn't ErrDMA: %v", err)
		}
	})

	t.Run("immediate without command", func(t *testing.T) {
		_, err := hydra.New(newRec(), hydra.Config{DMA: hydra.DMAImmediate})
		if !errors.Is(err, hydra.ErrConfig) {
			t.Fatalf("error isn't ErrConfig: %v", err)
		}
	})
}

func TestMapped(t *testing.T) {
	mem := mmio.NewMemory(0x1000)
	mem.Store32(uapi.RegID, uapi.ID(uapi.VendorID, uapi.DeviceID))

	m := hydra.NewMapped(mem)
	c := newClient(t, m, hydra.Config{})

	info, err := c.Info()
	if err != nil {
		t.Fatal(err)
	}

	want := uapi.Info{Vendor: uapi.VendorID, Device: uapi.DeviceID, IRQ: -1, BAR0Len: 0x1000}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Fatalf("info differs: %s", diff)
	}

	if c.WindowSize() != 0x1000 {
		t.Fatalf("window size %#x", c.WindowSize())
	}

	if _, err := c.Read32(0x1000); !errors.Is(err, uapi.ErrInvalidOffset) {
		t.Fatalf("error isn't ErrInvalidOffset: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Read32(0); !errors.Is(err, uapi.ErrDeviceUnavailable) {
		t.Fatalf("error isn't ErrDeviceUnavailable: %v", err)
	}
}

func TestExclusive(t *testing.T) {
	boom := errors.New("boom")
	c := newClient(t, newSim(t, device.Config{}), hydra.Config{})

	err := c.Exclusive(func(tx *hydra.Tx) error {
		if err := tx.SetInterruptMask(uapi.IntTest); err != nil {
			return err
		}

		if err := tx.TestInterrupt(); err != nil {
			return err
		}

		st, err := tx.InterruptStatus()
		if err != nil {
			return err
		}

		if st != uapi.IntTest {
			t.Errorf("interrupt status %#x", st)
		}

		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("no boom: %v", err)
	}

	info, err := c.Info()
	if err != nil {
		t.Fatal(err)
	}

	if info.IRQCount != 1 {
		t.Fatalf("irq count %d != 1", info.IRQCount)
	}
}

func TestDial(t *testing.T) {
	c, err := hydra.Dial("sim", hydra.Config{})
	if err != nil {
		t.Fatal(err)
	}

	defer c.Close()

	info, err := c.Info()
	if err != nil {
		t.Fatal(err)
	}

	if info.Vendor != uapi.VendorID || info.Device != uapi.DeviceID {
		t.Fatalf("info %+v", info)
	}

	if _, err := hydra.Dial("carrier-pigeon", hydra.Config{}); !errors.Is(err, hydra.ErrAddress) {
		t.Fatalf("error isn't ErrAddress: %v", err)
	}
}

func TestUnavailableDevice(t *testing.T) {
	d := newSim(t, device.Config{})
	d.Close()

	if _, err := hydra.New(d, hydra.Config{}); !errors.Is(err, uapi.ErrDeviceUnavailable) {
		t.Fatalf("error isn't ErrDeviceUnavailable: %v", err)
	}
}
