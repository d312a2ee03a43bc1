package device

import (
	"log/slog"

	"github.com/c35s/hydra/uapi"
)

func (d *Device) readReg(off uint32) uint32 {
	switch off {
	case uapi.RegID:
		return uapi.ID(d.cfg.Vendor, d.cfg.Device)

	case uapi.RegRev:
		return d.cfg.Revision

	case uapi.RegStatus:
		return d.status()

	case uapi.RegDMAStatus:
		return d.state.dmaStatus

	case uapi.RegIntStatus:
		return d.state.intStatus

	case uapi.RegIntMask:
		return d.state.intMask

	case uapi.RegBlitStatus:
		return d.state.blitStatus

	case uapi.RegBlitFIFOData:
		return uint32(len(d.fifo))

	case uapi.RegBlitPixAddr:
		return d.state.pixAddr

	case uapi.RegBlitPixData:
		if int(d.state.pixAddr) < len(d.pix) {
			return d.pix[d.state.pixAddr]
		}

		return 0

	default:
		return d.bar0.Load32(int(off))
	}
}

func (d *Device) writeReg(off, v uint32) {
	switch off {
	case uapi.RegIntStatus:
		d.state.intStatus = uapi.ClearOnWrite(d.state.intStatus, v)

	case uapi.RegIntMask:
		d.state.intMask = v

	case uapi.RegIRQTest:
		if v&1 != 0 {
			d.raise(uapi.IntTest)
		}

	case uapi.RegCtrl:
		d.writeCtrl(v)

	case uapi.RegDMACmd:
		d.bar0.Store32(int(off), v)
		if v&uapi.DMAStart != 0 {
			d.startDMA()
		}

	case uapi.RegBlitCtrl:
		d.bar0.Store32(int(off), v)
		if v&uapi.BlitCtrlStart != 0 {
			d.startBlit()
		}

	case uapi.RegBlitFIFOData:
		d.pushFIFO(v)

	case uapi.RegBlitPixAddr:
		d.state.pixAddr = v

	case uapi.RegID, uapi.RegRev, uapi.RegStatus, uapi.RegDMAStatus,
		uapi.RegBlitStatus, uapi.RegBlitPixData, uapi.RegHDMICRC:
		// read-only

	default:
		d.bar0.Store32(int(off), v)
	}
}

// status composes RegStatus from the engine states.
func (d *Device) status() uint32 {
	var st uint32

	if d.state.frameDone {
		st |= uapi.StatusFrameDone
	}

	if d.state.dmaStatus&uapi.DMABusy != 0 {
		st |= uapi.StatusDMABusy | uapi.StatusBusy
	}

	if d.state.dmaStatus&uapi.DMADone != 0 {
		st |= uapi.StatusDMADone
	}

	if d.state.blitStatus&uapi.BlitStatusBusy != 0 {
		st |= uapi.StatusBlitBusy | uapi.StatusBusy
	}

	if d.state.blitStatus&uapi.BlitStatusDone != 0 {
		st |= uapi.StatusBlitDone
	}

	return st
}

func (d *Device) writeCtrl(v uint32) {
	if v&uapi.CtrlSoftReset != 0 {
		d.reset()
		return
	}

	if v&uapi.CtrlStartFrame != 0 {
		d.state.frameDone = false
	}

	d.bar0.Store32(uapi.RegCtrl, v&^(uapi.CtrlSoftReset|uapi.CtrlStartFrame))
}

func (d *Device) pushFIFO(v uint32) {
	if len(d.fifo) == cap(d.fifo) {
		slog.Debug("hydra blit FIFO overflow", "depth", cap(d.fifo), "word", v)
		d.state.blitStatus |= uapi.BlitStatusError
		return
	}

	d.fifo = append(d.fifo, v)
}

// advance moves pending engine operations n accesses closer to completion.
func (d *Device) advance(n int) {
	if d.closed {
		return
	}

	if j := &d.state.dma; j.active && j.left >= 0 {
		if j.left -= n; j.left <= 0 {
			d.completeDMA()
		}
	}

	if j := &d.state.blit; j.active && j.left >= 0 {
		if j.left -= n; j.left <= 0 {
			d.completeBlit()
		}
	}
}

func (d *Device) startDMA() {
	if d.state.dma.active {
		return
	}

	d.state.dmaStatus = uapi.DMABusy
	d.state.dma = job{active: true, left: d.cfg.Latency}

	if d.cfg.Latency == 0 {
		d.completeDMA()
	}
}

// completeDMA copies DMA_LEN bytes from DMA_SRC to DMA_DST inside BAR0.
func (d *Device) completeDMA() {
	d.state.dma = job{}

	req := uapi.DMARequest{
		Src: uint64(d.bar0.Load32(uapi.RegDMASrc)),
		Dst: uint64(d.bar0.Load32(uapi.RegDMADst)),
		Len: d.bar0.Load32(uapi.RegDMALen),
	}

	if err := uapi.ValidateDMA(req, uint64(d.bar0.Size())); err != nil {
		slog.Debug("hydra DMA rejected", "src", req.Src, "dst", req.Dst, "len", req.Len, "err", err)
		d.state.dmaStatus = uapi.DMAError
		d.raise(uapi.IntDMAError)
		return
	}

	buf := make([]byte, req.Len)
	if _, err := d.bar0.ReadAt(buf, int64(req.Src)); err != nil {
		d.state.dmaStatus = uapi.DMAError
		d.raise(uapi.IntDMAError)
		return
	}

	if _, err := d.bar0.WriteAt(buf, int64(req.Dst)); err != nil {
		d.state.dmaStatus = uapi.DMAError
		d.raise(uapi.IntDMAError)
		return
	}

	d.state.dmaStatus = uapi.DMADone
	d.raise(uapi.IntDMADone)
}

func (d *Device) startBlit() {
	if d.state.blit.active {
		return
	}

	d.state.blitStatus = uapi.BlitStatusBusy
	d.state.blit = job{active: true, left: d.cfg.Latency}

	if d.cfg.Latency == 0 {
		d.completeBlit()
	}
}

// completeBlit moves BLIT_LEN bytes into pixel RAM at BLIT_DST, either
// from the FIFO or from pixel RAM at BLIT_SRC. Errors still complete the
// blit, with the error bit set alongside done.
func (d *Device) completeBlit() {
	d.state.blit = job{}

	var (
		ctrl = d.bar0.Load32(uapi.RegBlitCtrl)
		src  = d.bar0.Load32(uapi.RegBlitSrc)
		dst  = d.bar0.Load32(uapi.RegBlitDst)
		n    = d.bar0.Load32(uapi.RegBlitLen)
	)

	st := uint32(uapi.BlitStatusDone)
	if !d.blit(ctrl&uapi.BlitCtrlUseFIFO != 0, src, dst, n) {
		st |= uapi.BlitStatusError
	}

	d.state.blitStatus = st
	d.raise(uapi.IntBlitDone)
}

func (d *Device) blit(useFIFO bool, src, dst, n uint32) bool {
	if n%4 != 0 || dst%4 != 0 || src%4 != 0 {
		slog.Debug("hydra blit misaligned", "src", src, "dst", dst, "len", n)
		return false
	}

	var (
		words = int(n / 4)
		di    = int(dst / 4)
	)

	if di+words > len(d.pix) {
		slog.Debug("hydra blit outside pixel RAM", "dst", dst, "len", n)
		return false
	}

	if !useFIFO {
		si := int(src / 4)
		if si+words > len(d.pix) {
			slog.Debug("hydra blit outside pixel RAM", "src", src, "len", n)
			return false
		}

		copy(d.pix[di:di+words], d.pix[si:si+words])
		return true
	}

	ok := true
	if words > len(d.fifo) {
		slog.Debug("hydra blit FIFO underflow", "want", words, "have", len(d.fifo))
		words = len(d.fifo)
		ok = false
	}

	copy(d.pix[di:], d.fifo[:words])
	d.fifo = append(d.fifo[:0], d.fifo[words:]...)

	return ok
}
