package uapi

import "slices"

// BAR0 register offsets

const (
	RegID      = 0x0000 // [31:16] vendor, [15:0] device (R)
	RegRev     = 0x0004 // [7:0] revision, [15:8] build (R)
	RegCtrl    = 0x0010 // global control (W)
	RegStatus  = 0x0014 // engine status, see Status* (R)
	RegCamX    = 0x0020 // camera position x (RW)
	RegCamY    = 0x0024 // camera position y (RW)
	RegCamZ    = 0x0028 // camera position z (RW)
	RegCamDirX = 0x002c // camera direction x (RW)
	RegCamDirY = 0x0030 // camera direction y (RW)
	RegCamDirZ = 0x0034 // camera direction z (RW)
	RegCamPlnX = 0x0038 // camera plane x (RW)
	RegCamPlnY = 0x003c // camera plane y (RW)
	RegFlags   = 0x0040 // [0] smooth, [1] curv, [2] extra light, [3] diag slice (RW)
	RegSelAct  = 0x0044 // selection active (RW)
	RegSelX    = 0x0048 // selection x (RW)
	RegSelY    = 0x004c // selection y (RW)
	RegSelZ    = 0x0050 // selection z (RW)
	RegFBBase  = 0x0054 // framebuffer base (RW)
	RegFBPitch = 0x0058 // framebuffer stride in bytes (RW)

	RegDMASrc    = 0x0060 // DMA source offset (RW)
	RegDMADst    = 0x0064 // DMA destination offset (RW)
	RegDMALen    = 0x0068 // DMA length in bytes (RW)
	RegDMACmd    = 0x006c // [0] start (W)
	RegDMAStatus = 0x0070 // see DMA* (R)

	RegIntStatus = 0x0080 // interrupt causes, write 1 to clear (RW1C)
	RegIntMask   = 0x0084 // interrupt enable mask (RW)
	RegIRQTest   = 0x0088 // [0] raise IntTest (W)

	RegDbgAddr   = 0x00a0 // debug address (RW)
	RegDbgDataLo = 0x00a4 // debug data, low word (RW)
	RegDbgDataHi = 0x00a8 // debug data, high word (RW)
	RegDbgCtrl   = 0x00ac // [0] write pulse (RW)
	RegHDMICRC   = 0x00b0 // last scanned-out frame CRC (R)

	RegBlitCtrl   = 0x0100 // see BlitCtrl* (W)
	RegBlitStatus = 0x0104 // see BlitStatus* (R)
	RegBlitSrc    = 0x0108 // blit source byte address in pixel RAM (RW)
	RegBlitDst    = 0x010c // blit destination byte address in pixel RAM (RW)
	RegBlitLen    = 0x0110 // blit length in bytes (RW)
	RegBlitStride = 0x0114 // blit stride in bytes (RW)

	RegBlitFIFOData = 0x0140 // blit FIFO push port (W)
	RegBlitPixAddr  = 0x0144 // pixel RAM word index for readback (RW)
	RegBlitPixData  = 0x0148 // pixel RAM word at RegBlitPixAddr (R)
)

// BAR0Size is the size of the BAR0 register window in bytes.
const BAR0Size = 0x10000

const (
	VendorID = 0x1bad
	DeviceID = 0x2024
)

// RegCtrl bits

const (
	CtrlSoftReset  = 1 << 0
	CtrlStartFrame = 1 << 1
	CtrlDiagSlice  = 1 << 2
	CtrlExtraLight = 1 << 3
)

// RegStatus bits

const (
	StatusBusy      = 1 << 0 // any engine is busy
	StatusFrameDone = 1 << 1
	StatusDMABusy   = 1 << 2
	StatusDMADone   = 1 << 3
	StatusBlitBusy  = 1 << 4
	StatusBlitDone  = 1 << 5
)

// RegDMACmd and RegDMAStatus bits

const (
	DMAStart = 1 << 0

	DMADone  = 1 << 0
	DMABusy  = 1 << 1
	DMAError = 1 << 2
)

// RegIntStatus and RegIntMask bits

const (
	IntFrameDone = 1 << 0
	IntDMADone   = 1 << 1
	IntDMAError  = 1 << 2
	IntTest      = 1 << 3
	IntBlitDone  = 1 << 4

	IntAll = IntFrameDone | IntDMADone | IntDMAError | IntTest | IntBlitDone
)

// RegBlitCtrl and RegBlitStatus bits

const (
	BlitCtrlStart   = 1 << 0
	BlitCtrlUseFIFO = 1 << 2

	BlitStatusDone  = 1 << 0
	BlitStatusBusy  = 1 << 1
	BlitStatusError = 1 << 2
)

// Kind is the access semantics of a register.
type Kind int

const (
	KindRW      Kind = iota // plain read/write storage
	KindRO                  // read-only, writes are ignored by hardware
	KindRW1C                // write one to clear
	KindTrigger             // write starts an operation
	KindFIFO                // push port
)

var kindNames = [...]string{
	KindRW:      "rw",
	KindRO:      "ro",
	KindRW1C:    "rw1c",
	KindTrigger: "trigger",
	KindFIFO:    "fifo",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}

	return kindNames[k]
}

var kinds = map[uint32]Kind{
	RegID:           KindRO,
	RegRev:          KindRO,
	RegCtrl:         KindTrigger,
	RegStatus:       KindRO,
	RegDMACmd:       KindTrigger,
	RegDMAStatus:    KindRO,
	RegIntStatus:    KindRW1C,
	RegIRQTest:      KindTrigger,
	RegHDMICRC:      KindRO,
	RegBlitCtrl:     KindTrigger,
	RegBlitStatus:   KindRO,
	RegBlitFIFOData: KindFIFO,
	RegBlitPixData:  KindRO,
}

// KindOf returns the access semantics of the register at off.
// Offsets without special semantics are plain read/write storage.
func KindOf(off uint32) Kind {
	if k, ok := kinds[off]; ok {
		return k
	}

	return KindRW
}

// ID packs a vendor and device id the way RegID reports them.
func ID(vendor, device uint16) uint32 {
	return uint32(vendor)<<16 | uint32(device)
}

var regNames = map[uint32]string{
	RegID:           "ID",
	RegRev:          "REV",
	RegCtrl:         "CTRL",
	RegStatus:       "STATUS",
	RegCamX:         "CAM_X",
	RegCamY:         "CAM_Y",
	RegCamZ:         "CAM_Z",
	RegCamDirX:      "CAM_DIR_X",
	RegCamDirY:      "CAM_DIR_Y",
	RegCamDirZ:      "CAM_DIR_Z",
	RegCamPlnX:      "CAM_PLANE_X",
	RegCamPlnY:      "CAM_PLANE_Y",
	RegFlags:        "FLAGS",
	RegSelAct:       "SEL_ACTIVE",
	RegSelX:         "SEL_X",
	RegSelY:         "SEL_Y",
	RegSelZ:         "SEL_Z",
	RegFBBase:       "FB_BASE",
	RegFBPitch:      "FB_PITCH",
	RegDMASrc:       "DMA_SRC",
	RegDMADst:       "DMA_DST",
	RegDMALen:       "DMA_LEN",
	RegDMACmd:       "DMA_CMD",
	RegDMAStatus:    "DMA_STATUS",
	RegIntStatus:    "INT_STATUS",
	RegIntMask:      "INT_MASK",
	RegIRQTest:      "IRQ_TEST",
	RegDbgAddr:      "DBG_ADDR",
	RegDbgDataLo:    "DBG_DATA_LO",
	RegDbgDataHi:    "DBG_DATA_HI",
	RegDbgCtrl:      "DBG_CTRL",
	RegHDMICRC:      "HDMI_CRC",
	RegBlitCtrl:     "BLIT_CTRL",
	RegBlitStatus:   "BLIT_STATUS",
	RegBlitSrc:      "BLIT_SRC",
	RegBlitDst:      "BLIT_DST",
	RegBlitLen:      "BLIT_LEN",
	RegBlitStride:   "BLIT_STRIDE",
	RegBlitFIFOData: "BLIT_FIFO_DATA",
	RegBlitPixAddr:  "BLIT_PIX_ADDR",
	RegBlitPixData:  "BLIT_PIX_DATA",
}

// RegName returns the name of the register at off, like INT_STATUS, or ""
// if off isn't in the register map.
func RegName(off uint32) string {
	return regNames[off]
}

// Regs returns the offsets of every register in the map, in order.
func Regs() []uint32 {
	offs := make([]uint32, 0, len(regNames))
	for off := range regNames {
		offs = append(offs, off)
	}

	slices.Sort(offs)
	return offs
}
