package uapi

import "unsafe"

// IoctlMagic is the ioctl type byte of the Hydra character device.
const IoctlMagic = 'h'

// ioctl request codes

var (
	IoctlInfo = ior(IoctlMagic, 0x00, unsafe.Sizeof(DriverInfo{}))
	IoctlRd32 = iowr(IoctlMagic, 0x01, unsafe.Sizeof(RegRW{}))
	IoctlWr32 = iow(IoctlMagic, 0x02, unsafe.Sizeof(RegRW{}))
	IoctlDMA  = iow(IoctlMagic, 0x03, unsafe.Sizeof(DMARequest{}))
)

// DevicePath is where the Linux driver creates its character device.
const DevicePath = "/dev/hydra_pcie"

const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNRShift
}

func ior(typ, nr, size uintptr) uintptr  { return ioc(iocRead, typ, nr, size) }
func iow(typ, nr, size uintptr) uintptr  { return ioc(iocWrite, typ, nr, size) }
func iowr(typ, nr, size uintptr) uintptr { return ioc(iocRead|iocWrite, typ, nr, size) }
