// Package remote serves a Hydra device's control interface over a stream
// connection and provides a client transport for it.
//
// Every exchange is one fixed-size little-endian request followed by one
// fixed-size response. See request and response.
package remote

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/c35s/hydra/uapi"
)

// Device is the control interface a Server exposes.
type Device interface {
	Info() (uapi.Info, error)
	Read32(off uint32) (uint32, error)
	Write32(off, v uint32) error
	SubmitDMA(req uapi.DMARequest) error
	ReadBAR1(off uint32) (uint32, error)
}

// request is the wire form of a command. DMA requests carry their length
// in Value and their flags in Flags.
type request struct {
	Op     uint32
	Offset uint32
	Value  uint32
	Flags  uint32
	Src    uint64
	Dst    uint64
}

// response is the wire form of a command's result.
// Info is only meaningful for opInfo.
type response struct {
	Status int32
	Value  uint32
	Info   uapi.Info
}

const (
	opInfo     = 1
	opRead32   = 2
	opWrite32  = 3
	opDMA      = 4
	opReadBAR1 = 5
)

const (
	statusOK            = 0
	statusInvalidOffset = 1
	statusInvalidLength = 2
	statusUnavailable   = 3
	statusTimeout       = 4
	statusDMA           = 5
	statusBadOp         = 6
	statusInternal      = 7
)

var (
	sizeofRequest  = binary.Size(request{})
	sizeofResponse = binary.Size(response{})
)

var le = binary.LittleEndian

var (
	ErrProtocol = errors.New("remote: protocol error")
	ErrAddress  = errors.New("remote: bad address")
)

// statusOf maps an error onto its wire status.
func statusOf(err error) int32 {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, uapi.ErrInvalidOffset):
		return statusInvalidOffset
	case errors.Is(err, uapi.ErrInvalidLength):
		return statusInvalidLength
	case errors.Is(err, uapi.ErrDeviceUnavailable):
		return statusUnavailable
	case errors.Is(err, uapi.ErrTimeout):
		return statusTimeout
	case errors.Is(err, uapi.ErrDMA):
		return statusDMA
	default:
		return statusInternal
	}
}

// errorOf maps a wire status back onto an error.
func errorOf(status int32) error {
	switch status {
	case statusOK:
		return nil
	case statusInvalidOffset:
		return uapi.ErrInvalidOffset
	case statusInvalidLength:
		return uapi.ErrInvalidLength
	case statusUnavailable:
		return uapi.ErrDeviceUnavailable
	case statusTimeout:
		return uapi.ErrTimeout
	case statusDMA:
		return uapi.ErrDMA
	case statusBadOp:
		return fmt.Errorf("%w: unknown op", ErrProtocol)
	default:
		return fmt.Errorf("%w: remote status %d", ErrProtocol, status)
	}
}
