// Package script runs Lua bring-up scripts against a Hydra device.
//
// Scripts see these functions:
//
//	rd32(off)          read a register
//	wr32(off, v)       write a register
//	fifo(word)         push a word onto the blit FIFO
//	kick(dst, len)     start a FIFO blit of len bytes to dst
//	wait_blit([ms])    wait for blit done; returns the status and whether it was set
//	dma(src, dst, len) run a DMA request
//	info()             the device info as a table
//	pixel(i)           read pixel RAM word i
//	log(...)           log a message
//
// The table reg maps register names like INT_STATUS to offsets.
package script

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/c35s/hydra/hydra"
	"github.com/c35s/hydra/uapi"
	lua "github.com/yuin/gopher-lua"
)

// Error is a failed script run. It wraps the Lua error and, if a device
// operation failed, the device error.
type Error struct {
	Lua error
	Err error
}

func (e *Error) Error() string {
	return "script: " + e.Lua.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Lua}
	}

	return []error{e.Lua, e.Err}
}

// WaitDefault is how long wait_blit waits when no timeout is given.
const WaitDefault = 100 * time.Millisecond

// waitMax is the longest wait_blit timeout in milliseconds.
const waitMax = math.MaxInt64 / int64(time.Millisecond)

// Run runs the script src against c.
func Run(c *hydra.Client, src string) error {
	return run(c, func(L *lua.LState) error {
		return L.DoString(src)
	})
}

// RunFile runs the script at path against c.
func RunFile(c *hydra.Client, path string) error {
	return run(c, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

func run(c *hydra.Client, do func(L *lua.LState) error) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	e := env{c: c}
	e.install(L)

	if err := do(L); err != nil {
		return &Error{Lua: err, Err: e.err}
	}

	return nil
}

// env binds the script functions to a client.
type env struct {
	c   *hydra.Client
	err error // last device error
}

func (e *env) install(L *lua.LState) {
	for name, fn := range map[string]lua.LGFunction{
		"rd32":      e.rd32,
		"wr32":      e.wr32,
		"fifo":      e.fifo,
		"kick":      e.kick,
		"wait_blit": e.waitBlit,
		"dma":       e.dma,
		"info":      e.info,
		"pixel":     e.pixel,
		"log":       e.log,
	} {
		L.SetGlobal(name, L.NewFunction(fn))
	}

	t := L.NewTable()
	for _, off := range uapi.Regs() {
		t.RawSetString(uapi.RegName(off), lua.LNumber(off))
	}

	L.SetGlobal("reg", t)
}

// fail raises err as a Lua error.
func (e *env) fail(L *lua.LState, err error) int {
	e.err = err
	L.RaiseError("%v", err)
	return 0
}

func (e *env) rd32(L *lua.LState) int {
	v, err := e.c.Read32(checkU32(L, 1))
	if err != nil {
		return e.fail(L, err)
	}

	L.Push(lua.LNumber(v))
	return 1
}

func (e *env) wr32(L *lua.LState) int {
	if err := e.c.Write32(checkU32(L, 1), checkU32(L, 2)); err != nil {
		return e.fail(L, err)
	}

	return 0
}

func (e *env) fifo(L *lua.LState) int {
	if err := e.c.PushFIFO(checkU32(L, 1)); err != nil {
		return e.fail(L, err)
	}

	return 0
}

func (e *env) kick(L *lua.LState) int {
	if err := e.c.KickBlit(checkU32(L, 1), checkU32(L, 2)); err != nil {
		return e.fail(L, err)
	}

	return 0
}

func (e *env) waitBlit(L *lua.LState) int {
	timeout := WaitDefault
	if L.GetTop() >= 1 {
		ms := float64(L.CheckNumber(1))
		if ms < 0 || ms > float64(waitMax) {
			L.ArgError(1, fmt.Sprintf("timeout %v ms is out of range [0, %d]", ms, waitMax))
		}

		timeout = time.Duration(ms) * time.Millisecond
	}

	st, err := e.c.WaitBlitDone(timeout)
	if err != nil && !errors.Is(err, uapi.ErrTimeout) {
		return e.fail(L, err)
	}

	L.Push(lua.LNumber(st))
	L.Push(lua.LBool(err == nil))
	return 2
}

func (e *env) dma(L *lua.LState) int {
	req := uapi.DMARequest{
		Src: uint64(checkU32(L, 1)),
		Dst: uint64(checkU32(L, 2)),
		Len: checkU32(L, 3),
	}

	if err := e.c.SubmitDMA(req); err != nil {
		return e.fail(L, err)
	}

	return 0
}

func (e *env) info(L *lua.LState) int {
	info, err := e.c.Info()
	if err != nil {
		return e.fail(L, err)
	}

	t := L.NewTable()
	t.RawSetString("vendor", lua.LNumber(info.Vendor))
	t.RawSetString("device", lua.LNumber(info.Device))
	t.RawSetString("irq", lua.LNumber(info.IRQ))
	t.RawSetString("bar0_base", lua.LNumber(info.BAR0Start))
	t.RawSetString("bar0_len", lua.LNumber(info.BAR0Len))
	t.RawSetString("bar1_base", lua.LNumber(info.BAR1Start))
	t.RawSetString("bar1_len", lua.LNumber(info.BAR1Len))
	t.RawSetString("irq_count", lua.LNumber(info.IRQCount))

	L.Push(t)
	return 1
}

func (e *env) pixel(L *lua.LState) int {
	v, err := e.c.ReadPixel(checkU32(L, 1))
	if err != nil {
		return e.fail(L, err)
	}

	L.Push(lua.LNumber(v))
	return 1
}

func (e *env) log(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}

	slog.Info("script: log", "msg", strings.Join(parts, " "))
	return 0
}

// checkU32 returns argument n, which must be an integer in uint32 range.
func checkU32(L *lua.LState, n int) uint32 {
	v := float64(L.CheckNumber(n))
	if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
		L.ArgError(n, fmt.Sprintf("%v is not a 32-bit value", v))
	}

	return uint32(v)
}
