// Package hydra is a client library for the Hydra accelerator's register
// interface. A Client issues validated register accesses over a Transport
// and composes them into DMA and blitter operations.
package hydra

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/c35s/hydra/uapi"
)

// Transport carries register accesses to a device.
// Implementations validate offsets against their own window.
type Transport interface {
	Info() (uapi.Info, error)
	Read32(off uint32) (uint32, error)
	Write32(off, v uint32) error
	Close() error
}

// DMASubmitter is implemented by transports whose driver executes a
// whole DMA request itself, completing it before SubmitDMA returns.
type DMASubmitter interface {
	SubmitDMA(req uapi.DMARequest) error
}

// DMAMode selects how Client.SubmitDMA runs a request.
type DMAMode int

const (
	// DMAAuto uses the transport's DMA command if it has one and polls
	// otherwise.
	DMAAuto DMAMode = iota

	// DMAImmediate hands the request to the transport's DMA command.
	DMAImmediate

	// DMAPolling programs the DMA registers, writes the trigger, and polls
	// DMA_STATUS until the engine reports done or error.
	DMAPolling
)

func (m DMAMode) String() string {
	switch m {
	case DMAAuto:
		return "auto"
	case DMAImmediate:
		return "immediate"
	case DMAPolling:
		return "polling"
	default:
		return fmt.Sprintf("DMAMode(%d)", int(m))
	}
}

// Config configures a Client.
type Config struct {

	// PollInterval is the sleep between status polls.
	// If PollInterval is 0, the client polls every millisecond.
	PollInterval time.Duration

	// DMA selects the DMA execution model.
	DMA DMAMode

	// DMATimeout bounds the wait for a polled DMA.
	// If DMATimeout is 0, the client waits up to a second.
	DMATimeout time.Duration
}

const (
	PollIntervalDefault = time.Millisecond
	DMATimeoutDefault   = time.Second

	// pollLoopsDefault is the number of polls used for a non-positive timeout.
	pollLoopsDefault = 1000

	// pollLoopsMax bounds the polls for huge timeouts.
	pollLoopsMax = math.MaxInt32
)

var (
	ErrConfig  = errors.New("hydra: invalid config")
	ErrAddress = errors.New("hydra: bad device address")
)

// Client is an opened device. Every method is a single logical operation:
// multi-register sequences are never interleaved with other callers' accesses
// through the same Client.
type Client struct {
	t    Transport
	cfg  Config
	size uint64 // BAR0 window size

	mu sync.Mutex
}

// New creates a client for the device behind t.
// It queries the device once to learn the size of its register window.
func New(t Transport, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if _, ok := t.(DMASubmitter); cfg.DMA == DMAImmediate && !ok {
		return nil, fmt.Errorf("%w: %T has no DMA command", ErrConfig, t)
	}

	info, err := t.Info()
	if err != nil {
		return nil, err
	}

	size := info.BAR0Len
	if size == 0 {
		size = uapi.BAR0Size
	}

	c := Client{
		t:    t,
		cfg:  cfg,
		size: size,
	}

	return &c, nil
}

// Info queries the device's identity and interrupt count.
func (c *Client) Info() (uapi.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t.Info()
}

// WindowSize returns the size of the device's register window in bytes.
func (c *Client) WindowSize() uint64 {
	return c.size
}

// Exclusive calls fn with a Tx that has sole use of the client until fn
// returns. The Tx must not be used after that.
func (c *Client) Exclusive(fn func(tx *Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return fn(c.tx())
}

// Close closes the transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t.Close()
}

func (c *Client) tx() *Tx {
	return &Tx{c: c}
}

func (c Config) validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("negative poll interval: %v", c.PollInterval)
	}

	if c.DMATimeout < 0 {
		return fmt.Errorf("negative DMA timeout: %v", c.DMATimeout)
	}

	if c.DMA < DMAAuto || c.DMA > DMAPolling {
		return fmt.Errorf("unknown DMA mode: %v", c.DMA)
	}

	return nil
}

func (c Config) withDefaults() Config {
	if c.PollInterval == 0 {
		c.PollInterval = PollIntervalDefault
	}

	if c.DMATimeout == 0 {
		c.DMATimeout = DMATimeoutDefault
	}

	return c
}
