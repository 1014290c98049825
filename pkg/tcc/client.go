package tcc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ConnState is the client's connection state. Transitions are driven
// solely by Open and Close, except Open→Faulted on an unrecoverable
// I/O error seen by the background loop. There is no autonomous
// reconnection: a faulted client must be explicitly reopened.
type ConnState int

const (
	StateClosed ConnState = iota
	StateOpening
	StateOpen
	StateClosing
	StateFaulted
)

func (s ConnState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateFaulted:
		return "faulted"
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

const (
	// idleDelay paces the read loop when a read times out with no
	// data, so it never spins.
	idleDelay = 20 * time.Millisecond

	// retryBackoff is applied after a recoverable read error.
	retryBackoff = 250 * time.Millisecond

	// closeWait bounds how long Close waits for the read loop to
	// observe cancellation before the port is closed underneath it.
	closeWait = 2 * time.Second
)

// Client is the TCC protocol client: it owns the transport, runs the
// background read/tokenize/dispatch loop, and exposes the query and
// command surface. Construct one per connection and pass it by
// reference; there is no shared instance.
type Client struct {
	cfg    Config
	logger log.FieldLogger
	state  *state

	mu     sync.Mutex
	conn   ConnState
	tr     *transport
	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(cfg Config, logger log.FieldLogger) *Client {
	return &Client{
		cfg:    cfg.withDefaults(),
		logger: logger.WithField("component", "tcc"),
		state:  newState(),
	}
}

// Open attaches the client to an already-acquired port and starts the
// background reader. The port is owned by the client from here on and
// closed by Close.
func (c *Client) Open(port Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.conn {
	case StateClosed, StateFaulted:
	default:
		return fmt.Errorf("%w: open while %s", ErrConnection, c.conn)
	}

	c.conn = StateOpening
	c.tr = newTransport(port)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.tr, c.done)

	c.conn = StateOpen
	c.logger.Info("connected")

	// Ask for an initial telemetry frame and the firmware version.
	// Best effort: the frame lands through the background dispatch.
	if err := c.tr.write(cmdStatus); err != nil {
		c.logger.Debugf("initial status request failed: %v", err)
	}

	return nil
}

// Close signals the background loop, waits a bounded interval for it
// to stop, then closes the port. Closing an already-closed client is a
// no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.conn != StateOpen && c.conn != StateFaulted {
		c.mu.Unlock()
		return nil
	}
	c.conn = StateClosing
	cancel, done, tr := c.cancel, c.done, c.tr
	c.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(closeWait):
		c.logger.Warn("read loop did not stop in time")
	}

	err := tr.close()

	c.mu.Lock()
	c.conn = StateClosed
	c.tr = nil
	c.cancel = nil
	c.mu.Unlock()

	c.logger.Info("disconnected")
	return err
}

// ConnectionState reports the current lifecycle state.
func (c *Client) ConnectionState() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// run is the single background task. It performs every read, all
// tokenization, and all dispatch, making it the only telemetry writer.
// It exits only on cancellation or an unrecoverable transport error.
func (c *Client) run(ctx context.Context, tr *transport, done chan struct{}) {
	defer close(done)

	var tk tokenizer
	buf := make([]byte, 256)

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := tr.read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				c.fault(err)
				return
			}
			c.logger.Debugf("read error: %v", err)
			if !sleepCtx(ctx, retryBackoff) {
				return
			}
			continue
		}

		if n == 0 {
			// no data yet
			if !sleepCtx(ctx, idleDelay) {
				return
			}
			continue
		}

		tk.feed(buf[:n])
		for {
			ev, ok := tk.next()
			if !ok {
				break
			}
			c.dispatch(ev)
		}
	}
}

func (c *Client) fault(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == StateOpen {
		c.conn = StateFaulted
		c.logger.Errorf("unrecoverable transport error: %v", err)
	}
}

// write sends one frame through the serialized transport.
func (c *Client) write(frame string) error {
	c.mu.Lock()
	tr, conn := c.tr, c.conn
	c.mu.Unlock()

	if tr == nil || conn != StateOpen {
		return ErrNotConnected
	}
	return tr.write(frame)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Temperatures are the probe readings converted to public Celsius.
type Temperatures struct {
	AmbientC     float64
	PrimaryC     float64
	SecondaryC   float64
	ElectronicsC float64
}

// Snapshot copies every state field under one critical section, for
// callers that need a consistent multi-field view. Individual fields
// may still come from different telemetry frames.
func (c *Client) Snapshot() Snapshot {
	return c.state.snapshot()
}

// RawTokens returns the diagnostics log of unrecognized wire tokens.
func (c *Client) RawTokens() []RawToken {
	return c.state.rawTokens()
}

// PingOK reports whether an acknowledgement has arrived since the
// last Ping.
func (c *Client) PingOK() bool {
	return c.state.snapshot().PingOK
}

// Firmware returns the controller's reported firmware version.
func (c *Client) Firmware() string {
	return c.state.snapshot().Firmware
}

// The query methods below write a status request and return the
// current store fields. Freshness is best effort, bounded by the next
// dispatch cycle; they never block waiting for the reply.

func (c *Client) FocuserStatus() (FocuserState, error) {
	if err := c.RequestStatus(); err != nil {
		return FocuserState{}, err
	}
	return c.state.snapshot().Focuser, nil
}

func (c *Client) RotatorStatus() (RotatorState, error) {
	if err := c.RequestStatus(); err != nil {
		return RotatorState{}, err
	}
	return c.state.snapshot().Rotator, nil
}

func (c *Client) FanStatus() (FanState, error) {
	if err := c.RequestStatus(); err != nil {
		return FanState{}, err
	}
	return c.state.snapshot().Fan, nil
}

func (c *Client) HeaterStatus() (HeaterState, error) {
	if err := c.RequestStatus(); err != nil {
		return HeaterState{}, err
	}
	return c.state.snapshot().Heater, nil
}

func (c *Client) DewStatus() (DewState, error) {
	if err := c.RequestStatus(); err != nil {
		return DewState{}, err
	}
	return c.state.snapshot().Dew, nil
}

// Temperatures converts the device-native Fahrenheit readings to
// Celsius. This is the only place that conversion happens; the store
// keeps wire units.
func (c *Client) Temperatures() (Temperatures, error) {
	if err := c.RequestStatus(); err != nil {
		return Temperatures{}, err
	}

	t := c.state.snapshot().Temperature
	return Temperatures{
		AmbientC:     fahrenheitToCelsius(t.AmbientF),
		PrimaryC:     fahrenheitToCelsius(t.PrimaryF),
		SecondaryC:   fahrenheitToCelsius(t.SecondaryF),
		ElectronicsC: fahrenheitToCelsius(t.ElectronicsF),
	}, nil
}

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}
