package tcc

import (
	"fmt"
	"io"
	"sync"
	"time"

	serial "go.bug.st/serial"
)

const (
	baudRate    = 9600
	readTimeout = 250 * time.Millisecond
)

// XON/XOFF control bytes. The TCC runs software flow control on the
// line; the serial library has no mode knob for it, so the transport
// strips the control bytes from the inbound stream itself.
const (
	xonByte  = 0x11
	xoffByte = 0x13
)

// Port is the byte channel to the controller. A real serial port, or
// an in-memory pipe in tests and the simulator. Read must return
// (0, nil) on timeout rather than blocking indefinitely.
type Port interface {
	io.ReadWriteCloser
}

// OpenSerial opens the named serial port with the TCC's fixed line
// settings: 9600 baud, 8 data bits, no parity, one stop bit.
func OpenSerial(name string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", ErrConnection, name, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: cannot set read timeout on %s: %v", ErrConnection, name, err)
	}

	return port, nil
}

// transport owns the open port. Writes are serialized under one mutex
// so two commands never interleave partial bytes on the wire.
type transport struct {
	mu   sync.Mutex
	port Port
	open bool
}

func newTransport(port Port) *transport {
	return &transport{port: port, open: true}
}

// write sends one complete frame.
func (t *transport) write(s string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open {
		return ErrNotConnected
	}
	if _, err := t.port.Write([]byte(s)); err != nil {
		return fmt.Errorf("%w: write failed: %v", ErrConnection, err)
	}
	return nil
}

// read fills buf with inbound bytes, dropping XON/XOFF control bytes.
// Returns 0 on timeout, which the caller treats as "no data yet".
func (t *transport) read(buf []byte) (int, error) {
	n, err := t.port.Read(buf)
	if err != nil {
		return 0, err
	}

	k := 0
	for _, b := range buf[:n] {
		if b == xonByte || b == xoffByte {
			continue
		}
		buf[k] = b
		k++
	}
	return k, nil
}

// close is idempotent.
func (t *transport) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open {
		return nil
	}
	t.open = false
	return t.port.Close()
}
