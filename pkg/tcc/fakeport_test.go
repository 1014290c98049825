package tcc

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// fakePort is an in-memory Port. Telemetry is fed through a channel;
// host writes accumulate in a buffer. Read mimics a serial port with a
// read timeout: (0, nil) when nothing arrives in time.
type fakePort struct {
	mu     sync.Mutex
	wr     bytes.Buffer
	rd     chan []byte
	pend   []byte
	closed bool
	once   sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{rd: make(chan []byte, 64)}
}

func (p *fakePort) feed(s string) {
	p.rd <- []byte(s)
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.pend) > 0 {
		n := copy(b, p.pend)
		p.pend = p.pend[n:]
		p.mu.Unlock()
		return n, nil
	}
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return 0, io.EOF
	}

	select {
	case data, ok := <-p.rd:
		if !ok {
			return 0, io.EOF
		}
		n := copy(b, data)
		if n < len(data) {
			p.mu.Lock()
			p.pend = append(p.pend, data[n:]...)
			p.mu.Unlock()
		}
		return n, nil
	case <-time.After(10 * time.Millisecond):
		return 0, nil
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.ErrClosedPipe
	}
	return p.wr.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.once.Do(func() { close(p.rd) })
	return nil
}

func (p *fakePort) written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wr.String()
}

func (p *fakePort) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wr.Reset()
}
