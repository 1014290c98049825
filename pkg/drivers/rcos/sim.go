package rcos

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SimulatorPort is the port name that selects the built-in simulator
// instead of a real serial device.
const SimulatorPort = "simulator"

const simFirmware = "9.9-sim"

// Simulator is an in-memory TCC that speaks the wire protocol over a
// loopback port. Motions complete instantly; telemetry is emitted in
// reply to the status request. It stands in for real hardware in
// tests and in the default out-of-the-box configuration.
type Simulator struct {
	logger log.FieldLogger

	mu     sync.Mutex
	in     []byte // partial host command bytes
	out    []byte // pending device->host bytes
	closed bool

	focusPos int // steps
	rotPos   int // steps
	homed    bool

	tempsHF [4]float64 // hundredths of °F: ambient, primary, secondary, electronics

	fanMode     int
	fanSpeed    int
	fanGain     int // tenths
	fanDeadband int // tenths

	heaterMode     int
	heaterPower    int
	heaterSetpoint int // tenths of °C

	dew1, dew2 int
}

func NewSimulator(logger log.FieldLogger) *Simulator {
	return &Simulator{
		logger:  logger.WithField("component", "simulator"),
		homed:   true,
		tempsHF: [4]float64{4550, 4320, 4410, 7150},
		fanGain: 10,
	}
}

// Read hands pending device bytes to the host, mimicking a serial
// port with a read timeout: (0, nil) when nothing is pending.
func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, io.EOF
	}
	if len(s.out) > 0 {
		n := copy(p, s.out)
		s.out = s.out[n:]
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	return 0, nil
}

// Write consumes host command bytes. Commands may arrive fragmented;
// only complete space-terminated verbs are executed.
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}

	s.in = append(s.in, p...)
	for {
		i := bytes.IndexByte(s.in, ' ')
		if i < 0 {
			break
		}
		verb := string(s.in[:i])
		s.in = s.in[i+1:]
		if verb != "" {
			s.execute(verb)
		}
	}
	return len(p), nil
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// execute applies one host verb to the simulated instrument state.
// Unknown verbs are ignored, like real firmware.
func (s *Simulator) execute(verb string) {
	arg := func() int {
		n, _ := strconv.Atoi(verb[1:])
		return n
	}

	switch verb[0] {
	case '?':
		s.emitStatus()
	case '!':
		s.emit("! ")
	case 'y':
		s.fanSpeed = arg()
		s.fanMode = 0
	case 'n':
		s.fanMode = arg()
		if s.fanMode == 2 {
			s.fanSpeed = 0
		}
	case 'g':
		s.fanGain = arg()
	case 'O':
		s.fanDeadband = arg()
	case 'P':
		s.heaterSetpoint = arg()
	case 'c':
		s.dew1 = arg()
	case 'k':
		s.dew2 = arg()
	case '+':
		// temperature compensation mode, not reported back
	case 'm':
		s.focusPos += arg()
	case 'M':
		s.rotPos += arg()
	default:
		s.logger.Debugf("ignoring unknown verb %q", verb)
	}
}

func (s *Simulator) emit(frame string) {
	s.out = append(s.out, frame...)
}

func homedFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// emitStatus writes a full telemetry frame.
func (s *Simulator) emitStatus() {
	s.emit(fmt.Sprintf(":s %d :a %d :h %d ", s.focusPos, s.focusPos, homedFlag(s.homed)))
	s.emit(fmt.Sprintf(":t1 %d :t2 %d :t3 %d :t7 %d ",
		int(s.tempsHF[0]), int(s.tempsHF[1]), int(s.tempsHF[2]), int(s.tempsHF[3])))
	s.emit(fmt.Sprintf(":fm %d :fs %d :fg %d :ft %d ", s.fanMode, s.fanSpeed, s.fanGain, s.fanDeadband))
	s.emit(fmt.Sprintf(":sm %d :ss %d :st %d ", s.heaterMode, s.heaterPower, s.heaterSetpoint))
	s.emit(fmt.Sprintf(":d1 %d :d2 %d ", s.dew1, s.dew2))
	s.emit(fmt.Sprintf(":rs %d :rt %d :rh %d ", s.rotPos, s.rotPos, homedFlag(s.homed)))
	s.emit(fmt.Sprintf(":vr %s ", simFirmware))
}
