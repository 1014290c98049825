package tcc

import (
	"sync"
	"time"
)

// Fan and secondary heater operating modes as reported on the wire.
const (
	ModeManual = 0
	ModeAuto   = 1
	ModeOff    = 2
)

// StepsPerDegree is the rotator gearing: wire positions are in motor
// steps, 200 steps per degree.
const StepsPerDegree = 200

// The focuser reports moving while set and actual positions differ by
// more than this many steps. The rotator has no tolerance at all: any
// difference between set and actual degrees counts as moving.
const focuserMovingTolerance = 5

type FocuserState struct {
	SetPosition    int // steps
	ActualPosition int // steps
	Moving         bool
	Homed          bool
}

type RotatorState struct {
	SetPosition    float64 // degrees
	ActualPosition float64 // degrees
	Moving         bool
	Homed          bool
}

// TemperatureState carries the four probe readings in device-native
// Fahrenheit. Conversion to Celsius happens at the client surface.
type TemperatureState struct {
	AmbientF     float64
	PrimaryF     float64
	SecondaryF   float64
	ElectronicsF float64
}

type FanState struct {
	Mode     int
	Speed    int     // percent
	Gain     float64 // 0.1 .. 10.0
	Deadband float64 // 0.0 .. 10.0
}

type HeaterState struct {
	Mode     int
	Power    int     // percent
	Setpoint float64 // °C, -10 .. 10
}

type DewState struct {
	Power1 int // percent
	Power2 int // percent
}

// Snapshot is a copy of every telemetry field taken under one lock.
// Fields are committed one telemetry frame at a time, so two fields in
// the same snapshot may come from different frames.
type Snapshot struct {
	Focuser     FocuserState
	Rotator     RotatorState
	Temperature TemperatureState
	Fan         FanState
	Heater      HeaterState
	Dew         DewState
	PingOK      bool
	Firmware    string
}

// RawToken is a diagnostics record of a wire token the dispatch table
// did not recognize. The raw log is never read by dispatch logic.
type RawToken struct {
	Key   string
	Value string
	Time  time.Time
}

const rawLogSize = 128

// state is the telemetry store. The background dispatch goroutine is
// the sole telemetry writer; command methods make optimistic writes
// under the same lock.
type state struct {
	mu     sync.Mutex
	snap   Snapshot
	rawLog []RawToken
}

func newState() *state {
	return &state{
		snap: Snapshot{
			Fan:    FanState{Mode: ModeOff, Gain: 1.0, Deadband: 1.0},
			Heater: HeaterState{Mode: ModeOff},
		},
	}
}

func (s *state) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *state) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
}

// logRaw appends to the bounded diagnostics log, evicting the oldest
// record when full.
func (s *state) logRaw(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rawLog) >= rawLogSize {
		s.rawLog = s.rawLog[1:]
	}
	s.rawLog = append(s.rawLog, RawToken{Key: key, Value: value, Time: time.Now()})
}

func (s *state) rawTokens() []RawToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RawToken, len(s.rawLog))
	copy(out, s.rawLog)
	return out
}

func focuserMoving(set, actual int) bool {
	d := set - actual
	if d < 0 {
		d = -d
	}
	return d > focuserMovingTolerance
}

func rotatorMoving(set, actual float64) bool {
	return set != actual
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
