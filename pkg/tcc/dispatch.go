package tcc

import "strconv"

// handler commits one decoded wire value to the state store. A value
// that fails to parse leaves the previous field value in place.
type handler func(s *state, value string)

// handlers is the dispatch table: exactly one handler per recognized
// key. Scales follow the wire protocol: temperatures arrive in
// hundredths of a degree Fahrenheit, heater setpoint and fan
// gain/deadband in tenths, rotator positions in steps at 200 steps per
// degree. Out-of-range values are clamped, never rejected.
var handlers = map[string]handler{
	// Focuser
	"s": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) {
			snap.Focuser.SetPosition = n
			snap.Focuser.Moving = focuserMoving(n, snap.Focuser.ActualPosition)
		})
	},
	"a": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) {
			snap.Focuser.ActualPosition = n
			snap.Focuser.Moving = focuserMoving(snap.Focuser.SetPosition, n)
		})
	},
	"h": func(s *state, v string) {
		s.update(func(snap *Snapshot) { snap.Focuser.Homed = v == "1" })
	},

	// Temperatures, hundredths of °F
	"t1": tempHandler(func(t *TemperatureState) *float64 { return &t.AmbientF }),
	"t2": tempHandler(func(t *TemperatureState) *float64 { return &t.PrimaryF }),
	"t3": tempHandler(func(t *TemperatureState) *float64 { return &t.SecondaryF }),
	"t7": tempHandler(func(t *TemperatureState) *float64 { return &t.ElectronicsF }),

	// Fan
	"fm": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { snap.Fan.Mode = n })
	},
	"fs": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { snap.Fan.Speed = clampInt(n, 0, 100) })
	},
	"fg": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { snap.Fan.Gain = clampFloat(float64(n)/10, 0.1, 10.0) })
	},
	"ft": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { snap.Fan.Deadband = clampFloat(float64(n)/10, 0.0, 10.0) })
	},

	// Secondary heater
	"sm": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { snap.Heater.Mode = n })
	},
	"ss": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { snap.Heater.Power = clampInt(n, 0, 100) })
	},
	"st": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { snap.Heater.Setpoint = clampFloat(float64(n)/10, -10.0, 10.0) })
	},

	// Dew channels
	"d1": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { snap.Dew.Power1 = clampInt(n, 0, 100) })
	},
	"d2": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { snap.Dew.Power2 = clampInt(n, 0, 100) })
	},

	// Rotator, steps at 200 steps/degree
	"rs": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		deg := float64(n) / StepsPerDegree
		s.update(func(snap *Snapshot) {
			snap.Rotator.SetPosition = deg
			snap.Rotator.Moving = rotatorMoving(deg, snap.Rotator.ActualPosition)
		})
	},
	"rt": func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		deg := float64(n) / StepsPerDegree
		s.update(func(snap *Snapshot) {
			snap.Rotator.ActualPosition = deg
			snap.Rotator.Moving = rotatorMoving(snap.Rotator.SetPosition, deg)
		})
	},
	"rh": func(s *state, v string) {
		s.update(func(snap *Snapshot) { snap.Rotator.Homed = v == "1" })
	},

	// Firmware
	"vr": func(s *state, v string) {
		s.update(func(snap *Snapshot) { snap.Firmware = v })
	},
}

func tempHandler(field func(*TemperatureState) *float64) handler {
	return func(s *state, v string) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}
		s.update(func(snap *Snapshot) { *field(&snap.Temperature) = float64(n) / 100 })
	}
}

// dispatch routes one tokenizer event to its handler. Unknown keys go
// to the raw token log and are never an error.
func (c *Client) dispatch(ev event) {
	if ev.ack {
		c.state.update(func(snap *Snapshot) { snap.PingOK = true })
		return
	}

	h, ok := handlers[ev.key]
	if !ok {
		c.logger.Debugf("unknown key %q value %q", ev.key, ev.value)
		c.state.logRaw(ev.key, ev.value)
		return
	}
	h(c.state, ev.value)
}
