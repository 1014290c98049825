package tcc

import (
	"fmt"
	"math"
)

// Command verbs. Each frame is the verb, an optional argument, and a
// trailing space. Commands are unacknowledged (except ping): success
// shows up as subsequent telemetry converging on the commanded value.
const (
	cmdPing   = "! "
	cmdStatus = "? "

	cmdFanSpeedFmt    = "y%d " // forces manual mode
	cmdFanAuto        = "n1 "
	cmdFanOff         = "n2 "
	cmdFanGainFmt     = "g%d " // tenths
	cmdFanDeadbandFmt = "O%d " // tenths

	cmdHeaterSetpointFmt = "P%d " // signed tenths of °C

	cmdDew1Fmt = "c%d "
	cmdDew2Fmt = "k%d "

	cmdTempCompFmt = "+%d " // 0 off, 1 auto, 2 manual
)

// The absolute-move verbs below were never confirmed against real
// firmware, so they stay configurable rather than hardcoded. Both
// render a signed step delta.
const (
	DefaultFocuserMoveFormat = "m%+d "
	DefaultRotatorMoveFormat = "M%+d "
)

// Config carries the client's construction parameters.
type Config struct {
	// FocuserMoveFormat and RotatorMoveFormat render the relative move
	// commands from a signed step delta.
	FocuserMoveFormat string
	RotatorMoveFormat string
}

func (c Config) withDefaults() Config {
	if c.FocuserMoveFormat == "" {
		c.FocuserMoveFormat = DefaultFocuserMoveFormat
	}
	if c.RotatorMoveFormat == "" {
		c.RotatorMoveFormat = DefaultRotatorMoveFormat
	}
	return c
}

// command writes one encoded frame, optionally chased by a status
// query, and applies the optimistic state update. The optimistic value
// is superseded by the next telemetry frame for that field.
func (c *Client) command(frame string, query bool, apply func(*Snapshot)) error {
	if err := c.write(frame); err != nil {
		return err
	}
	if query {
		if err := c.write(cmdStatus); err != nil {
			return err
		}
	}
	if apply != nil {
		c.state.update(apply)
	}
	return nil
}

// SetFanSpeed sets the fan to manual mode at the given percent speed.
func (c *Client) SetFanSpeed(pct int) error {
	if pct < 0 || pct > 100 {
		return invalidf("fan speed %d%% outside [0,100]", pct)
	}
	return c.command(fmt.Sprintf(cmdFanSpeedFmt, pct), true, func(snap *Snapshot) {
		snap.Fan.Speed = pct
		snap.Fan.Mode = ModeManual
	})
}

// SetFanAuto puts the fan under automatic temperature control.
func (c *Client) SetFanAuto() error {
	return c.command(cmdFanAuto, true, func(snap *Snapshot) {
		snap.Fan.Mode = ModeAuto
	})
}

// SetFanOff turns the fan off.
func (c *Client) SetFanOff() error {
	return c.command(cmdFanOff, true, func(snap *Snapshot) {
		snap.Fan.Mode = ModeOff
		snap.Fan.Speed = 0
	})
}

// SetFanGain sets the auto-mode control gain, 0.1 to 10.0.
func (c *Client) SetFanGain(gain float64) error {
	if gain < 0.1 || gain > 10.0 {
		return invalidf("fan gain %.1f outside [0.1,10.0]", gain)
	}
	return c.command(fmt.Sprintf(cmdFanGainFmt, tenths(gain)), false, func(snap *Snapshot) {
		snap.Fan.Gain = gain
	})
}

// SetFanDeadband sets the auto-mode deadband, 0.0 to 10.0.
func (c *Client) SetFanDeadband(db float64) error {
	if db < 0.0 || db > 10.0 {
		return invalidf("fan deadband %.1f outside [0.0,10.0]", db)
	}
	return c.command(fmt.Sprintf(cmdFanDeadbandFmt, tenths(db)), false, func(snap *Snapshot) {
		snap.Fan.Deadband = db
	})
}

// SetHeaterSetpoint sets the secondary heater setpoint in °C, -10 to
// +10 relative to ambient.
func (c *Client) SetHeaterSetpoint(setpoint float64) error {
	if setpoint < -10.0 || setpoint > 10.0 {
		return invalidf("heater setpoint %.1f outside [-10,10]", setpoint)
	}
	return c.command(fmt.Sprintf(cmdHeaterSetpointFmt, tenths(setpoint)), true, func(snap *Snapshot) {
		snap.Heater.Setpoint = setpoint
	})
}

// SetDewPower sets a dew channel (1 or 2) to the given percent power.
func (c *Client) SetDewPower(channel, pct int) error {
	if channel != 1 && channel != 2 {
		return invalidf("dew channel %d, want 1 or 2", channel)
	}
	if pct < 0 || pct > 100 {
		return invalidf("dew power %d%% outside [0,100]", pct)
	}

	format := cmdDew1Fmt
	if channel == 2 {
		format = cmdDew2Fmt
	}
	return c.command(fmt.Sprintf(format, pct), true, func(snap *Snapshot) {
		if channel == 1 {
			snap.Dew.Power1 = pct
		} else {
			snap.Dew.Power2 = pct
		}
	})
}

// SetTempComp sets the focuser temperature compensation mode:
// ModeManual, ModeAuto or ModeOff.
func (c *Client) SetTempComp(mode int) error {
	var arg int
	switch mode {
	case ModeOff:
		arg = 0
	case ModeAuto:
		arg = 1
	case ModeManual:
		arg = 2
	default:
		return invalidf("temp comp mode %d", mode)
	}
	return c.command(fmt.Sprintf(cmdTempCompFmt, arg), true, nil)
}

// MoveFocuser moves the focuser to an absolute step position. The
// wire command is relative, so the delta is computed from the last
// known actual position.
func (c *Client) MoveFocuser(position int) error {
	snap := c.state.snapshot()
	delta := position - snap.Focuser.ActualPosition

	return c.command(fmt.Sprintf(c.cfg.FocuserMoveFormat, delta), true, func(s *Snapshot) {
		s.Focuser.SetPosition = position
		s.Focuser.Moving = focuserMoving(position, s.Focuser.ActualPosition)
	})
}

// MoveRotator moves the rotator to an absolute position in degrees.
func (c *Client) MoveRotator(degrees float64) error {
	snap := c.state.snapshot()
	delta := degreesToSteps(degrees) - degreesToSteps(snap.Rotator.ActualPosition)

	return c.command(fmt.Sprintf(c.cfg.RotatorMoveFormat, delta), true, func(s *Snapshot) {
		s.Rotator.SetPosition = degrees
		s.Rotator.Moving = rotatorMoving(degrees, s.Rotator.ActualPosition)
	})
}

// Ping resets the liveness flag and writes the ping frame. The flag
// is cleared before the write so a fast acknowledgement cannot be
// wiped out. The caller polls PingOK afterward; there is no push
// notification.
func (c *Client) Ping() error {
	c.state.update(func(snap *Snapshot) { snap.PingOK = false })
	return c.write(cmdPing)
}

// RequestStatus asks the controller for a full telemetry frame. The
// reply arrives through the background dispatch, not synchronously.
func (c *Client) RequestStatus() error {
	return c.write(cmdStatus)
}

func tenths(v float64) int {
	return int(math.Round(v * 10))
}

func degreesToSteps(deg float64) int {
	return int(math.Round(deg * StepsPerDegree))
}
