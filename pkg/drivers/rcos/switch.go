package rcos

import (
	"fmt"
	"net/http"
	"time"

	"tcc/pkg/alpaca"
	"tcc/pkg/tcc"
)

const (
	switchUID  = "4f6c2d9e-8ab1-4c70-9e54-3d0b8c6f1a03"
	switchName = "TCC Auxiliary"
)

// switchPoint binds one Alpaca switch index to the protocol client.
// Read-only points have a nil setter.
type switchPoint struct {
	spec alpaca.SwitchSpec
	get  func(cli *tcc.Client) float64
	set  func(cli *tcc.Client, v float64) error
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// switchTable maps the TCC's fan, heater, dew and temperature
// telemetry onto switch indices. Heater mode and power have no wire
// command, so those points are read-only.
var switchTable = []switchPoint{
	{
		spec: alpaca.SwitchSpec{Name: "Fan", Description: "Primary mirror fan (off/auto)", CanWrite: true, Min: 0, Max: 1, Step: 1},
		get:  func(c *tcc.Client) float64 { return boolValue(c.Snapshot().Fan.Mode != tcc.ModeOff) },
		set: func(c *tcc.Client, v float64) error {
			if v != 0 {
				return c.SetFanAuto()
			}
			return c.SetFanOff()
		},
	},
	{
		spec: alpaca.SwitchSpec{Name: "Fan speed", Description: "Fan speed percent, manual mode", CanWrite: true, Min: 0, Max: 100, Step: 1},
		get:  func(c *tcc.Client) float64 { return float64(c.Snapshot().Fan.Speed) },
		set:  func(c *tcc.Client, v float64) error { return c.SetFanSpeed(int(v)) },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Fan gain", Description: "Auto fan control gain", CanWrite: true, Min: 0.1, Max: 10, Step: 0.1},
		get:  func(c *tcc.Client) float64 { return c.Snapshot().Fan.Gain },
		set:  func(c *tcc.Client, v float64) error { return c.SetFanGain(v) },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Fan deadband", Description: "Auto fan control deadband", CanWrite: true, Min: 0, Max: 10, Step: 0.1},
		get:  func(c *tcc.Client) float64 { return c.Snapshot().Fan.Deadband },
		set:  func(c *tcc.Client, v float64) error { return c.SetFanDeadband(v) },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Heater setpoint", Description: "Secondary heater setpoint, degrees C", CanWrite: true, Min: -10, Max: 10, Step: 0.1},
		get:  func(c *tcc.Client) float64 { return c.Snapshot().Heater.Setpoint },
		set:  func(c *tcc.Client, v float64) error { return c.SetHeaterSetpoint(v) },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Heater power", Description: "Secondary heater power percent", CanWrite: false, Min: 0, Max: 100, Step: 1},
		get:  func(c *tcc.Client) float64 { return float64(c.Snapshot().Heater.Power) },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Dew heater 1", Description: "Dew channel 1 power percent", CanWrite: true, Min: 0, Max: 100, Step: 1},
		get:  func(c *tcc.Client) float64 { return float64(c.Snapshot().Dew.Power1) },
		set:  func(c *tcc.Client, v float64) error { return c.SetDewPower(1, int(v)) },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Dew heater 2", Description: "Dew channel 2 power percent", CanWrite: true, Min: 0, Max: 100, Step: 1},
		get:  func(c *tcc.Client) float64 { return float64(c.Snapshot().Dew.Power2) },
		set:  func(c *tcc.Client, v float64) error { return c.SetDewPower(2, int(v)) },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Ambient temperature", Description: "Ambient temperature, degrees C", CanWrite: false, Min: -100, Max: 200, Step: 0.01},
		get:  func(c *tcc.Client) float64 { t, _ := c.Temperatures(); return t.AmbientC },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Primary temperature", Description: "Primary mirror temperature, degrees C", CanWrite: false, Min: -100, Max: 200, Step: 0.01},
		get:  func(c *tcc.Client) float64 { t, _ := c.Temperatures(); return t.PrimaryC },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Secondary temperature", Description: "Secondary mirror temperature, degrees C", CanWrite: false, Min: -100, Max: 200, Step: 0.01},
		get:  func(c *tcc.Client) float64 { t, _ := c.Temperatures(); return t.SecondaryC },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Electronics temperature", Description: "Electronics temperature, degrees C", CanWrite: false, Min: -100, Max: 200, Step: 0.01},
		get:  func(c *tcc.Client) float64 { t, _ := c.Temperatures(); return t.ElectronicsC },
	},
	{
		spec: alpaca.SwitchSpec{Name: "Ping OK", Description: "Controller acknowledged the last ping", CanWrite: false, Min: 0, Max: 1, Step: 1},
		get:  func(c *tcc.Client) float64 { return boolValue(c.PingOK()) },
	},
}

// Switch exposes the TCC's auxiliary channels as an Alpaca switch
// device.
type Switch struct {
	d      *Driver
	number int
}

func (d *Driver) Switch(number int) *Switch {
	return &Switch{d: d, number: number}
}

func (s *Switch) DeviceInfo() alpaca.DeviceInfo {
	return alpaca.DeviceInfo{
		Name:        switchName,
		Description: "RCOS TCC fan, heater and dew channels",
		Type:        "Switch",
		Number:      s.number,
		UniqueID:    switchUID,
	}
}

func (s *Switch) DriverInfo() alpaca.DriverInfo {
	return alpaca.DriverInfo{
		Name:             driverName,
		Version:          driverVersion,
		InterfaceVersion: 1,
	}
}

func (s *Switch) GetState() []alpaca.StateProperty {
	props := []alpaca.StateProperty{
		{Name: "TimeStamp", Value: time.Now().Format(time.RFC3339)},
	}

	cli, err := s.d.client()
	if err != nil {
		return props
	}
	for _, pt := range switchTable {
		props = append(props, alpaca.StateProperty{Name: pt.spec.Name, Value: pt.get(cli)})
	}
	return props
}

func (s *Switch) Connected() bool   { return s.d.Connected() }
func (s *Switch) Connecting() bool  { return s.d.Connecting() }
func (s *Switch) Connect() error    { return s.d.Connect() }
func (s *Switch) Disconnect() error { return s.d.Disconnect() }

func (s *Switch) MaxSwitch() int {
	return len(switchTable)
}

func (s *Switch) Describe(id int) (alpaca.SwitchSpec, error) {
	if id < 0 || id >= len(switchTable) {
		return alpaca.SwitchSpec{}, fmt.Errorf("%w: switch id %d", alpaca.ErrInvalidValue, id)
	}
	return switchTable[id].spec, nil
}

func (s *Switch) GetSwitchValue(id int) (float64, error) {
	if id < 0 || id >= len(switchTable) {
		return 0, fmt.Errorf("%w: switch id %d", alpaca.ErrInvalidValue, id)
	}

	cli, err := s.d.client()
	if err != nil {
		return 0, err
	}
	return switchTable[id].get(cli), nil
}

func (s *Switch) SetSwitchValue(id int, value float64) error {
	if id < 0 || id >= len(switchTable) {
		return fmt.Errorf("%w: switch id %d", alpaca.ErrInvalidValue, id)
	}

	pt := switchTable[id]
	if pt.set == nil {
		return fmt.Errorf("%w: switch %q is read-only", alpaca.ErrInvalidValue, pt.spec.Name)
	}

	cli, err := s.d.client()
	if err != nil {
		return err
	}
	return pt.set(cli, value)
}

func (s *Switch) HandleSetup(w http.ResponseWriter, r *http.Request) {
	s.d.HandleSetup(w, r)
}
