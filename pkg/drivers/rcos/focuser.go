package rcos

import (
	"net/http"
	"time"

	"tcc/pkg/alpaca"
	"tcc/pkg/tcc"
)

const (
	focuserUID  = "9c7f54a8-0d3e-4f3b-8f2a-6d1f5f2b9a01"
	focuserName = "TCC Focuser"
)

// Focuser exposes the TCC's focuser axis as an Alpaca focuser device.
type Focuser struct {
	d      *Driver
	number int
}

func (d *Driver) Focuser(number int) *Focuser {
	return &Focuser{d: d, number: number}
}

func (f *Focuser) DeviceInfo() alpaca.DeviceInfo {
	return alpaca.DeviceInfo{
		Name:        focuserName,
		Description: "RCOS TCC focuser",
		Type:        "Focuser",
		Number:      f.number,
		UniqueID:    focuserUID,
	}
}

func (f *Focuser) DriverInfo() alpaca.DriverInfo {
	return alpaca.DriverInfo{
		Name:             driverName,
		Version:          driverVersion,
		InterfaceVersion: 1,
	}
}

func (f *Focuser) GetState() []alpaca.StateProperty {
	props := []alpaca.StateProperty{
		{Name: "TimeStamp", Value: time.Now().Format(time.RFC3339)},
	}

	if f.Connected() {
		props = append(props, f.Status().ToProperties()...)
	}

	return props
}

func (f *Focuser) Connected() bool   { return f.d.Connected() }
func (f *Focuser) Connecting() bool  { return f.d.Connecting() }
func (f *Focuser) Connect() error    { return f.d.Connect() }
func (f *Focuser) Disconnect() error { return f.d.Disconnect() }

func (f *Focuser) Capabilities() alpaca.FocuserCapabilities {
	cfg := f.d.config()
	return alpaca.FocuserCapabilities{
		Absolute:     true,
		MaxStep:      cfg.MaxStep,
		MaxIncrement: cfg.MaxIncrement,
	}
}

func (f *Focuser) Status() alpaca.FocuserStatus {
	cli, err := f.d.client()
	if err != nil {
		return alpaca.FocuserStatus{}
	}

	st, err := cli.FocuserStatus()
	if err != nil {
		return alpaca.FocuserStatus{}
	}
	temps, _ := cli.Temperatures()

	return alpaca.FocuserStatus{
		Position:    st.ActualPosition,
		IsMoving:    st.Moving,
		Homed:       st.Homed,
		Temperature: temps.AmbientC,
		TempComp:    f.d.tempCompEnabled(),
	}
}

func (f *Focuser) Move(position int) error {
	cli, err := f.d.client()
	if err != nil {
		return err
	}
	return cli.MoveFocuser(position)
}

// Halt is not supported: the TCC has no abort verb for the focuser.
func (f *Focuser) Halt() error {
	return alpaca.ErrPropertyNotImplemented
}

func (f *Focuser) SetTempComp(enabled bool) error {
	cli, err := f.d.client()
	if err != nil {
		return err
	}

	mode := tcc.ModeOff
	if enabled {
		mode = tcc.ModeAuto
	}
	if err := cli.SetTempComp(mode); err != nil {
		return err
	}

	f.d.setTempComp(enabled)
	return nil
}

func (f *Focuser) HandleSetup(w http.ResponseWriter, r *http.Request) {
	f.d.HandleSetup(w, r)
}
