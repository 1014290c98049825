package rcos

import (
	"net/http"
	"time"

	"tcc/pkg/alpaca"
	"tcc/pkg/tcc"
)

const (
	rotatorUID  = "b1e8a7c2-53f4-42d9-a6a3-0f9ce1d47b02"
	rotatorName = "TCC Rotator"
)

// Rotator exposes the TCC's instrument rotator as an Alpaca rotator
// device. Positions are in degrees; the wire speaks steps at 200
// steps per degree, converted inside the protocol client.
type Rotator struct {
	d      *Driver
	number int
}

func (d *Driver) Rotator(number int) *Rotator {
	return &Rotator{d: d, number: number}
}

func (r *Rotator) DeviceInfo() alpaca.DeviceInfo {
	return alpaca.DeviceInfo{
		Name:        rotatorName,
		Description: "RCOS TCC instrument rotator",
		Type:        "Rotator",
		Number:      r.number,
		UniqueID:    rotatorUID,
	}
}

func (r *Rotator) DriverInfo() alpaca.DriverInfo {
	return alpaca.DriverInfo{
		Name:             driverName,
		Version:          driverVersion,
		InterfaceVersion: 1,
	}
}

func (r *Rotator) GetState() []alpaca.StateProperty {
	props := []alpaca.StateProperty{
		{Name: "TimeStamp", Value: time.Now().Format(time.RFC3339)},
	}

	if r.Connected() {
		props = append(props, r.Status().ToProperties()...)
	}

	return props
}

func (r *Rotator) Connected() bool   { return r.d.Connected() }
func (r *Rotator) Connecting() bool  { return r.d.Connecting() }
func (r *Rotator) Connect() error    { return r.d.Connect() }
func (r *Rotator) Disconnect() error { return r.d.Disconnect() }

func (r *Rotator) Status() alpaca.RotatorStatus {
	cli, err := r.d.client()
	if err != nil {
		return alpaca.RotatorStatus{}
	}

	st, err := cli.RotatorStatus()
	if err != nil {
		return alpaca.RotatorStatus{}
	}

	return alpaca.RotatorStatus{
		Position:       st.ActualPosition,
		TargetPosition: st.SetPosition,
		IsMoving:       st.Moving,
		Homed:          st.Homed,
	}
}

func (r *Rotator) StepSize() float64 {
	return 1.0 / tcc.StepsPerDegree
}

func (r *Rotator) MoveAbsolute(degrees float64) error {
	cli, err := r.d.client()
	if err != nil {
		return err
	}
	return cli.MoveRotator(degrees)
}

// Move is relative to the current position.
func (r *Rotator) Move(deltaDegrees float64) error {
	cli, err := r.d.client()
	if err != nil {
		return err
	}

	st, err := cli.RotatorStatus()
	if err != nil {
		return err
	}
	return cli.MoveRotator(st.ActualPosition + deltaDegrees)
}

// Halt is not supported: the TCC has no abort verb for the rotator.
func (r *Rotator) Halt() error {
	return alpaca.ErrPropertyNotImplemented
}

func (r *Rotator) HandleSetup(w http.ResponseWriter, req *http.Request) {
	r.d.HandleSetup(w, req)
}
