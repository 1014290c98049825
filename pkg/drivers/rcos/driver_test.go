package rcos

import (
	"html/template"
	"io"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"tcc/pkg/alpaca"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()

	db, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := log.New()
	logger.SetOutput(io.Discard)

	d, err := NewDriver(db, template.New("none"), logger.WithField("device", "test"))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func connectedDriver(t *testing.T) *Driver {
	t.Helper()

	d := newTestDriver(t)
	require.NoError(t, d.Connect())
	return d
}

// switchIndex finds a switch channel by name so tests do not depend
// on table ordering.
func switchIndex(t *testing.T, name string) int {
	t.Helper()

	for i, pt := range switchTable {
		if pt.spec.Name == name {
			return i
		}
	}
	t.Fatalf("no switch named %q", name)
	return -1
}

func TestDriverConnectDisconnect(t *testing.T) {
	d := newTestDriver(t)

	assert.False(t, d.Connected())
	require.NoError(t, d.Connect())
	assert.True(t, d.Connected())

	// Connecting again is a no-op: all three devices share one link.
	require.NoError(t, d.Connect())
	assert.True(t, d.Connected())

	require.NoError(t, d.Disconnect())
	assert.False(t, d.Connected())
	assert.ErrorIs(t, d.Disconnect(), alpaca.ErrNotConnected)
}

func TestDriverDefaultsToSimulator(t *testing.T) {
	d := newTestDriver(t)

	cfg, err := d.store.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, SimulatorPort, cfg.Port)
	assert.Equal(t, 100000, cfg.MaxStep)
}

func TestDevicesErrorWhileDisconnected(t *testing.T) {
	d := newTestDriver(t)

	assert.ErrorIs(t, d.Focuser(0).Move(100), alpaca.ErrNotConnected)
	assert.ErrorIs(t, d.Rotator(0).MoveAbsolute(10), alpaca.ErrNotConnected)

	_, err := d.Switch(0).GetSwitchValue(0)
	assert.ErrorIs(t, err, alpaca.ErrNotConnected)

	assert.Equal(t, alpaca.FocuserStatus{}, d.Focuser(0).Status())
}

func TestFocuserMoveConvergence(t *testing.T) {
	d := connectedDriver(t)
	f := d.Focuser(0)

	require.Eventually(t, func() bool {
		return f.Status().Homed
	}, waitFor, tick, "initial telemetry never arrived")

	require.NoError(t, f.Move(250))

	assert.Eventually(t, func() bool {
		st := f.Status()
		return st.Position == 250 && !st.IsMoving
	}, waitFor, tick)

	caps := f.Capabilities()
	assert.True(t, caps.Absolute)
	assert.Equal(t, 100000, caps.MaxStep)
}

func TestFocuserTempComp(t *testing.T) {
	d := connectedDriver(t)
	f := d.Focuser(0)

	assert.False(t, f.Status().TempComp)
	require.NoError(t, f.SetTempComp(true))
	assert.True(t, f.Status().TempComp)
	require.NoError(t, f.SetTempComp(false))
	assert.False(t, f.Status().TempComp)
}

func TestRotatorMoves(t *testing.T) {
	d := connectedDriver(t)
	r := d.Rotator(0)

	require.NoError(t, r.MoveAbsolute(12.5))
	assert.Eventually(t, func() bool {
		st := r.Status()
		return st.Position == 12.5 && !st.IsMoving
	}, waitFor, tick)

	// Relative moves go through the last reported position.
	require.NoError(t, r.Move(-2.5))
	assert.Eventually(t, func() bool {
		return r.Status().Position == 10.0
	}, waitFor, tick)

	assert.InDelta(t, 0.005, r.StepSize(), 1e-9)
}

func TestSwitchDewChannels(t *testing.T) {
	d := connectedDriver(t)
	sw := d.Switch(0)

	assert.Equal(t, len(switchTable), sw.MaxSwitch())

	id := switchIndex(t, "Dew heater 1")
	require.NoError(t, sw.SetSwitchValue(id, 40))

	v, err := sw.GetSwitchValue(id)
	require.NoError(t, err)
	assert.Equal(t, 40.0, v)

	// Telemetry confirms the commanded value.
	assert.Eventually(t, func() bool {
		v, err := sw.GetSwitchValue(id)
		return err == nil && v == 40.0
	}, waitFor, tick)
}

func TestSwitchFanModes(t *testing.T) {
	d := connectedDriver(t)
	sw := d.Switch(0)

	fan := switchIndex(t, "Fan")
	speed := switchIndex(t, "Fan speed")

	require.NoError(t, sw.SetSwitchValue(fan, 1))
	assert.Eventually(t, func() bool {
		v, err := sw.GetSwitchValue(fan)
		return err == nil && v == 1.0
	}, waitFor, tick)

	require.NoError(t, sw.SetSwitchValue(speed, 60))
	assert.Eventually(t, func() bool {
		v, err := sw.GetSwitchValue(speed)
		return err == nil && v == 60.0
	}, waitFor, tick)

	require.NoError(t, sw.SetSwitchValue(fan, 0))
	assert.Eventually(t, func() bool {
		v, err := sw.GetSwitchValue(fan)
		return err == nil && v == 0.0
	}, waitFor, tick)
}

func TestSwitchReadOnlyAndBounds(t *testing.T) {
	d := connectedDriver(t)
	sw := d.Switch(0)

	power := switchIndex(t, "Heater power")
	assert.ErrorIs(t, sw.SetSwitchValue(power, 50), alpaca.ErrInvalidValue)

	_, err := sw.GetSwitchValue(-1)
	assert.ErrorIs(t, err, alpaca.ErrInvalidValue)
	_, err = sw.GetSwitchValue(len(switchTable))
	assert.ErrorIs(t, err, alpaca.ErrInvalidValue)
	_, err = sw.Describe(len(switchTable))
	assert.ErrorIs(t, err, alpaca.ErrInvalidValue)
}

func TestSwitchTemperaturesInCelsius(t *testing.T) {
	d := connectedDriver(t)
	sw := d.Switch(0)

	// The simulator reports 45.50 degrees F ambient, 7.5 degrees C.
	id := switchIndex(t, "Ambient temperature")
	assert.Eventually(t, func() bool {
		v, err := sw.GetSwitchValue(id)
		return err == nil && v > 7.49 && v < 7.51
	}, waitFor, tick)
}

func TestParseSetupForm(t *testing.T) {
	tests := []struct {
		name        string
		form        url.Values
		expectError bool
		check       func(t *testing.T, cfg Config)
	}{
		{
			name: "Full form",
			form: url.Values{
				"com-port":            {"/dev/ttyUSB0"},
				"focuser-move-format": {"f%+d "},
				"rotator-move-format": {"r%+d "},
				"max-step":            {"50000"},
				"max-increment":       {"1000"},
				"publish-seconds":     {"10"},
				"mqtt-host":           {"tcp://broker:1883"},
				"mqtt-topic-root":     {"obs/tcc"},
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "/dev/ttyUSB0", cfg.Port)
				assert.Equal(t, "f%+d ", cfg.FocuserMoveFormat)
				assert.Equal(t, 50000, cfg.MaxStep)
				assert.Equal(t, 10, cfg.PublishSeconds)
				assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Host)
				assert.Equal(t, "obs/tcc", cfg.MQTT.TopicRoot)
			},
		},
		{
			name: "Empty formats keep defaults",
			form: url.Values{
				"com-port": {SimulatorPort},
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, defaultConfig.FocuserMoveFormat, cfg.FocuserMoveFormat)
				assert.Equal(t, defaultConfig.RotatorMoveFormat, cfg.RotatorMoveFormat)
				assert.Equal(t, "tcc", cfg.MQTT.TopicRoot)
			},
		},
		{
			name:        "Missing port",
			form:        url.Values{"max-step": {"1000"}},
			expectError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/setup", strings.NewReader(tc.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			cfg, err := parseSetupForm(req)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}
