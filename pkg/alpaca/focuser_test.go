package alpaca

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFocuser struct {
	status    FocuserStatus
	caps      FocuserCapabilities
	moved     []int
	tempComp  []bool
	connected bool
}

func (f *fakeFocuser) DeviceInfo() DeviceInfo {
	return DeviceInfo{Name: "Fake Focuser", Type: "Focuser"}
}

func (f *fakeFocuser) DriverInfo() DriverInfo {
	return DriverInfo{Name: "Fake", Version: "0.1", InterfaceVersion: 1}
}

func (f *fakeFocuser) GetState() []StateProperty { return f.status.ToProperties() }
func (f *fakeFocuser) Connected() bool           { return f.connected }
func (f *fakeFocuser) Connecting() bool          { return false }
func (f *fakeFocuser) Connect() error            { f.connected = true; return nil }
func (f *fakeFocuser) Disconnect() error         { f.connected = false; return nil }

func (f *fakeFocuser) Capabilities() FocuserCapabilities { return f.caps }
func (f *fakeFocuser) Status() FocuserStatus             { return f.status }
func (f *fakeFocuser) Move(position int) error           { f.moved = append(f.moved, position); return nil }
func (f *fakeFocuser) Halt() error                       { return ErrPropertyNotImplemented }
func (f *fakeFocuser) SetTempComp(enabled bool) error {
	f.tempComp = append(f.tempComp, enabled)
	return nil
}

func focuserMux(dev Focuser) *http.ServeMux {
	mux := http.NewServeMux()
	NewFocuserHandler(dev).RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, req *http.Request) baseResponse {
	t.Helper()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp baseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestFocuserStatusRoutes(t *testing.T) {
	dev := &fakeFocuser{
		status: FocuserStatus{Position: 1200, IsMoving: true, Temperature: 7.5, TempComp: true},
		caps:   FocuserCapabilities{Absolute: true, MaxStep: 100000, MaxIncrement: 5000},
	}
	mux := focuserMux(dev)

	tests := []struct {
		route    string
		expected any
	}{
		{"/position", float64(1200)},
		{"/ismoving", true},
		{"/temperature", 7.5},
		{"/tempcomp", true},
		{"/absolute", true},
		{"/maxstep", float64(100000)},
		{"/maxincrement", float64(5000)},
		{"/tempcompavailable", true},
	}

	for _, tc := range tests {
		t.Run(tc.route, func(t *testing.T) {
			resp := doJSON(t, mux, httptest.NewRequest("GET", tc.route, nil))
			assert.Equal(t, 0, resp.ErrorNumber)
			assert.Equal(t, tc.expected, resp.Value)
		})
	}
}

func TestFocuserMoveRoute(t *testing.T) {
	dev := &fakeFocuser{}
	mux := focuserMux(dev)

	resp := doJSON(t, mux, formRequest("PUT", "/move", url.Values{"Position": {"2500"}}))
	assert.Equal(t, 0, resp.ErrorNumber)
	assert.Equal(t, []int{2500}, dev.moved)

	// A malformed position reports an Alpaca error, not a move.
	resp = doJSON(t, mux, formRequest("PUT", "/move", url.Values{"Position": {"abc"}}))
	assert.Equal(t, http.StatusBadRequest, resp.ErrorNumber)
	assert.Len(t, dev.moved, 1)
}

func TestFocuserTempCompRoute(t *testing.T) {
	dev := &fakeFocuser{}
	mux := focuserMux(dev)

	resp := doJSON(t, mux, formRequest("PUT", "/tempcomp", url.Values{"TempComp": {"true"}}))
	assert.Equal(t, 0, resp.ErrorNumber)
	assert.Equal(t, []bool{true}, dev.tempComp)
}

func TestFocuserHaltRoute(t *testing.T) {
	dev := &fakeFocuser{}
	mux := focuserMux(dev)

	resp := doJSON(t, mux, formRequest("PUT", "/halt", url.Values{}))
	assert.Equal(t, http.StatusInternalServerError, resp.ErrorNumber)
	assert.Equal(t, ErrPropertyNotImplemented.Error(), resp.ErrorMessage)
}

func TestDeviceConnectedProperty(t *testing.T) {
	dev := &fakeFocuser{}
	mux := focuserMux(dev)

	resp := doJSON(t, mux, formRequest("PUT", "/connected", url.Values{"Connected": {"true"}}))
	assert.Equal(t, 0, resp.ErrorNumber)
	assert.True(t, dev.connected)

	resp = doJSON(t, mux, httptest.NewRequest("GET", "/connected", nil))
	assert.Equal(t, true, resp.Value)

	resp = doJSON(t, mux, formRequest("PUT", "/connected", url.Values{"Connected": {"false"}}))
	assert.Equal(t, 0, resp.ErrorNumber)
	assert.False(t, dev.connected)
}
