package alpaca

import "net/http"

type DeviceInfo struct {
	Name        string `json:"DeviceName"`
	Description string `json:"-"`
	Type        string `json:"DeviceType"`
	Number      int    `json:"DeviceNumber"`
	UniqueID    string `json:"UniqueID"`
}

type DriverInfo struct {
	Name             string
	Version          string
	InterfaceVersion int
}

type StateProperty struct {
	Name  string
	Value any
}

type Device interface {
	DeviceInfo() DeviceInfo
	DriverInfo() DriverInfo
	GetState() []StateProperty

	Connected() bool
	Connecting() bool
	Connect() error
	Disconnect() error
}

// SetupDevice is implemented by devices that render their own setup
// page under /setup/v1/{type}/{number}/setup.
type SetupDevice interface {
	HandleSetup(w http.ResponseWriter, r *http.Request)
}

// DeviceHandler serves the device-generic Alpaca routes.
type DeviceHandler struct {
	dev Device
}

func (h *DeviceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /name", h.handleName)
	mux.HandleFunc("GET /description", h.handleDescription)
	mux.HandleFunc("GET /driverinfo", h.handleDriverInfo)
	mux.HandleFunc("GET /driverversion", h.handleDriverVersion)
	mux.HandleFunc("GET /interfaceversion", h.handleInterfaceVersion)
	mux.HandleFunc("GET /devicestate", h.handleState)

	mux.HandleFunc("GET /connected", h.handleConnected)
	mux.HandleFunc("PUT /connected", h.handleSetConnected)
	mux.HandleFunc("GET /connecting", h.handleConnecting)
	mux.HandleFunc("PUT /connect", h.handleConnect)
	mux.HandleFunc("PUT /disconnect", h.handleDisconnect)

	if sh, ok := h.dev.(SetupDevice); ok {
		mux.HandleFunc("/setup", sh.HandleSetup)
	}
}

func (h *DeviceHandler) handleName(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, h.dev.DeviceInfo().Name)
}

func (h *DeviceHandler) handleDescription(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, h.dev.DeviceInfo().Description)
}

func (h *DeviceHandler) handleDriverInfo(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, h.dev.DriverInfo())
}

func (h *DeviceHandler) handleDriverVersion(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, h.dev.DriverInfo().Version)
}

func (h *DeviceHandler) handleInterfaceVersion(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, h.dev.DriverInfo().InterfaceVersion)
}

func (h *DeviceHandler) handleState(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, h.dev.GetState())
}

func (h *DeviceHandler) handleConnected(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, h.dev.Connected())
}

// handleSetConnected implements the legacy synchronous Connected
// property on top of Connect/Disconnect.
func (h *DeviceHandler) handleSetConnected(w http.ResponseWriter, r *http.Request) {
	connected, err := parseBoolRequest(r, "Connected")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if connected {
		err = h.dev.Connect()
	} else {
		err = h.dev.Disconnect()
	}
	if err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}

func (h *DeviceHandler) handleConnecting(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, h.dev.Connecting())
}

func (h *DeviceHandler) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := h.dev.Connect(); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}

func (h *DeviceHandler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.dev.Disconnect(); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}
