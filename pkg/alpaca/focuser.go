package alpaca

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

type FocuserStatus struct {
	Position    int     `json:"Position"`
	IsMoving    bool    `json:"IsMoving"`
	Homed       bool    `json:"Homed"`
	Temperature float64 `json:"Temperature"` // °C
	TempComp    bool    `json:"TempComp"`
}

func (fs FocuserStatus) ToProperties() []StateProperty {
	return []StateProperty{
		{"Position", fs.Position},
		{"IsMoving", fs.IsMoving},
		{"Homed", fs.Homed},
		{"Temperature", fs.Temperature},
		{"TempComp", fs.TempComp},
	}
}

type FocuserCapabilities struct {
	Absolute     bool
	MaxStep      int
	MaxIncrement int
	StepSizeUM   float64 // microns, 0 if unknown
}

type Focuser interface {
	Device

	Capabilities() FocuserCapabilities
	Status() FocuserStatus
	Move(position int) error
	Halt() error
	SetTempComp(enabled bool) error
}

type FocuserHandler struct {
	DeviceHandler
	dev Focuser
}

func NewFocuserHandler(dev Focuser) *FocuserHandler {
	return &FocuserHandler{
		DeviceHandler: DeviceHandler{dev: dev},
		dev:           dev,
	}
}

func (fh *FocuserHandler) RegisterRoutes(mux *http.ServeMux) {
	fh.DeviceHandler.RegisterRoutes(mux)

	mux.HandleFunc("GET /position", fh.handleStatus)
	mux.HandleFunc("GET /ismoving", fh.handleStatus)
	mux.HandleFunc("GET /temperature", fh.handleStatus)
	mux.HandleFunc("GET /tempcomp", fh.handleStatus)

	mux.HandleFunc("GET /absolute", fh.handleCapabilities)
	mux.HandleFunc("GET /maxstep", fh.handleCapabilities)
	mux.HandleFunc("GET /maxincrement", fh.handleCapabilities)
	mux.HandleFunc("GET /stepsize", fh.handleCapabilities)
	mux.HandleFunc("GET /tempcompavailable", fh.handleCapabilities)

	mux.HandleFunc("PUT /tempcomp", fh.handleSetTempComp)
	mux.HandleFunc("PUT /move", fh.handleMove)
	mux.HandleFunc("PUT /halt", fh.handleHalt)
}

func (fh *FocuserHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	property := r.URL.Path[1:]
	log.Debugf("Focuser property: %s", property)

	status := fh.dev.Status()

	switch property {
	case "position":
		handleResponse(w, r, status.Position)
	case "ismoving":
		handleResponse(w, r, status.IsMoving)
	case "temperature":
		handleResponse(w, r, status.Temperature)
	case "tempcomp":
		handleResponse(w, r, status.TempComp)
	default:
		handleError(w, r, http.StatusNotFound, "Property not found")
	}
}

func (fh *FocuserHandler) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	property := r.URL.Path[1:]
	cap := fh.dev.Capabilities()

	switch property {
	case "absolute":
		handleResponse(w, r, cap.Absolute)
	case "maxstep":
		handleResponse(w, r, cap.MaxStep)
	case "maxincrement":
		handleResponse(w, r, cap.MaxIncrement)
	case "stepsize":
		handleResponse(w, r, cap.StepSizeUM)
	case "tempcompavailable":
		handleResponse(w, r, true)
	default:
		handleError(w, r, http.StatusNotFound, "Property not found")
	}
}

func (fh *FocuserHandler) handleSetTempComp(w http.ResponseWriter, r *http.Request) {
	enabled, err := parseBoolRequest(r, "TempComp")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := fh.dev.SetTempComp(enabled); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}

func (fh *FocuserHandler) handleMove(w http.ResponseWriter, r *http.Request) {
	position, err := parseIntRequest(r, "Position")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := fh.dev.Move(position); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}

func (fh *FocuserHandler) handleHalt(w http.ResponseWriter, r *http.Request) {
	if err := fh.dev.Halt(); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}
