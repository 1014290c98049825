package alpaca

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

// SwitchSpec describes one switch index: its name, writability and
// value domain. Boolean switches use Min 0, Max 1, Step 1.
type SwitchSpec struct {
	Name        string
	Description string
	CanWrite    bool
	Min         float64
	Max         float64
	Step        float64
}

type Switch interface {
	Device

	MaxSwitch() int
	Describe(id int) (SwitchSpec, error)
	GetSwitchValue(id int) (float64, error)
	SetSwitchValue(id int, value float64) error
}

type SwitchHandler struct {
	DeviceHandler
	dev Switch
}

func NewSwitchHandler(dev Switch) *SwitchHandler {
	return &SwitchHandler{
		DeviceHandler: DeviceHandler{dev: dev},
		dev:           dev,
	}
}

func (sh *SwitchHandler) RegisterRoutes(mux *http.ServeMux) {
	sh.DeviceHandler.RegisterRoutes(mux)

	mux.HandleFunc("GET /maxswitch", sh.handleMaxSwitch)
	mux.HandleFunc("GET /canwrite", sh.handleSpec)
	mux.HandleFunc("GET /getswitchname", sh.handleSpec)
	mux.HandleFunc("GET /getswitchdescription", sh.handleSpec)
	mux.HandleFunc("GET /minswitchvalue", sh.handleSpec)
	mux.HandleFunc("GET /maxswitchvalue", sh.handleSpec)
	mux.HandleFunc("GET /switchstep", sh.handleSpec)

	mux.HandleFunc("GET /getswitch", sh.handleGet)
	mux.HandleFunc("GET /getswitchvalue", sh.handleGet)

	mux.HandleFunc("PUT /setswitch", sh.handleSetSwitch)
	mux.HandleFunc("PUT /setswitchvalue", sh.handleSetSwitchValue)
}

func (sh *SwitchHandler) handleMaxSwitch(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, sh.dev.MaxSwitch())
}

func (sh *SwitchHandler) handleSpec(w http.ResponseWriter, r *http.Request) {
	property := r.URL.Path[1:]
	log.Debugf("Switch property: %s", property)

	id, err := parseIntRequest(r, "Id")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	spec, err := sh.dev.Describe(id)
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch property {
	case "canwrite":
		handleResponse(w, r, spec.CanWrite)
	case "getswitchname":
		handleResponse(w, r, spec.Name)
	case "getswitchdescription":
		handleResponse(w, r, spec.Description)
	case "minswitchvalue":
		handleResponse(w, r, spec.Min)
	case "maxswitchvalue":
		handleResponse(w, r, spec.Max)
	case "switchstep":
		handleResponse(w, r, spec.Step)
	default:
		handleError(w, r, http.StatusNotFound, "Property not found")
	}
}

func (sh *SwitchHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	property := r.URL.Path[1:]

	id, err := parseIntRequest(r, "Id")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	value, err := sh.dev.GetSwitchValue(id)
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if property == "getswitch" {
		handleResponse(w, r, value != 0)
		return
	}
	handleResponse(w, r, value)
}

func (sh *SwitchHandler) handleSetSwitch(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntRequest(r, "Id")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	on, err := parseBoolRequest(r, "State")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	spec, err := sh.dev.Describe(id)
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	value := spec.Min
	if on {
		value = spec.Max
	}
	if err := sh.dev.SetSwitchValue(id, value); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}

func (sh *SwitchHandler) handleSetSwitchValue(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntRequest(r, "Id")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	value, err := parseFloatRequest(r, "Value")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := sh.dev.SetSwitchValue(id, value); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}
