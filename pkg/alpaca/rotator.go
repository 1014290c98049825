package alpaca

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

type RotatorStatus struct {
	Position       float64 `json:"Position"` // degrees
	TargetPosition float64 `json:"TargetPosition"`
	IsMoving       bool    `json:"IsMoving"`
	Homed          bool    `json:"Homed"`
}

func (rs RotatorStatus) ToProperties() []StateProperty {
	return []StateProperty{
		{"Position", rs.Position},
		{"TargetPosition", rs.TargetPosition},
		{"IsMoving", rs.IsMoving},
		{"Homed", rs.Homed},
	}
}

type Rotator interface {
	Device

	Status() RotatorStatus
	StepSize() float64 // degrees per step
	MoveAbsolute(degrees float64) error
	Move(deltaDegrees float64) error
	Halt() error
}

type RotatorHandler struct {
	DeviceHandler
	dev Rotator
}

func NewRotatorHandler(dev Rotator) *RotatorHandler {
	return &RotatorHandler{
		DeviceHandler: DeviceHandler{dev: dev},
		dev:           dev,
	}
}

func (rh *RotatorHandler) RegisterRoutes(mux *http.ServeMux) {
	rh.DeviceHandler.RegisterRoutes(mux)

	mux.HandleFunc("GET /position", rh.handleStatus)
	mux.HandleFunc("GET /mechanicalposition", rh.handleStatus)
	mux.HandleFunc("GET /targetposition", rh.handleStatus)
	mux.HandleFunc("GET /ismoving", rh.handleStatus)

	mux.HandleFunc("GET /canreverse", rh.handleCanReverse)
	mux.HandleFunc("GET /reverse", rh.handleReverse)
	mux.HandleFunc("GET /stepsize", rh.handleStepSize)

	mux.HandleFunc("PUT /move", rh.handleMove)
	mux.HandleFunc("PUT /moveabsolute", rh.handleMoveAbsolute)
	mux.HandleFunc("PUT /movemechanical", rh.handleMoveAbsolute)
	mux.HandleFunc("PUT /halt", rh.handleHalt)
}

func (rh *RotatorHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	property := r.URL.Path[1:]
	log.Debugf("Rotator property: %s", property)

	status := rh.dev.Status()

	switch property {
	case "position", "mechanicalposition":
		handleResponse(w, r, status.Position)
	case "targetposition":
		handleResponse(w, r, status.TargetPosition)
	case "ismoving":
		handleResponse(w, r, status.IsMoving)
	default:
		handleError(w, r, http.StatusNotFound, "Property not found")
	}
}

func (rh *RotatorHandler) handleCanReverse(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, false)
}

func (rh *RotatorHandler) handleReverse(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, false)
}

func (rh *RotatorHandler) handleStepSize(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, r, rh.dev.StepSize())
}

func (rh *RotatorHandler) handleMove(w http.ResponseWriter, r *http.Request) {
	delta, err := parseFloatRequest(r, "Position")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := rh.dev.Move(delta); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}

func (rh *RotatorHandler) handleMoveAbsolute(w http.ResponseWriter, r *http.Request) {
	degrees, err := parseFloatRequest(r, "Position")
	if err != nil {
		handleError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := rh.dev.MoveAbsolute(degrees); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}

func (rh *RotatorHandler) handleHalt(w http.ResponseWriter, r *http.Request) {
	if err := rh.dev.Halt(); err != nil {
		handleError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	handleResponse(w, r, nil)
}
