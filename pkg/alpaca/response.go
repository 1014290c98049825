package alpaca

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
)

// Global transaction counter
var txCounter atomic.Int32

type baseResponse struct {
	ClientTransactionID int    `json:"ClientTransactionID"`
	ServerTransactionID int    `json:"ServerTransactionID"`
	ErrorNumber         int    `json:"ErrorNumber"`
	ErrorMessage        string `json:"ErrorMessage"`
	Value               any    `json:"Value,omitempty"`
}

func clientTxID(r *http.Request) int {
	for param, value := range r.Form {
		if strings.EqualFold(param, "clienttransactionid") {
			id, _ := strconv.Atoi(value[0])
			if id > 0 {
				return id
			}
		}
	}
	return 0
}

func handleResponse(w http.ResponseWriter, r *http.Request, value any) {
	r.ParseForm()

	response := baseResponse{
		ServerTransactionID: int(txCounter.Add(1)),
		ClientTransactionID: clientTxID(r),
	}
	if value != nil {
		response.Value = value
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handleError(w http.ResponseWriter, r *http.Request, code int, message string) {
	r.ParseForm()

	response := baseResponse{
		ServerTransactionID: int(txCounter.Add(1)),
		ClientTransactionID: clientTxID(r),
		ErrorNumber:         code,
		ErrorMessage:        message,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// parseRequest reads a named field from the form parameters. Alpaca
// parameter names are matched case-insensitively.
func parseRequest(r *http.Request, field string) (string, error) {
	if err := r.ParseForm(); err != nil {
		return "", err
	}

	for param, value := range r.Form {
		if strings.EqualFold(param, field) {
			return value[0], nil
		}
	}
	return "", errors.New("missing field " + field)
}

func parseBoolRequest(r *http.Request, field string) (bool, error) {
	value, err := parseRequest(r, field)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(value)
}

func parseIntRequest(r *http.Request, field string) (int, error) {
	value, err := parseRequest(r, field)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

func parseFloatRequest(r *http.Request, field string) (float64, error) {
	value, err := parseRequest(r, field)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(value, 64)
}
