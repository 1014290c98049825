package alpaca

import "errors"

var (
	ErrNotConnected           = errors.New("device is not connected")
	ErrPropertyNotImplemented = errors.New("property not implemented")
	ErrInvalidValue           = errors.New("invalid value")
)
