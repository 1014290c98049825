package tcc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a command or query is issued
	// while the client has no open port.
	ErrNotConnected = errors.New("not connected to the TCC")

	// ErrConnection covers port open failures and write failures.
	ErrConnection = errors.New("connection error")

	// ErrValidation is returned when a command argument is outside its
	// documented domain. Nothing is written to the wire in that case.
	ErrValidation = errors.New("invalid argument")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
