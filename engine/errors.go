package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for setup/config-time failures, checked with
// errors.Is. Per-request outcomes never use these — they always go
// through core.ResponseCode/ws.SendResult, per spec.md §7. Grounded on
// api/errors.go's package-level sentinel-error style in the teacher repo.
var (
	ErrEngineClosed        = errors.New("engine: closed")
	ErrTransportInitFailed = errors.New("engine: transport initialization failed")
	ErrQueueFull           = errors.New("engine: pending queue full")
)

// Error wraps a sentinel with the operation that produced it, the same
// shape as the teacher's api.Error (Code/Message) but built around
// Go 1.13 error wrapping instead of a custom Code enum, since every
// caller-visible condition here already has a named sentinel.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
