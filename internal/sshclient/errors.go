package sshclient

import (
	"errors"
	"fmt"
)

var (
	errTimeout      = errors.New("timed out waiting for device")
	errClosed       = errors.New("session closed by device")
	errEnableFailed = errors.New("privileged mode not granted")
)

// TransportError is any connection, authentication or command failure on
// the way to a device.
type TransportError struct {
	Address string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Address, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
