// Package classify turns raw command output and parsed template records
// into the states the report shows: CDP on/off with peer count, PE/NPE
// image, and NTP reachability.
package classify

import (
	"errors"
	"fmt"
)

// ErrNoVersionRecord is wrapped by the ParseError returned when show version
// output yields no record at all.
var ErrNoVersionRecord = errors.New("no version record found")

// ParseError reports output that does not have the shape a classifier needs.
type ParseError struct {
	Command string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
