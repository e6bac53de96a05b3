package classify

import (
	"fmt"
	"strings"

	"netsync/internal/textfsm"
)

// CDPDisabledMarker is printed by IOS when CDP is turned off globally.
const CDPDisabledMarker = "CDP is not enabled"

// CDPState is whether CDP runs on the device.
type CDPState string

const (
	CDPOn  CDPState = "ON"
	CDPOff CDPState = "OFF"
)

// CDPResult summarises show cdp neighbors.
type CDPResult struct {
	State CDPState
	Peers int
}

// CDP classifies show cdp neighbors output. The disabled marker decides the
// state on its own; the peer count is the number of records tmpl emits.
func CDP(raw string, tmpl *textfsm.Template) (CDPResult, error) {
	records, err := tmpl.ParseText(raw)
	if err != nil {
		return CDPResult{}, fmt.Errorf("parse cdp neighbors: %w", err)
	}

	state := CDPOn
	if strings.Contains(raw, CDPDisabledMarker) {
		state = CDPOff
	}

	return CDPResult{State: state, Peers: len(records)}, nil
}
