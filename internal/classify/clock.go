package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NTPUnreachableMarker is printed by IOS ping when no echo came back.
const NTPUnreachableMarker = "Success rate is 0 percent"

// ClockState is the clock synchronisation column of the report.
type ClockState string

const (
	ClockNotSynced ClockState = "Clock not Sync"
	// ClockPending is held while the configuration batch is in flight.
	ClockPending ClockState = "Clock Sync Pending"
	ClockSynced  ClockState = "Clock in Sync"
)

var successRateRe = regexp.MustCompile(`Success rate is (\d+) percent(?: \((\d+)/(\d+)\))?`)

// NTPReachable is false only when the ping output carries the zero-success
// marker. Output without any success line counts as reachable.
func NTPReachable(pingOutput string) bool {
	return !strings.Contains(pingOutput, NTPUnreachableMarker)
}

// PingStats is the summary line of an IOS ping.
type PingStats struct {
	Percent  int
	Received int
	Sent     int
}

// PingSuccessRate extracts the success rate line. ok is false when the
// output has none.
func PingSuccessRate(pingOutput string) (PingStats, bool) {
	m := successRateRe.FindStringSubmatch(pingOutput)
	if m == nil {
		return PingStats{}, false
	}

	var stats PingStats

	stats.Percent, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		stats.Received, _ = strconv.Atoi(m[2])
		stats.Sent, _ = strconv.Atoi(m[3])
	}

	return stats, true
}

// ClockBatch is the configuration pushed to devices that reach the NTP
// server.
func ClockBatch(timezone, ntpServer string) []string {
	return []string{
		fmt.Sprintf("clock timezone %s", timezone),
		fmt.Sprintf("ntp server %s", ntpServer),
	}
}

// BatchRejections returns the IOS error lines ("% Invalid input...") found
// in a configuration transcript. They are reported, not acted upon.
func BatchRejections(transcript string) []string {
	var rejected []string

	for _, line := range strings.Split(transcript, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "% ") && !strings.HasPrefix(t, "% Note") {
			rejected = append(rejected, t)
		}
	}

	return rejected
}
