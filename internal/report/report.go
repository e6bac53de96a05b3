// Package report collects one line per device and renders the final
// synchronisation report.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"netsync/internal/classify"
)

// Separator is printed between the progress output and the report lines.
var Separator = strings.Repeat("-*", 10)

// Status is the per-device outcome.
type Status string

const (
	StatusOK     Status = "OK"
	StatusFailed Status = "FAILED"
)

// Entry is the result of one device.
type Entry struct {
	Hostname string
	Address  string
	Status   Status
	Reason   string

	Hardware   string
	Version    string
	ImageState classify.ImageState
	CDP        classify.CDPResult
	Clock      classify.ClockState

	// Backup is the running-config dump path. BackupErr is set instead when
	// the dump could not be written; it never fails the device.
	Backup    string
	BackupErr error
}

// Name is the hostname, or the address when the hostname was never learned.
func (e Entry) Name() string {
	if e.Hostname != "" {
		return e.Hostname
	}

	return e.Address
}

// Line renders the entry as a report line.
func (e Entry) Line() string {
	if e.Status == StatusFailed {
		return fmt.Sprintf("%s |%s |%s", e.Name(), StatusFailed, e.Reason)
	}

	return fmt.Sprintf("%s |%s |%s |%s |CDP is %s,%d peers |%s",
		e.Name(), e.Hardware, e.Version, e.ImageState, e.CDP.State, e.CDP.Peers, e.Clock)
}

// Report is an append-only, ordered list of entries.
type Report struct {
	entries []Entry
	status  map[string]Status
}

// New returns an empty report.
func New() *Report {
	return &Report{status: make(map[string]Status)}
}

// Add appends e. Entries are never merged, even for repeated hostnames;
// the status map keeps the latest outcome per name.
func (r *Report) Add(e Entry) {
	if e.Status == "" {
		e.Status = StatusOK
	}

	r.entries = append(r.entries, e)
	r.status[e.Name()] = e.Status
}

// Entries returns a copy of the entries in insertion order.
func (r *Report) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Lines renders every entry.
func (r *Report) Lines() []string {
	lines := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		lines = append(lines, e.Line())
	}

	return lines
}

// Status returns the latest outcome recorded for host.
func (r *Report) Status(host string) (Status, bool) {
	s, ok := r.status[host]
	return s, ok
}

// Counts returns the number of successful and failed entries.
func (r *Report) Counts() (ok, failed int) {
	for _, e := range r.entries {
		if e.Status == StatusFailed {
			failed++
		} else {
			ok++
		}
	}

	return ok, failed
}

// WriteTo prints the separator followed by one line per entry.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := fmt.Fprintln(w, Separator)
	total += int64(n)
	if err != nil {
		return total, err
	}

	for _, line := range r.Lines() {
		n, err := fmt.Fprintln(w, line)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// WriteSummaryFile writes SUMMARY_<ts>.log into dir with totals and one row
// per device, and returns its path.
func (r *Report) WriteSummaryFile(dir, runID string, ts time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create summary directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("SUMMARY_%s.log", ts.Format("20060102_150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create summary: %w", err)
	}
	defer f.Close()

	if err := r.writeSummary(f, runID, ts); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	return path, f.Close()
}

func (r *Report) writeSummary(w io.Writer, runID string, ts time.Time) error {
	rule := strings.Repeat("=", 80)
	dash := strings.Repeat("-", 80)

	ok, failed := r.Counts()
	total := ok + failed

	rate := 0.0
	if total > 0 {
		rate = float64(ok) / float64(total) * 100
	}

	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, " netsync run summary")
	fmt.Fprintf(&b, " Run: %s | Time: %s\n", runID, ts.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, " Total: %d | Success: %d | Failed: %d | Rate: %.1f%%\n\n", total, ok, failed, rate)
	fmt.Fprintf(&b, "%-20s %-15s %-8s %s\n", "HOSTNAME", "ADDRESS", "STATUS", "DETAIL")
	fmt.Fprintln(&b, dash)

	for _, e := range r.entries {
		detail := string(e.Clock)
		if e.Status == StatusFailed {
			detail = e.Reason
		}

		fmt.Fprintf(&b, "%-20s %-15s %-8s %s\n", e.Name(), e.Address, e.Status, detail)
	}

	fmt.Fprintln(&b, dash)

	_, err := io.WriteString(w, b.String())

	return err
}
