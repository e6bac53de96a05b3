// Package backup writes raw device output to timestamped files.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout is the ISO-8601 layout used in dump file names.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// DiskWriteError reports a dump that could not be written.
type DiskWriteError struct {
	Path string
	Err  error
}

func (e *DiskWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *DiskWriteError) Unwrap() error { return e.Err }

// Writer saves dumps under a single output directory.
type Writer struct {
	dir string
}

// NewWriter returns a Writer rooted at dir. The directory is created on the
// first Save.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Path returns the file a dump for hostname taken at ts is written to.
func (w *Writer) Path(hostname string, ts time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s", hostname, ts.Format(TimestampLayout)))
}

// Save writes output verbatim to a new file and returns its path. An existing
// file with the same name is truncated.
func (w *Writer) Save(hostname string, ts time.Time, output string) (string, error) {
	path := w.Path(hostname, ts)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return path, &DiskWriteError{Path: path, Err: err}
	}

	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		return path, &DiskWriteError{Path: path, Err: err}
	}

	return path, nil
}
