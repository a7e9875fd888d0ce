// Package audit writes the daily report of files seen by a run.
//
// There is one report per calendar day. A later run on the same day
// replaces the earlier report instead of appending to it.
package audit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mahyarmirrashed/dirclean/internal/scanner"
)

// Action is the verb written on the count line.
type Action string

const (
	Found   Action = "Found"
	Deleted Action = "Deleted"
)

const (
	filePrefix      = "directory-cleaner_"
	fileExt         = ".log"
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create log directory: %w", err)
	}
	return nil
}

// Path returns the audit log path for the day of now.
func Path(dir string, now time.Time) string {
	return filepath.Join(dir, filePrefix+now.Format(dateLayout)+fileExt)
}

// Write truncates path and writes the timestamp, the count line and one line per entry.
func Write(path string, action Action, entries []scanner.Entry, now time.Time) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create audit log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, now.Format(timestampLayout))
	fmt.Fprintf(w, "%s %d file(s)\n", action, len(entries))
	for _, e := range entries {
		fmt.Fprintf(w, "- %s\n", e.Name)
	}
	return w.Flush()
}
