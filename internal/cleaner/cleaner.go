package cleaner

import (
	"os"

	"github.com/mahyarmirrashed/dirclean/internal/scanner"
	log "github.com/sirupsen/logrus"
)

// Outcome is the result of processing one entry. Err is nil on success.
type Outcome struct {
	Entry scanner.Entry
	Err   error
}

// Cleaner removes scanned files one by one, logging each result.
type Cleaner struct {
	Log    log.FieldLogger
	Remove func(path string) error // Defaults to os.Remove
	DryRun bool                    // If true, don't remove files
}

// New returns a Cleaner that removes files with os.Remove.
func New(logger log.FieldLogger, dryRun bool) *Cleaner {
	return &Cleaner{Log: logger, Remove: os.Remove, DryRun: dryRun}
}

// Delete attempts to remove every entry. A failure is logged and recorded
// in its Outcome; the remaining entries are still processed.
func (c *Cleaner) Delete(entries []scanner.Entry) []Outcome {
	remove := c.Remove
	if remove == nil {
		remove = os.Remove
	}

	outcomes := make([]Outcome, 0, len(entries))
	for _, e := range entries {
		if c.DryRun {
			c.Log.Infof("[dry run] Would delete %s", e.Name)
			outcomes = append(outcomes, Outcome{Entry: e})
			continue
		}

		err := remove(e.Path)
		if err != nil {
			c.Log.Errorf("Failed to delete %s: %v", e.Name, err)
		} else {
			c.Log.Infof("Deleted %s", e.Name)
		}
		outcomes = append(outcomes, Outcome{Entry: e, Err: err})
	}
	return outcomes
}

// Failed returns the number of outcomes carrying an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
