package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/beeep"
	log "github.com/sirupsen/logrus"
)

// AppName is used as the notification title and in log file names.
const AppName = "directory-cleaner"

// notify is swapped out in tests.
var notify = beeep.Notify

// ExpandTilde will resolve to the correct location on disk.
func ExpandTilde(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// SendNotification shows a desktop notification when enabled. Failures are
// logged as warnings on logger and otherwise ignored.
func SendNotification(logger log.FieldLogger, enabled bool, title string, message string) {
	if !enabled {
		return
	}
	if err := notify(title, message, ""); err != nil {
		logger.Warnf("Notification failed: %v", err)
	}
}
