package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02 15:04:05"

// LineFormatter renders entries as "<timestamp> [<LEVEL>] <message>".
type LineFormatter struct{}

// Format implements logrus.Formatter.
func (LineFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s [%s] %s\n",
		entry.Time.Format(timestampLayout),
		strings.ToUpper(entry.Level.String()),
		strings.TrimRight(entry.Message, "\n"))
	return b.Bytes(), nil
}

// ParseLevel maps a config level name to a logrus level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New creates a logger writing line-formatted entries to w.
func New(w io.Writer, level string) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)
	logger.SetFormatter(LineFormatter{})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// Open truncates the process log at path and returns a logger writing to it
// and to stderr. The caller closes the returned file when the run ends.
func Open(path string, level string) (*log.Logger, io.Closer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open process log: %w", err)
	}
	return New(io.MultiWriter(f, os.Stderr), level), f, nil
}
