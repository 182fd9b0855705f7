package config

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ParseLevel accepts debug, info, warn and error. Empty means info.
func ParseLevel(level string) (log.Level, error) {
	if level == "" {
		return log.InfoLevel, nil
	}
	l, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// NewLogger builds a timestamped logger writing to w. An unknown level
// falls back to info.
func NewLogger(w io.Writer, level string) *log.Logger {
	l, _ := ParseLevel(level)
	return log.NewWithOptions(w, log.Options{
		Level:           l,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
}

// OpenLogFile truncates and opens path for a TUI session's log.
func OpenLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// OpenHistoryFile opens path for appending hand histories.
func OpenHistoryFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open hand history: %w", err)
	}
	return f, nil
}
