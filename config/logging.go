package config

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewLogger builds the process logger and installs it as the package default.
// Unknown levels fall back to warn.
func NewLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
	})
	log.SetDefault(logger)
	return logger
}
