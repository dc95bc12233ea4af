// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger returns the process logger and installs it as the slog default,
// so library packages logging through slog share its level and format.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: appName,
		Level:  log.InfoLevel,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportTimestamp(true)
	}
	slog.SetDefault(slog.New(logger))
	return logger
}

// componentLogger tags records with a component prefix (provision, dist,
// watch).
func componentLogger(l *log.Logger, component string) *slog.Logger {
	return slog.New(l.WithPrefix(component))
}
