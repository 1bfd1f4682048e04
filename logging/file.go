/*
DESCRIPTION
  file.go implements NewFileLogger, a rotating-file-backed Logger
  constructor built on lumberjack.Logger.

AUTHORS
  The mmsolver Authors.
*/

package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig holds the rotation settings as fields rather than
// package-level constants, since mmsolver is a library, not a single
// command.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewFileLogger returns a Logger that writes to a lumberjack-rotated
// file at the given verbosity.
func NewFileLogger(verbosity Level, cfg FileConfig, suppress []string) Logger {
	fileLog := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return New(verbosity, fileLog, suppress)
}
