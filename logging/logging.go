/*
DESCRIPTION
  logging.go implements the structured logger every mmsolver package
  logs through: a logging.New(verbosity, writer, suppress) constructor
  and level-method Logger interface, backed by zap so the concrete
  sink can be a rotating file (lumberjack) or any io.Writer.

AUTHORS
  The mmsolver Authors.
*/

// Package logging provides the leveled, structured Logger every
// mmsolver package writes diagnostics through: preflight warnings,
// per-iteration solve progress, and cancellation/termination
// reporting.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the logging verbosity threshold, lowest-to-highest
// severity, matching the teacher's logging.Debug..logging.Fatal
// ordering.
type Level int

// Recognised levels.
const (
	Debug Level = iota
	Info
	Warning
	Error
	Fatal
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warning:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	case Fatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the leveled logging surface mmsolver packages depend on.
// Each method takes a message plus an optional list of alternating
// key/value pairs, e.g. l.Warning(msg, "error", err).
type Logger interface {
	SetLevel(level Level)
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warning(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	Fatal(msg string, kv ...interface{})
}

type zapLogger struct {
	level    *zap.AtomicLevel
	sugar    *zap.SugaredLogger
	suppress []string
}

// New returns a Logger writing to w at the given verbosity. suppress
// names message prefixes to drop entirely, useful for silencing noisy
// per-iteration messages below a certain solve phase.
func New(verbosity Level, w io.Writer, suppress []string) Logger {
	atom := zap.NewAtomicLevelAt(verbosity.zapLevel())
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		atom,
	)
	logger := zap.New(core)
	return &zapLogger{level: &atom, sugar: logger.Sugar(), suppress: suppress}
}

func (l *zapLogger) SetLevel(level Level) { l.level.SetLevel(level.zapLevel()) }

func (l *zapLogger) suppressed(msg string) bool {
	for _, p := range l.suppress {
		if len(msg) >= len(p) && msg[:len(p)] == p {
			return true
		}
	}
	return false
}

func (l *zapLogger) Debug(msg string, kv ...interface{}) {
	if l.suppressed(msg) {
		return
	}
	l.sugar.Debugw(msg, kv...)
}

func (l *zapLogger) Info(msg string, kv ...interface{}) {
	if l.suppressed(msg) {
		return
	}
	l.sugar.Infow(msg, kv...)
}

func (l *zapLogger) Warning(msg string, kv ...interface{}) {
	if l.suppressed(msg) {
		return
	}
	l.sugar.Warnw(msg, kv...)
}

func (l *zapLogger) Error(msg string, kv ...interface{}) {
	if l.suppressed(msg) {
		return
	}
	l.sugar.Errorw(msg, kv...)
}

func (l *zapLogger) Fatal(msg string, kv ...interface{}) {
	l.sugar.Fatalw(msg, kv...)
}
