// Package wasmutlog is a thin wrapper around logrus, giving the rest
// of wasmut a single logging interface that can be swapped or mocked
// in tests without depending on logrus types directly.
package wasmutlog

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// Fields aliases logrus.Fields.
type Fields = logrus.Fields

// Entry aliases logrus.Entry.
type Entry = logrus.Entry

// Logger is the interface every wasmut component logs through.
type Logger interface {
	Debug(...interface{})
	Debugf(string, ...interface{})

	Info(...interface{})
	Infof(string, ...interface{})

	Warn(...interface{})
	Warnf(string, ...interface{})

	Error(...interface{})
	Errorf(string, ...interface{})

	WithField(key string, value interface{}) *Entry
	WithFields(Fields) *Entry

	SetLevel(string) error
	SetOutput(io.Writer)

	WithContext(context.Context) Logger
}

type logger struct {
	entry *logrus.Entry
}

// NewLogger creates a standalone logger, independent of the package
// global.
func NewLogger() Logger {
	l := logrus.New()
	return logger{entry: logrus.NewEntry(l)}
}

func (l logger) WithContext(ctx context.Context) Logger {
	return logger{l.entry.WithContext(ctx)}
}

func (l logger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l logger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l logger) Info(args ...interface{}) { l.entry.Info(args...) }
func (l logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l logger) Warn(args ...interface{}) { l.entry.Warn(args...) }
func (l logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l logger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l logger) WithField(key string, value interface{}) *Entry {
	return l.entry.WithField(key, value)
}

func (l logger) WithFields(fields Fields) *Entry {
	return l.entry.WithFields(fields)
}

func (l logger) SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.entry.Logger.SetLevel(lvl)
	return nil
}

func (l logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

var (
	origLogger   = logrus.New()
	globalLogger = logger{entry: logrus.NewEntry(origLogger)}
)

// Global returns the package-wide default logger.
func Global() Logger {
	return globalLogger
}

// WithContext adds ctx to the global logger's entry.
func WithContext(ctx context.Context) Logger {
	return logger{globalLogger.entry.WithContext(ctx)}
}

func Debug(args ...interface{})                 { globalLogger.entry.Debug(args...) }
func Debugf(format string, args ...interface{}) { globalLogger.entry.Debugf(format, args...) }
func Info(args ...interface{})                  { globalLogger.entry.Info(args...) }
func Infof(format string, args ...interface{})  { globalLogger.entry.Infof(format, args...) }
func Warn(args ...interface{})                  { globalLogger.entry.Warn(args...) }
func Warnf(format string, args ...interface{})  { globalLogger.entry.Warnf(format, args...) }
func Error(args ...interface{})                 { globalLogger.entry.Error(args...) }
func Errorf(format string, args ...interface{}) { globalLogger.entry.Errorf(format, args...) }

// SetLevel sets the global logger's level, e.g. "debug", "info",
// "warn", "error".
func SetLevel(level string) error {
	return globalLogger.SetLevel(level)
}
