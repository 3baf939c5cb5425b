// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the structured logger used across Journey
// Dynamics. It exposes a small level + fields interface so call sites never
// depend on a concrete logging library; the default implementation is
// backed by logrus.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level represents a log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger provides structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

// Field represents a key-value pair in structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// NewField creates a new field.
func NewField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// loggerImpl adapts the Logger interface to a logrus.Entry.
type loggerImpl struct {
	entry *logrus.Entry
}

// NewLogger creates a new logger writing to stdout.
// If verbose is true, Debug level logs are shown.
func NewLogger(verbose bool) Logger {
	return NewLoggerWithOutput(verbose, os.Stdout)
}

// NewLoggerWithOutput creates a new logger writing to the given writer,
// primarily for tests that need to inspect log output.
func NewLoggerWithOutput(verbose bool, out io.Writer) Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})

	level := LevelInfo
	if verbose {
		level = LevelDebug
	}
	base.SetLevel(level.logrusLevel())

	return &loggerImpl{entry: logrus.NewEntry(base)}
}

func toLogrusFields(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Warn(msg)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Error(msg)
}

func (l *loggerImpl) WithFields(fields ...Field) Logger {
	return &loggerImpl{entry: l.entry.WithFields(toLogrusFields(fields))}
}
