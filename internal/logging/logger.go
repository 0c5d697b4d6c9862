// Package logging decouples the extraction pipeline from the concrete logging
// backend. Components depend on Logger; the binary wires a logrus-backed
// adapter and tests use MockLogger.
package logging

import "sync"

// Logger is the structured logger every component receives.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithError returns a child logger carrying err.
	WithError(err error) Logger
	// WithField returns a child logger carrying one extra field.
	WithField(key string, value interface{}) Logger
	// WithFields returns a child logger carrying the given fields.
	WithFields(fields ...Field) Logger

	Fatal(msg string, fields ...Field)
	Fatalf(msg string, args ...interface{})
}

// Field is a structured key/value attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// GetLogger returns the process-wide logger, creating an info/text adapter on
// first use.
func GetLogger() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogrusAdapter("info", "text")
	}
	return defaultLogger
}

// SetLogger replaces the process-wide logger.
func SetLogger(l Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// OrDefault returns l, or the process-wide logger when l is nil.
func OrDefault(l Logger) Logger {
	if l == nil {
		return GetLogger()
	}
	return l
}
