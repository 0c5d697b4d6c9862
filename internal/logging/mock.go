package logging

import (
	"fmt"
	"sync"
)

// MockLogger records log calls so tests can assert on them. Child loggers
// created through WithField/WithFields/WithError share the parent's sink.
type MockLogger struct {
	sink    *mockSink
	fields  []Field
	err     error
	initMux sync.Once
}

type mockSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  []Field
	Error   error
}

// NewMockLogger returns an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{sink: &mockSink{}}
}

func (m *MockLogger) ensureSink() *mockSink {
	m.initMux.Do(func() {
		if m.sink == nil {
			m.sink = &mockSink{}
		}
	})
	return m.sink
}

func (m *MockLogger) record(level, msg string, fields []Field) {
	s := m.ensureSink()
	all := make([]Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)

	s.mu.Lock()
	s.entries = append(s.entries, LogEntry{Level: level, Message: msg, Fields: all, Error: m.err})
	s.mu.Unlock()
}

func (m *MockLogger) Debug(msg string, fields ...Field) { m.record("DEBUG", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...Field)  { m.record("INFO", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...Field)  { m.record("WARN", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...Field) { m.record("ERROR", msg, fields) }

// Fatal records the entry without exiting.
func (m *MockLogger) Fatal(msg string, fields ...Field) { m.record("FATAL", msg, fields) }

// Fatalf records the formatted entry without exiting.
func (m *MockLogger) Fatalf(msg string, args ...interface{}) {
	m.record("FATAL", fmt.Sprintf(msg, args...), nil)
}

func (m *MockLogger) WithError(err error) Logger {
	return &MockLogger{sink: m.ensureSink(), fields: m.fields, err: err}
}

func (m *MockLogger) WithField(key string, value interface{}) Logger {
	return m.WithFields(Field{Key: key, Value: value})
}

func (m *MockLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(m.fields)+len(fields))
	merged = append(merged, m.fields...)
	merged = append(merged, fields...)
	return &MockLogger{sink: m.ensureSink(), fields: merged, err: m.err}
}

// Entries returns a copy of everything captured so far.
func (m *MockLogger) Entries() []LogEntry {
	s := m.ensureSink()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// GetEntriesByLevel filters captured entries by level ("WARN", "INFO", ...).
func (m *MockLogger) GetEntriesByLevel(level string) []LogEntry {
	var out []LogEntry
	for _, e := range m.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// HasEntry reports whether a message was logged at level.
func (m *MockLogger) HasEntry(level, message string) bool {
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == message {
			return true
		}
	}
	return false
}

// Clear drops captured entries.
func (m *MockLogger) Clear() {
	s := m.ensureSink()
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}
