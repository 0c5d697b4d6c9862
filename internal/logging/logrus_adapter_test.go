package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		expectLevel logrus.Level
		expectJSON  bool
	}{
		{name: "debug text", level: "debug", format: "text", expectLevel: logrus.DebugLevel},
		{name: "info json", level: "info", format: "json", expectLevel: logrus.InfoLevel, expectJSON: true},
		{name: "upper case level", level: "WARN", format: "text", expectLevel: logrus.WarnLevel},
		{name: "invalid level falls back to info", level: "chatty", format: "text", expectLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogrusAdapter(tt.level, tt.format)
			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok)
			assert.Equal(t, tt.expectLevel, adapter.logger.Level)

			_, isJSON := adapter.logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.expectJSON, isJSON)
		})
	}
}

func TestLogrusAdapter_FieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetLevel(logrus.DebugLevel)

	logger := NewLogrusAdapterFromLogger(base).
		WithField(FieldFile, "statement.pdf").
		WithError(errors.New("boom"))
	logger.Warn("retrying", Field{Key: FieldAttempt, Value: 2})

	out := buf.String()
	assert.Contains(t, out, `"file_path":"statement.pdf"`)
	assert.Contains(t, out, `"attempt":2`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"level":"warning"`)
}

func TestNewLogrusAdapterFromLogger_Nil(t *testing.T) {
	logger := NewLogrusAdapterFromLogger(nil)
	require.NotNil(t, logger)
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	l := NewLogrusAdapter("debug", "json")
	SetLogger(l)
	assert.Same(t, l, GetLogger())

	adapter := l.(*LogrusAdapter)
	assert.Equal(t, logrus.DebugLevel, adapter.logger.Level)
}

func TestOrDefault(t *testing.T) {
	mock := NewMockLogger()
	assert.Same(t, Logger(mock), OrDefault(mock))
	assert.NotNil(t, OrDefault(nil))
}
