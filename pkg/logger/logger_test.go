package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		logFunc  func(string, ...any)
		logMsg   string
		expected bool
	}{
		{"Debug when debug level", "debug", Debug, "debug message", true},
		{"Debug when info level", "info", Debug, "debug message", false},
		{"Info when warn level", "warn", Info, "info message", false},
		{"Warn when info level", "info", Warn, "warn message", true},
		{"Error when info level", "info", Error, "error message", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetDefault(New(tt.logLevel, &buf))

			tt.logFunc(tt.logMsg)
			if tt.expected {
				assert.Contains(t, buf.String(), tt.logMsg)
			} else {
				assert.NotContains(t, buf.String(), tt.logMsg)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", &buf))

	With("run_id", "run-1").Info("solver exited", "exit_code", 0)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "solver exited", entry["msg"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, float64(0), entry["exit_code"])
}

func TestNewFormat(t *testing.T) {
	var buf bytes.Buffer
	NewFormat("text", "info", &buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")

	buf.Reset()
	NewFormat("JSON", "info", &buf).Info("structured")
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("{")), "expected JSON output, got %q", buf.String())
}

func TestOrAndDiscard(t *testing.T) {
	assert.Same(t, Default, Or(nil))
	d := Discard()
	assert.Same(t, d, Or(d))
	assert.NotPanics(t, func() { d.Error("dropped") })
}
