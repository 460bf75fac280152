package pkg

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			if got := GetLogLevel(); got != tt.level {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warning ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelWarn, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLogLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLogLevel(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	SetLogLevel(slog.LevelWarn)
	if Enabled(slog.LevelDebug) {
		t.Error("Enabled(debug) = true at warn level")
	}
	if !Enabled(slog.LevelError) {
		t.Error("Enabled(error) = false at warn level")
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, nil)
	logger.Warn("test message")
	if !strings.Contains(buf.String(), `"msg":"test message"`) {
		t.Errorf("JSON log output missing message: %s", buf.String())
	}
}

func TestComponentLogging(t *testing.T) {
	original := DefaultLogger
	originalLevel := GetLogLevel()
	defer func() {
		SetLogger(original)
		SetLogLevel(originalLevel)
	}()

	tests := []struct {
		name      string
		log       func(Component, string, ...any)
		component Component
	}{
		{"debug", LogDebug, ComponentReactor},
		{"info", LogInfo, ComponentEngine},
		{"warn", LogWarn, ComponentSequencer},
		{"error", LogError, ComponentTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetLogLevel(slog.LevelDebug)
			SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			tt.log(tt.component, tt.name+" message", "seq", 7)
			output := buf.String()
			if !strings.Contains(output, tt.name+" message") {
				t.Errorf("log missing message: %s", output)
			}
			if !strings.Contains(output, "component="+string(tt.component)) {
				t.Errorf("log missing component: %s", output)
			}
			if !strings.Contains(output, "seq=7") {
				t.Errorf("log missing attribute: %s", output)
			}
		})
	}
}
