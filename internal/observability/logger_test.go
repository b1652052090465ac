package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies that parseLogLevel correctly parses log level
// strings, handling case-insensitivity and whitespace.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in     string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"INFO", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"debug", zap.DebugLevel},
		{"  warn  ", zap.WarnLevel},
		{"invalid", zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.in)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.expect)
		}
	}
}

// TestNewLogger_EnvOverridesConfig verifies LOG_LEVEL wins over the configured level.
func TestNewLogger_EnvOverridesConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")
	logger, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.Core().Enabled(zap.WarnLevel) {
		t.Error("warn level enabled, want LOG_LEVEL=ERROR to take precedence")
	}
	_ = FlushLogger(context.Background(), logger) // best-effort; can fail on /dev/stderr in test env
}

func TestFlushLogger_Nil(t *testing.T) {
	if err := FlushLogger(context.Background(), nil); err != nil {
		t.Errorf("FlushLogger(nil) error = %v", err)
	}
}

func TestLoggerFromContext(t *testing.T) {
	fallback := zap.NewNop()
	if got := LoggerFromContext(context.Background(), fallback); got != fallback {
		t.Error("LoggerFromContext() without logger should return fallback")
	}
	l := zap.NewExample()
	if got := LoggerFromContext(ContextWithLogger(context.Background(), l), fallback); got != l {
		t.Error("LoggerFromContext() should return the stored logger")
	}
}
