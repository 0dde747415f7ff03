package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name  string
		json  bool
		debug bool
		level zapcore.Level
	}{
		{name: "console info", level: zapcore.InfoLevel},
		{name: "json debug", json: true, debug: true, level: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.json, tt.debug)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !l.Core().Enabled(tt.level) {
				t.Fatalf("expected level %s to be enabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && l.Core().Enabled(zapcore.DebugLevel) {
				t.Fatalf("debug level must be disabled without debug flag")
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected a no-op logger for nil input")
	}

	l := zap.NewExample()
	if OrNop(l) != l {
		t.Fatalf("expected the provided logger to be returned")
	}
}
