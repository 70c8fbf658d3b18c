package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		level      string
		enabled    zapcore.Level
		disabled   zapcore.Level
	}{
		{"development defaults to debug", false, "", zapcore.DebugLevel, zapcore.InvalidLevel},
		{"production defaults to info", true, "", zapcore.InfoLevel, zapcore.DebugLevel},
		{"override", true, "warn", zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.production, tt.level)
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			if !l.Core().Enabled(tt.enabled) {
				t.Errorf("%v disabled", tt.enabled)
			}
			if tt.disabled != zapcore.InvalidLevel && l.Core().Enabled(tt.disabled) {
				t.Errorf("%v enabled", tt.disabled)
			}
		})
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(false, "verbose"); err == nil {
		t.Fatal("unknown level accepted")
	}
}
