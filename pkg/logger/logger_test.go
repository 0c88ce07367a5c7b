package logger_test

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/Meedux/ai-meal/pkg/logger"
)

func TestNewLevels(t *testing.T) {
	t.Parallel()

	log, err := logger.New("debug")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level should be enabled")
	}

	log, err = logger.New("")
	if err != nil {
		t.Fatalf("new default: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) || !log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("default level should be info")
	}

	if _, err := logger.New("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNamedNil(t *testing.T) {
	t.Parallel()
	if logger.Named(nil, "x") == nil {
		t.Fatalf("expected nop logger")
	}
}
