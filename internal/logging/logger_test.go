package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInit_LevelAndFormat(t *testing.T) {
	Init("debug", "json")
	assert.Equal(t, zerolog.DebugLevel, Logger().GetLevel())

	Init("error", "console")
	assert.Equal(t, zerolog.ErrorLevel, Logger().GetLevel())

	Init("unknown", "console")
	assert.Equal(t, zerolog.InfoLevel, Logger().GetLevel())
}

func TestHelpers_EmitWithoutPanic(t *testing.T) {
	Init("debug", "json")

	Debug("planning", "resources", 3, "targets", 0)
	Info("applying", "address", "Thing.a")
	Warn("retrying", "attempt", 2)
	Error("failed", "error", "boom")

	// Odd or non-string keys are dropped, not fatal.
	Info("partial fields", "key")
	Info("bad key", 42, "value")
}
