package logger

import (
	"testing"

	"market-screener/src/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNewLoggerName(t *testing.T) {
	l := NewLogger(&models.MConfig{LogLevel: "ERROR"}, "Screener")
	assert.Equal(t, "Screener", l.Name())
	l.Info("not emitted at %s", "ERROR level")

	nop := NewNopLogger()
	nop.Warning("discarded %d", 1)
}
