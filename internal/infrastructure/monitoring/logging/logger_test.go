package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestZapLogger_EmitsFields(t *testing.T) {
	log, logs := newObservedLogger(zapcore.DebugLevel)

	log.Info("analysis complete",
		String("pin", "14081020180000"),
		Int("comparables", 8),
		Float64("score", 56),
		Bool("cached", false),
		Duration("elapsed", 120*time.Millisecond),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "analysis complete", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "14081020180000", ctx["pin"])
	assert.Equal(t, int64(8), ctx["comparables"])
	assert.Equal(t, float64(56), ctx["score"])
	assert.Equal(t, false, ctx["cached"])
}

func TestZapLogger_ErrField(t *testing.T) {
	log, logs := newObservedLogger(zapcore.DebugLevel)

	log.Error("source fetch failed", Err(errors.New("connection reset")))
	require.Len(t, logs.All(), 1)
	assert.Equal(t, "connection reset", logs.All()[0].ContextMap()["error"])

	logs.TakeAll()
	log.Warn("no cause", Err(nil))
	assert.Equal(t, "<nil>", logs.All()[0].ContextMap()["error"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	log, logs := newObservedLogger(zapcore.DebugLevel)

	child := log.With(String("component", "comps")).Named("engine")
	child.Debug("scoring candidate")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "engine", entries[0].LoggerName)
	assert.Equal(t, "comps", entries[0].ContextMap()["component"])
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	log, logs := newObservedLogger(zapcore.WarnLevel)

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")
	assert.Equal(t, 1, logs.Len())
}

func TestNewLogger_Defaults(t *testing.T) {
	log, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNopLogger_IsSilentAndChainable(t *testing.T) {
	log := NewNopLogger()
	assert.NotPanics(t, func() {
		log.With(String("k", "v")).Named("x").Info("ignored")
	})
}

func TestDefaultLogger_SetAndGet(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	log, _ := newObservedLogger(zapcore.DebugLevel)
	SetDefault(log)
	assert.Equal(t, log, Default())

	// nil is ignored.
	SetDefault(nil)
	assert.Equal(t, log, Default())
}
