package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet_NoopBeforeInitialize(t *testing.T) {
	install(zap.NewNop(), nil)
	// Must not panic.
	Get(CategoryWake).Info("hello %s", "world")
	Wake("still quiet")
}

func TestCategoryLoggersAreNamed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	InitializeWithCore(core)
	t.Cleanup(func() { install(zap.NewNop(), nil) })

	Tools("tool_call tool=%s", "read_file")
	StoreDebug("opened %d tables", 6)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "tools", entries[0].LoggerName)
	assert.Equal(t, "tool_call tool=read_file", entries[0].Message)
	assert.Equal(t, "store", entries[1].LoggerName)
	assert.Equal(t, zap.DebugLevel, entries[1].Level)
}

func TestDisabledCategoryIsSilent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	install(zap.New(core), map[string]bool{"weather": false})
	t.Cleanup(func() { install(zap.NewNop(), nil) })

	assert.False(t, IsCategoryEnabled(CategoryWeather))
	assert.True(t, IsCategoryEnabled(CategoryWake))

	Weather("fetched")
	Wake("woke")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "wake", logs.All()[0].LoggerName)
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	InitializeWithCore(core)
	t.Cleanup(func() { install(zap.NewNop(), nil) })

	Get(CategoryServer).With("fingerprint", "abc123").Warn("blocked")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc123", logs.All()[0].ContextMap()["fingerprint"])
}

func TestInitialize_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gpthome.log")
	require.NoError(t, Initialize(Config{Level: "debug", Format: "json", File: path}))
	t.Cleanup(func() { install(zap.NewNop(), nil) })

	Boot("booted")
	Sync()
	assert.FileExists(t, path)
}

func TestInitialize_BadLevel(t *testing.T) {
	err := Initialize(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestTimer(t *testing.T) {
	timer := StartTimer(CategoryWake, "cycle")
	time.Sleep(time.Millisecond)
	assert.Greater(t, timer.Stop(), time.Duration(0))
}
