package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestCategoryLoggersAreNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	InitializeWithCore(core, Config{DebugMode: true})
	t.Cleanup(func() { InitializeWithCore(zapcore.NewNopCore(), Config{}) })

	Get(CategoryGeneration).Infow("Content generated", "attempt", 2)
	GenerationWarn("JSON parse failed on attempt %d", 1)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "generation", entries[0].LoggerName)
	assert.Equal(t, "Content generated", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["attempt"])
	assert.Equal(t, "JSON parse failed on attempt 1", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestDisabledCategoryIsSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	InitializeWithCore(core, Config{
		DebugMode:  true,
		Categories: map[string]bool{"options": false, "pipeline": true},
	})
	t.Cleanup(func() { InitializeWithCore(zapcore.NewNopCore(), Config{}) })

	assert.False(t, IsCategoryEnabled(CategoryOptions))
	assert.True(t, IsCategoryEnabled(CategoryPipeline))
	assert.True(t, IsCategoryEnabled(CategoryMCP), "unlisted categories stay enabled")

	Get(CategoryOptions).Error("should be dropped")
	Pipeline("run started")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "run started", logs.All()[0].Message)
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	InitializeWithCore(core, Config{DebugMode: true})
	t.Cleanup(func() { InitializeWithCore(zapcore.NewNopCore(), Config{}) })

	Get(CategoryPipeline).With("run_id", "abc").Info("step %d", 1)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc", logs.All()[0].ContextMap()["run_id"])
}

func TestInitializeWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facetforge.log")
	require.NoError(t, Initialize(Config{Level: "debug", File: path}))
	t.Cleanup(func() {
		CloseAll()
		InitializeWithCore(zapcore.NewNopCore(), Config{})
	})

	Get(CategoryBoot).Info("hello %s", "file")
	_ = Sync() // stderr sync may report EINVAL; the file core writes through

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"category":"boot"`), line)
	assert.True(t, strings.Contains(line, `"message":"hello file"`), line)
	assert.False(t, IsDebugMode())
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Initialize(Config{Level: "loud"}))
}
