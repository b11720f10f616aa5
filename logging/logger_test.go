package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	l.Debug("hidden")
	l.Info("visible", "ticker", "AAPL")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"ticker":"AAPL"`)
}

func TestNewFileLogger_SplitsLevels(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	sl, path, err := newFileLogger(Options{
		Dir:          dir,
		FileLevel:    LogLevelDebug,
		ConsoleLevel: LogLevelWarn,
		Format:       "text",
		Console:      &console,
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025-03-14", "2025-03-14_09-26-53.log"), path)

	l := NewSlogAdapter(sl.With("logger", "Tools"))
	l.Debug("debug line")
	l.Info("Retrieving Stock Price of AAPL")
	l.Warn("slow provider")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	file := string(data)
	assert.Contains(t, file, "debug line")
	assert.Contains(t, file, "Retrieving Stock Price of AAPL")
	assert.Contains(t, file, "slow provider")
	assert.Contains(t, file, "logger=Tools")

	assert.NotContains(t, console.String(), "Retrieving")
	assert.Equal(t, 1, strings.Count(console.String(), "slow provider"))
}

func TestSetup_Once(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	l1, err := Setup(func(o *Options) { o.Dir = first; o.Console = nil })
	require.NoError(t, err)

	l2, err := Setup(func(o *Options) { o.Dir = second })
	require.NoError(t, err)

	assert.Same(t, l1, l2)
	assert.True(t, strings.HasPrefix(File(), first))

	entries, err := os.ReadDir(second)
	require.NoError(t, err)
	assert.Empty(t, entries)

	Named("Tools").Info("after setup")
	data, err := os.ReadFile(File())
	require.NoError(t, err)
	assert.Contains(t, string(data), "after setup")
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() {
		l.Debug("d")
		l.Info("i")
		l.Warn("w")
		l.Error("e")
	})
}
