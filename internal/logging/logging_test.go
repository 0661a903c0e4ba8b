package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		" DEBUG ": LevelDebug,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
		"verbose": LevelInfo,
	} {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "WARN", LevelWarn.String())
}

func TestNewLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "isa", "gfx803")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "isa=gfx803")
	assert.NotContains(t, out, "\x1b[", "buffers are written without colors")
}

func TestWriter_SplitsLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(NewLogger(&buf, LevelDebug), LevelDebug, "tool output")

	_, err := w.Write([]byte("first\nsec"))
	assert.NoError(t, err)
	_, err = w.Write([]byte("ond\r\n\n"))
	assert.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("tool output")))
	assert.Contains(t, buf.String(), "line=first")
	assert.Contains(t, buf.String(), "line=second")

	_, _ = w.Write([]byte("tail"))
	assert.NotContains(t, buf.String(), "line=tail")
	w.Flush()
	assert.Contains(t, buf.String(), "line=tail")
}

func TestWriter_NilLogger(t *testing.T) {
	w := NewWriter(nil, LevelInfo, "x")
	n, err := w.Write([]byte("dropped\n"))
	assert.NoError(t, err)
	assert.Equal(t, 8, n)
}
