package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_ConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "brollcut.log")

	log, err := New(Options{Level: "info", File: file, Console: &console})
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("render published", zap.String("candidate_id", "b1"))
	_ = log.Sync()

	assert.Contains(t, console.String(), "render published")
	assert.NotContains(t, console.String(), "hidden")

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	line := strings.TrimSpace(string(b))
	assert.Contains(t, line, `"message":"render published"`)
	assert.Contains(t, line, `"candidate_id":"b1"`)
	assert.Contains(t, line, `"level":"INFO"`)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"DEBUG": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
