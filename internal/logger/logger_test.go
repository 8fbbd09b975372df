package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONFormat(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var buf bytes.Buffer
	Setup(Config{Level: "debug", Format: FormatJSON, Output: &buf})

	log := Get()
	require.NotNil(t, log)
	log.Info("hello", map[string]interface{}{"project": "test"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test", entry["project"])
	assert.Equal(t, "info", entry["level"])
}

func TestSetup_OnlyOnce(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var first, second bytes.Buffer
	Setup(Config{Level: "info", Format: FormatJSON, Output: &first})
	Setup(Config{Level: "debug", Format: FormatJSON, Output: &second})

	Get().Info("once")
	assert.NotEmpty(t, first.Bytes())
	assert.Empty(t, second.Bytes())
}

func TestForceSetup_Reconfigures(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var buf bytes.Buffer
	Setup(Config{Level: "info", Format: FormatJSON, Output: &buf})
	ForceSetup(Config{Level: "error", Format: FormatJSON, Output: &buf})

	assert.Equal(t, zerolog.ErrorLevel, Get().GetLevel())
}

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		input string
		want  LogFormat
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"console", FormatConsole},
		{"", FormatConsole},
		{"anything", FormatConsole},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogFormat(tt.input), "input %q", tt.input)
	}
}

func TestLevelFiltering(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var buf bytes.Buffer
	Setup(Config{Level: "warn", Format: FormatJSON, Output: &buf})

	log := Get()
	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")

	assert.Contains(t, buf.String(), "kept")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestFromContext(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	Setup(Config{Level: "info", Format: FormatJSON, Output: &bytes.Buffer{}})

	child := Get().WithFields(map[string]interface{}{"task": "encoding"})
	ctx := NewContext(context.Background(), child)

	assert.Same(t, child, FromContext(ctx))
	assert.Same(t, Get(), FromContext(nil))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Debug("no panic")
	l.Info("no panic")
	l.Warn("no panic")
	l.Error("no panic")
	l.Infof("no panic %d", 1)
	assert.Equal(t, zerolog.NoLevel, l.GetLevel())
}
