package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{" Error ", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestStdLogger_FiltersAndFormats(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerTo(&buf, LevelInfo)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "fetched source", map[string]interface{}{"source": "bulk-archive", "rows": 12})
	l.Error(ctx, errors.New("boom"), "save failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] fetched source | rows=12 source=bulk-archive")
	assert.Contains(t, out, "[ERROR] save failed | error: boom")
}

func TestZerologLogger_EmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLoggerTo(&buf, LevelWarn)
	ctx := context.Background()

	l.Info(ctx, "skipped")
	l.Warn(ctx, "source unavailable", map[string]interface{}{"source": "block-api"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "source unavailable", entry["message"])
	assert.Equal(t, "block-api", entry["source"])
}

func TestNew_SelectsImplementation(t *testing.T) {
	_, isZerolog := New(ParseFormat("JSON"), LevelInfo).(*ZerologLogger)
	assert.True(t, isZerolog)
	_, isStd := New(ParseFormat("anything"), LevelInfo).(*StdLogger)
	assert.True(t, isStd)
}
