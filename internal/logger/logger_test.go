package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf})

	log.Debug("hidden")
	log.Info("event added", "event_id", "e1", "year", 2017)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "event added", entry["msg"])
	assert.Equal(t, "e1", entry["event_id"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewDevelopmentWritesTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Dev: true, Output: &buf})

	log.Debug("timeline selected", "timeline_id", "timeline-abc")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "timeline_id=timeline-abc")
}

func TestInitSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	l := Init(Options{Output: &buf})
	assert.Same(t, l, Log)

	slog.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
