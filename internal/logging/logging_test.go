package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "warn"})

	log.Info("hidden")
	log.Warn("shown", "vmid", 100)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "vmid=100")
}

func TestNew_MuteKeepsErrors(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "debug", Mute: true})

	log.Info("progress")
	log.Warn("warning")
	log.Error("failure")

	out := buf.String()
	assert.NotContains(t, out, "progress")
	assert.NotContains(t, out, "warning")
	assert.Contains(t, out, "failure")
}

func TestNew_JSONWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Format: "json"}).With("component", "worker")
	log.Info("done", "vmid", 101)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "worker", rec["component"])
	assert.Equal(t, float64(101), rec["vmid"])
	assert.Equal(t, "done", rec["msg"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
