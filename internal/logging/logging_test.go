package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, slog.LevelDebug, "json")
	require.NoError(t, err)

	log.Info("saved", "name", "example.com", "passphrase", "correcthorse", "encryptedData", "Zm9v", "secret_key", "s3cr3t")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "example.com", rec["name"])
	assert.Equal(t, Redacted, rec["passphrase"])
	assert.Equal(t, Redacted, rec["encryptedData"])
	assert.Equal(t, Redacted, rec["secret_key"])
	assert.NotContains(t, buf.String(), "correcthorse")
}

func TestRedactsInsideGroups(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, slog.LevelInfo, "text")
	require.NoError(t, err)

	log.Info("entry", slog.Group("req", "password", "hunter2", "length", 16))
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), "req.length=16")
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, slog.LevelWarn, "")
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestUnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, slog.LevelInfo, "xml")
	assert.Error(t, err)
}
