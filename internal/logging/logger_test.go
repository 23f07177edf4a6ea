package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"garment-portal-backend/internal/config"
)

func TestNewWritesJSONToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.log")

	logger, err := New(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Named("chatsync").Info("session opened", zap.String("conversation_id", "c-1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "session opened", entry["msg"])
	assert.Equal(t, "chatsync", entry["logger"])
	assert.Equal(t, "c-1", entry["conversation_id"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "verbose"})
	assert.Error(t, err)
}

func TestNamedToleratesNil(t *testing.T) {
	assert.NotNil(t, Named(nil, "x"))
}
