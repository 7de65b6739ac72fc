// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/els-search/pkg/types"
)

func TestNewConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, cleanup, err := New(types.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer cleanup()

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "WARN")
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, cleanup, err := New(types.LogConfig{Format: "json"}, &buf)
	require.NoError(t, err)

	log.Info("hello")
	cleanup()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "info", line["level"])
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "els-search.log")
	var buf bytes.Buffer
	log, cleanup, err := New(types.LogConfig{File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	log.Info("to file")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
	assert.Contains(t, buf.String(), "to file")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, _, err := New(types.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, _, err = New(types.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
