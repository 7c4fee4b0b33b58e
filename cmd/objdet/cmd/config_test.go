package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objdet.yaml")

	output, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, output, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	detection, ok := parsed["detection"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 300, detection["target_size"])
	assert.InDelta(t, 0.5, detection["min_confidence"], 1e-9)
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objdet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o600))

	_, err := execute(t, "config", "init", path)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log_level: debug\n", string(data))
}

func TestConfigShow(t *testing.T) {
	output, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "target_size")
	assert.Contains(t, output, "min_confidence")
}

func TestConfigShowJSON(t *testing.T) {
	output, err := execute(t, "config", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, output, `"target_size": 300`)
}

func TestConfigPaths(t *testing.T) {
	output, err := execute(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, output, "/etc/objdet")
}
