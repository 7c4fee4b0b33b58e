package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/objdet/internal/filter"
	"github.com/MeKo-Tech/objdet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCommand(t *testing.T) {
	assert.True(t, strings.HasPrefix(detectCmd.Use, "detect"))
	assert.NotEmpty(t, detectCmd.Short)
	for _, name := range []string{"threshold", "format", "output", "overlay-dir", "workers", "mock-model", "separator", "dedup"} {
		assert.NotNil(t, detectCmd.Flags().Lookup(name), name)
	}
}

func TestDetectCommandWithoutFiles(t *testing.T) {
	_, err := execute(t, "detect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files")
}

func TestDetectCommandMissingFile(t *testing.T) {
	_, err := execute(t, "detect", "--mock-model", filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestDetectCommandInvalidFormat(t *testing.T) {
	img := testutil.WritePNG(t, t.TempDir(), "a.png", 40, 30)
	_, err := execute(t, "detect", "--mock-model", "--format", "xml", img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestDetectCommandInvalidThreshold(t *testing.T) {
	img := testutil.WritePNG(t, t.TempDir(), "a.png", 40, 30)
	_, err := execute(t, "detect", "--mock-model", "--threshold", "1.5", img)
	assert.Error(t, err)
}

func TestDetectCommandMockModelJSON(t *testing.T) {
	dir := t.TempDir()
	img := testutil.WritePNG(t, dir, "scene.png", 640, 480)
	out := filepath.Join(dir, "results.json")

	_, err := execute(t, "detect", "--mock-model", "--format", "json", "--output", out, img)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Len(t, parsed, 1)
	assert.Contains(t, parsed[0]["source"], "scene.png")
}

func TestDetectCommandThresholdOneReportsNothing(t *testing.T) {
	img := testutil.WritePNG(t, t.TempDir(), "scene.png", 320, 320)

	output, err := execute(t, "detect", "--mock-model", "--threshold", "1", img)
	require.NoError(t, err)
	assert.Contains(t, output, filter.NoDetections)
}

func TestDetectCommandOverlayDir(t *testing.T) {
	dir := t.TempDir()
	img := testutil.WritePNG(t, dir, "scene.png", 320, 240)
	overlays := filepath.Join(dir, "overlays")

	_, err := execute(t, "detect", "--mock-model", "--threshold", "0", "--overlay-dir", overlays, img)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(overlays, "scene_overlay.png"))
}

func TestDetectCommandStdin(t *testing.T) {
	data := testutil.EncodePNG(t, testutil.CreateGradientImage(64, 64))
	rootCmd.SetIn(strings.NewReader(string(data)))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	_, err := execute(t, "detect", "--mock-model", "-")
	assert.NoError(t, err)
}

func TestDetectCommandDirectory(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "a.png", 50, 50)
	testutil.WritePNG(t, dir, "b.png", 60, 40)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	output, err := execute(t, "detect", "--mock-model", "--format", "csv", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "source,index,category,label,score"))
}
