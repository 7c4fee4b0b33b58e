package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFCommand(t *testing.T) {
	assert.NotNil(t, pdfCmd)
	assert.NotNil(t, pdfCmd.Flags().Lookup("pages"))
	assert.NotNil(t, pdfCmd.Flags().Lookup("password"))
}

func TestPDFCommandWithoutFiles(t *testing.T) {
	_, err := execute(t, "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PDF files")
}

func TestPDFCommandInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o600))

	_, err := execute(t, "pdf", "--mock-model", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestPDFCommandInvalidPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	_, err := execute(t, "pdf", "--mock-model", "--pages", "x-y", path)
	assert.Error(t, err)
}
