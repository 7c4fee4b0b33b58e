package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand(t *testing.T) {
	assert.NotNil(t, testCmd)
	assert.Equal(t, "test", testCmd.Use)
	assert.NotEmpty(t, testCmd.Short)
}

func TestTestCommandHelp(t *testing.T) {
	buf := new(bytes.Buffer)
	testCmd.SetOut(buf)
	testCmd.SetErr(buf)
	t.Cleanup(func() { testCmd.SetOut(nil); testCmd.SetErr(nil) })

	require.NoError(t, testCmd.Help())
	output := strings.TrimSpace(buf.String())
	assert.Contains(t, output, "ONNX Runtime")
	assert.Contains(t, output, "Usage:")
}

func TestTestCommandExecution(t *testing.T) {
	output, err := execute(t, "test")

	// The runtime or the model may be missing; either path is acceptable.
	if err != nil {
		t.Logf("test command returned error (possibly due to missing ONNX Runtime): %v", err)
	}
	assert.Contains(t, output, "Testing ONNX Runtime setup")
}
