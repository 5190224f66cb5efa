package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/burstflow/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_Plan(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "main.hcl")
	err := os.WriteFile(filePath, []byte(`
batch "hello" {
  image = "ubuntu"
  bash  = "echo hello"
}
`), 0o600)
	require.NoError(t, err, "failed to set up test file")

	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	require.NoError(t, run(context.Background(), out, logs, []string{"plan", filePath}))
	require.Contains(t, out.String(), "real_id: hello")
	require.Contains(t, out.String(), "pipefail -c")
}

func TestRun_ParseFailureIsValidation(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(`batch "a" {`), 0o600))

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"order", filePath})
	require.Error(t, err)
	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "failed to parse HCL file")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	logs := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), &bytes.Buffer{}, logs, []string{"-h"}))
	require.Contains(t, logs.String(), "Usage:")
}
