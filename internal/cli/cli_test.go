package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seqFlow = `
kind: batch
batches:
  - id: build
    image: ubuntu
    bash: make
  - id: test
    image: ubuntu
    needs: [build]
    bash: make test
`

func writeFlow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seq.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := Execute(context.Background(), args, out, errOut)
	return out.String(), errOut.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok, "expected *ExitError, got %T", err)
	return exitErr.Code
}

func TestExecute_Order(t *testing.T) {
	out, _, err := run(t, "order", "-o", "json", writeFlow(t, seqFlow))
	require.NoError(t, err)
	assert.JSONEq(t, `[["build"],["test"]]`, out)
}

func TestExecute_FlowFromEnv(t *testing.T) {
	t.Setenv("BURSTFLOW_FLOW", writeFlow(t, seqFlow))
	t.Setenv("BURSTFLOW_OUTPUT", "json")

	out, _, err := run(t, "inspect", "test")
	require.NoError(t, err)
	assert.Contains(t, out, `"cmd": "bash -euxo pipefail -c 'make test'"`)
}

func TestExecute_Plan(t *testing.T) {
	out, logs, err := run(t, "plan", "--fail", "build", writeFlow(t, seqFlow))
	require.NoError(t, err)
	assert.Contains(t, out, "result: failure")
	assert.Contains(t, out, "result: cancelled")
	assert.Contains(t, logs, "Plan finished.")
}

func TestExecute_Validate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.yml"), []byte(seqFlow), 0o644))
	out, _, err := run(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "id: ok")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("kind: nope\n"), 0o644))
	out, _, err = run(t, "validate", dir)
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, out, "error:")
}

func TestExecute_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		env  map[string]string
		code int
		want string
	}{
		{name: "unknown flag", args: []string{"order", "--nope"}, code: 2, want: "unknown flag"},
		{name: "unknown command", args: []string{"deploy"}, code: 2, want: "unknown command"},
		{name: "unknown command with flags", args: []string{"-o", "json", "deploy", "x.yml"}, code: 2, want: `unknown command "deploy"`},
		{name: "missing path", args: []string{"order"}, code: 2, want: "no flow path given"},
		{name: "too many args", args: []string{"order", "a", "b"}, code: 2, want: "accepts at most 1"},
		{name: "inspect without id", args: []string{"inspect"}, code: 2, want: "accepts between 1 and 2"},
		{name: "bad log level", args: []string{"order", "--log-level", "loud", "x.yml"}, code: 2, want: "invalid log-level"},
		{name: "bad log format from env", args: []string{"order", "x.yml"}, env: map[string]string{"BURSTFLOW_LOG_FORMAT": "xml"}, code: 2, want: "invalid log-format"},
		{name: "bad output", args: []string{"order", "-o", "toml", "x.yml"}, code: 2, want: "invalid output"},
		{name: "missing file", args: []string{"order", filepath.Join(os.TempDir(), "burstflow-missing.yml")}, code: 1, want: "failed to list flow files"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, _, err := run(t, tc.args...)
			assert.Equal(t, tc.code, exitCode(t, err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestExecute_Help(t *testing.T) {
	_, help, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, help, "Usage:")
	assert.Contains(t, help, "plan")
}

func TestExecute_NoArgs(t *testing.T) {
	out, help, err := run(t)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, help, "Usage:")
	assert.Contains(t, help, "validate")
}
