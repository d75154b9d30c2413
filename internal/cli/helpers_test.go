package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// noEnv hides the process environment from configuration loading.
func noEnv(string) (string, bool) { return "", false }

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return executeWith(t, &RootOptions{LookupEnv: noEnv}, args...)
}

func executeWith(t *testing.T, opts *RootOptions, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	cmd := newRootCommand(opts)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeHarness writes a harness that defines nothing the stand-in
// interpreters react to.
func writeHarness(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harness.js")
	require.NoError(t, os.WriteFile(path, []byte("function $ERROR(m) { throw new Error(m); }\n"), 0o644))
	return path
}
