// Package testutil holds helpers shared by tests: a deterministic clock and
// stand-in interpreters written as shell scripts.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// Shell bodies for common stand-in interpreters. $1 is the script path.
const (
	// Silent prints nothing, as an engine does for a passing test.
	Silent = `exit 0`

	// Echo prints the script it was given.
	Echo = `cat "$1"`

	// Throwing prints an uncaught-exception report and exits non-zero.
	Throwing = `echo "Uncaught SyntaxError: unexpected token"; exit 1`

	// Judging reports an uncaught error when the script contains THROW
	// and stays silent otherwise.
	Judging = `if grep -q THROW "$1"; then echo "Uncaught Error: thrown" >&2; exit 1; fi`
)

// FakeInterpreter writes an executable shell script with body into a
// temporary directory and returns its path.
func FakeInterpreter(t testing.TB, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script interpreters need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-js")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// WriteFiles creates files under root. Keys are slash-separated paths
// relative to root.
func WriteFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}
