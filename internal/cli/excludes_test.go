package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/t262/internal/suite"
)

func TestExcludes_Default(t *testing.T) {
	stdout, _, err := execute(t, "excludes")
	require.NoError(t, err)

	assert.Contains(t, stdout, "ch07/7.8/7.8.1/S7.8.1_A1_T2.js\t# RegExp\n")
	assert.Contains(t, stdout, "ch14/14.1/14.1-8-s.js\t# other directive\n")
	assert.Contains(t, stdout, "\n35 excluded test(s)\n")
}

func TestExcludes_FileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exclude:\n  - path: ch15/a.js\n  - path: ch15/b.js\n    reason: slow\n"), 0o644))

	stdout, _, err := execute(t, "excludes", "--no-default-excludes", "--exclude-file", path)
	require.NoError(t, err)
	assert.Equal(t, "ch15/a.js\nch15/b.js\t# slow\n\n2 excluded test(s)\n", stdout)
}

func TestExcludes_JSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "excludes", "--no-default-excludes")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   []suite.Exclusion `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestExcludes_BadFile(t *testing.T) {
	_, _, err := execute(t, "excludes", "--exclude-file", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load exclusions")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
