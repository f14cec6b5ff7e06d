package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag causes cli.Parse to return shouldExit=true.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_MissingPlanFile(t *testing.T) {
	t.Parallel()

	args := []string{filepath.Join(t.TempDir(), "does-not-exist.hcl")}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.Error(t, err, "run() should fail when the host plan cannot be read")
}

func TestRun_ExecutesPlan(t *testing.T) {
	t.Parallel()

	planHCL := `
		call "first" {
			module = "Tally"
			type   = "Tally.Counter"
			member = "Bump"
		}
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "host.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(planHCL), 0600))

	args := []string{"-log-format", "text", filePath}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.NoError(t, err)
	require.Contains(t, out.String(), "first = 1")
}
