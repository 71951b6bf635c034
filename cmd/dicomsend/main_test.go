package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dicomsend dev\n", out)
}

func TestSampleCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exam")
	out, err := execute(t, "sample", dir, "--studies", "1", "--series", "1", "--instances", "2", "--noise", "1", "--rows", "0", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 studies, 2 instances and 1 other files")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestSampleCommandEdgeCasesAndCorruption(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "odd")
	out, err := execute(t, "sample", dir, "--studies", "1", "--series", "2", "--instances", "3", "--rows", "0", "--seed", "5",
		"--edge-cases", "100", "--corrupt", "2", "--corrupt-types", "malformed-lengths,missing-identifiers")
	require.NoError(t, err)
	assert.Contains(t, out, "6 instances carry edge cases, 2 are corrupted (2 will not catalog).")
}

func TestSampleCommandRejectsUnknownTypes(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "sample", dir, "--edge-cases", "10", "--edge-case-types", "old-dates")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown edge case type")

	_, err = execute(t, "sample", dir, "--corrupt", "1", "--corrupt-types", "siemens-csa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown corruption type")

	_, err = execute(t, "sample", dir, "--modality", "XX")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown modality")
}

func TestSendRequiresURL(t *testing.T) {
	_, err := execute(t, "send", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestSendRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dicomsend.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_studies: -2\n"), 0o644))
	_, err := execute(t, "--config", path, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_studies")
}

func TestLogLevelFlagValidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dicomsend.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: http://127.0.0.1:1/studies\nmax_studies: 3\n"), 0o644))

	_, err := execute(t, "--config", path, "--log-level", "verbose", "version")
	require.Error(t, err, "unknown level from the flag is refused")
}
