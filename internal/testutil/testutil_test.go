package testutil

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteStubCreatesExecutableThatSucceeds(t *testing.T) {
	dir := t.TempDir()
	stubPath := filepath.Join(dir, "ok-stub")
	WriteStub(t, dir, "ok-stub")

	info, err := os.Stat(stubPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	assert.NoError(t, exec.Command(stubPath).Run())
}

func TestWriteStubWithExitCreatesExecutableWithRequestedExitCode(t *testing.T) {
	dir := t.TempDir()
	WriteStubWithExit(t, dir, "exit-stub", 7)

	err := exec.Command(filepath.Join(dir, "exit-stub")).Run()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected *exec.ExitError, got %v", err)
	assert.Equal(t, 7, exitErr.ExitCode())
}

func TestWriteStubPrintingEmitsOutputVerbatim(t *testing.T) {
	dir := t.TempDir()
	path := WriteStubPrinting(t, dir, "p44ipconf", "dhcp=on\nipaddr=10.0.0.2\nname='quoted'\n", 0)

	out, err := exec.Command(path).Output()
	require.NoError(t, err)
	assert.Equal(t, "dhcp=on\nipaddr=10.0.0.2\nname='quoted'\n", string(out))
}

func TestWriteStubPrintingExitCode(t *testing.T) {
	path := WriteStubPrinting(t, t.TempDir(), "restore", "archive too old", 1)

	out, err := exec.Command(path).Output()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Equal(t, "archive too old", string(out))
}

func TestWriteStubExpectArgHonorsRequiredArg(t *testing.T) {
	dir := t.TempDir()
	stubPath := filepath.Join(dir, "arg-stub")
	WriteStubExpectArg(t, dir, "arg-stub", "it's secret")

	assert.NoError(t, exec.Command(stubPath, "--flag", "it's secret").Run())
	assert.Error(t, exec.Command(stubPath, "--missing").Run())
}

func TestWriteScriptAppendsNewline(t *testing.T) {
	path := WriteScript(t, t.TempDir(), "echo", "echo hi")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho hi\n", string(data))
}
