package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cvmgrid/internal/model"
)

// writeScript installs a fake engine program into dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExecBackend_EchoesStdin(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "echo_engine", "echo banner\ncat\n")

	out, err := NewExecBackend(0).Run(context.Background(), Invocation{Program: path}, []byte("1 2 3\n4 5 6\n"))
	require.NoError(t, err)
	assert.Equal(t, "banner\n1 2 3\n4 5 6\n", string(out))
}

func TestExecBackend_MergesStderr(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "noisy_engine", "echo 'WARNING: noisy' 1>&2\n")

	out, err := NewExecBackend(0).Run(context.Background(), Invocation{Program: path}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "WARNING: noisy")
}

func TestExecBackend_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "failing_engine", "echo 'model not found'\nexit 3\n")

	_, err := NewExecBackend(0).Run(context.Background(), Invocation{Program: path}, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrProtocol))
	assert.Contains(t, err.Error(), "status 3")
	assert.Contains(t, err.Error(), "model not found")
}

func TestExecBackend_Missing(t *testing.T) {
	_, err := NewExecBackend(0).Run(context.Background(),
		Invocation{Program: filepath.Join(t.TempDir(), "no_such_engine")}, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrProtocol))
}

func TestExecBackend_Timeout(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "slow_engine", "exec sleep 5\n")

	start := time.Now()
	_, err := NewExecBackend(100*time.Millisecond).Run(context.Background(), Invocation{Program: path}, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrProtocol))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestClient_WithExecBackend(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	writeScript(t, bin, ProgramQuery,
		"echo 'Using Geo Depth coordinates as default mode.'\n"+
			"while read lon lat z; do echo \"$lon $lat $z 0 0 m 0 0 0 n 0 0 0 c 1500.0 800.0 2100.0\"; done\n")

	c := NewClient(Config{InstallDir: dir, Timeout: 10 * time.Second}, nil)
	mats, err := c.Materials(context.Background(), "cvms5", points(3))
	require.NoError(t, err)
	require.Len(t, mats, 3)
	for _, m := range mats {
		assert.Equal(t, model.NewMaterialProperty(1500, 800, 2100), m)
	}
}
