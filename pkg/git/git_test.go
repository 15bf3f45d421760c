package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}
	return dir
}

func TestIsRepo(t *testing.T) {
	dir := initRepo(t)
	assert.True(t, IsRepo(dir))
	assert.False(t, IsRepo(t.TempDir()))
}

func TestSyncOutsideRepoFails(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	_, err := Sync(t.TempDir(), "")
	assert.Error(t, err)
}

func TestSyncCleanRepo(t *testing.T) {
	dir := initRepo(t)

	result, err := Sync(dir, "")
	require.NoError(t, err)
	assert.True(t, result.Clean)
	assert.False(t, result.Committed)

	// No remote configured, so nothing was pulled or pushed
	assert.False(t, result.Pulled)
	assert.False(t, result.Pushed)
}

func TestSyncCommitsDirtyTree(t *testing.T) {
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dotm.toml"), []byte("[dotm]\n"), 0644))

	result, err := Sync(dir, "add root config")
	require.NoError(t, err)
	assert.False(t, result.Clean)
	assert.True(t, result.Committed)

	log := exec.Command("git", "log", "-1", "--format=%s")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Equal(t, "add root config\n", string(out))
}
