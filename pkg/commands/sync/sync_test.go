package sync

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dotm/pkg/paths"
)

func TestSyncOutsideGitRepoFails(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv(paths.EnvStateDir, t.TempDir())
	p, err := paths.New(t.TempDir(), false)
	require.NoError(t, err)

	_, err = Execute(Options{Paths: p})
	assert.Error(t, err)
}

func TestSyncCommitsChanges(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	t.Setenv(paths.EnvStateDir, t.TempDir())

	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		require.NoError(t, cmd.Run())
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "dotm.toml"), []byte("[dotm]\n"), 0644))

	p, err := paths.New(root, false)
	require.NoError(t, err)

	result, err := Execute(Options{Paths: p, Message: "sync dotfiles"})
	require.NoError(t, err)
	assert.True(t, result.Sync.Committed)
	assert.False(t, result.Sync.Pushed)
}
