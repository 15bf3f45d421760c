package diffcmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deploycmd "github.com/arthur-debert/dotm/pkg/commands/deploy"
	"github.com/arthur-debert/dotm/pkg/paths"
)

func setupDeployed(t *testing.T) (*paths.Paths, string) {
	t.Helper()
	root, target := t.TempDir(), t.TempDir()
	t.Setenv(paths.EnvStateDir, t.TempDir())

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write("dotm.toml", fmt.Sprintf("[dotm]\ntarget = %q\n\n[packages.shell]\n", target))
	write("hosts/myhost.toml", "hostname = \"myhost\"\nroles = [\"base\"]\n")
	write("roles/base.toml", "packages = [\"shell\"]\n")
	write("packages/shell/.bashrc", "line1\nline2\n")

	p, err := paths.New(root, false)
	require.NoError(t, err)
	_, err = deploycmd.Execute(deploycmd.Options{Paths: p, Host: "myhost"})
	require.NoError(t, err)
	return p, root
}

func TestDiffEmptyWhenClean(t *testing.T) {
	p, _ := setupDeployed(t)

	result, err := Execute(Options{Paths: p})
	require.NoError(t, err)
	assert.Empty(t, result.Diffs)
}

func TestDiffShowsDrift(t *testing.T) {
	p, root := setupDeployed(t)

	staged := filepath.Join(root, paths.StagingDirName, ".bashrc")
	require.NoError(t, os.WriteFile(staged, []byte("line1\nchanged2\n"), 0644))

	result, err := Execute(Options{Paths: p})
	require.NoError(t, err)
	require.Len(t, result.Diffs, 1)
	assert.Contains(t, result.Diffs[0].Text, "-line2")
	assert.Contains(t, result.Diffs[0].Text, "+changed2")
	assert.Contains(t, result.Diffs[0].Text, "deployed:")
	assert.Contains(t, result.Diffs[0].Text, "current:")
}

func TestDiffPathFilter(t *testing.T) {
	p, root := setupDeployed(t)

	staged := filepath.Join(root, paths.StagingDirName, ".bashrc")
	require.NoError(t, os.WriteFile(staged, []byte("changed\n"), 0644))

	result, err := Execute(Options{Paths: p, PathFilter: "no-such-path"})
	require.NoError(t, err)
	assert.Empty(t, result.Diffs)

	result, err = Execute(Options{Paths: p, PathFilter: ".bashrc"})
	require.NoError(t, err)
	assert.Len(t, result.Diffs, 1)
}
