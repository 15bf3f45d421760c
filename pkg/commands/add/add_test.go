package add

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/paths"
)

func setup(t *testing.T) (*paths.Paths, string, string) {
	t.Helper()
	root, target := t.TempDir(), t.TempDir()
	t.Setenv(paths.EnvStateDir, t.TempDir())

	dotmToml := fmt.Sprintf("[dotm]\ntarget = %q\n\n[packages.shell]\n", target)
	require.NoError(t, os.WriteFile(filepath.Join(root, "dotm.toml"), []byte(dotmToml), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "packages/shell"), 0755))

	p, err := paths.New(root, false)
	require.NoError(t, err)
	return p, root, target
}

func TestAddMovesFileIntoPackage(t *testing.T) {
	p, root, target := setup(t)

	file := filepath.Join(target, ".config", "app", "app.conf")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
	require.NoError(t, os.WriteFile(file, []byte("conf\n"), 0644))

	result, err := Execute(Options{Paths: p, Package: "shell", Files: []string{file}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(".config", "app", "app.conf")}, result.Added)

	moved := filepath.Join(root, "packages/shell/.config/app/app.conf")
	content, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "conf\n", string(content))
	assert.NoFileExists(t, file)
}

func TestAddUnknownPackage(t *testing.T) {
	p, _, target := setup(t)

	file := filepath.Join(target, ".x")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := Execute(Options{Paths: p, Package: "nope", Files: []string{file}})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownPackage))
}

func TestAddRejectsFileOutsideTarget(t *testing.T) {
	p, _, _ := setup(t)

	outside := filepath.Join(t.TempDir(), "elsewhere.conf")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

	_, err := Execute(Options{Paths: p, Package: "shell", Files: []string{outside}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestAddRefusesOverwriteWithoutForce(t *testing.T) {
	p, root, target := setup(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "packages/shell/.bashrc"), []byte("old\n"), 0644))

	file := filepath.Join(target, ".bashrc")
	require.NoError(t, os.WriteFile(file, []byte("new\n"), 0644))

	_, err := Execute(Options{Paths: p, Package: "shell", Files: []string{file}})
	require.Error(t, err)
	assert.FileExists(t, file)

	_, err = Execute(Options{Paths: p, Package: "shell", Files: []string{file}, Force: true})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, "packages/shell/.bashrc"))
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(content))
}

func TestAddMissingFile(t *testing.T) {
	p, _, target := setup(t)

	_, err := Execute(Options{Paths: p, Package: "shell",
		Files: []string{filepath.Join(target, "does-not-exist")}})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileNotFound))
}
