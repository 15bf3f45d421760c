package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("content of "+rel), 0644))
	return path
}

func findAction(t *testing.T, actions []FileAction, rel string) FileAction {
	t.Helper()
	for _, a := range actions {
		if a.TargetRelPath == rel {
			return a
		}
	}
	t.Fatalf("no action for %s", rel)
	return FileAction{}
}

func TestPlainFilesAreBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".bashrc")
	writeFile(t, dir, ".config/app/app.conf")

	actions, err := ScanPackage(dir, "myhost", nil)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	bashrc := findAction(t, actions, ".bashrc")
	assert.Equal(t, KindBase, bashrc.Kind)
	appconf := findAction(t, actions, filepath.Join(".config", "app", "app.conf"))
	assert.Equal(t, KindBase, appconf.Kind)
}

func TestHostOverrideWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.conf")
	hostVariant := writeFile(t, dir, "app.conf##host.myhost")
	writeFile(t, dir, "app.conf##role.desktop")

	actions, err := ScanPackage(dir, "myhost", []string{"desktop"})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, hostVariant, actions[0].Source)
	assert.Equal(t, KindOverride, actions[0].Kind)
	assert.Equal(t, "app.conf", actions[0].TargetRelPath)
}

func TestRoleOverrideWhenHostDoesNotMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.conf")
	writeFile(t, dir, "app.conf##host.myhost")
	roleVariant := writeFile(t, dir, "app.conf##role.desktop")

	actions, err := ScanPackage(dir, "otherhost", []string{"desktop"})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, roleVariant, actions[0].Source)
	assert.Equal(t, KindOverride, actions[0].Kind)
}

func TestBaseWhenNothingMatches(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "app.conf")
	writeFile(t, dir, "app.conf##host.myhost")
	writeFile(t, dir, "app.conf##role.desktop")

	actions, err := ScanPackage(dir, "otherhost", []string{"server"})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, base, actions[0].Source)
	assert.Equal(t, KindBase, actions[0].Kind)
}

func TestLastMatchingRoleWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.conf##role.base")
	specific := writeFile(t, dir, "app.conf##role.desktop")

	actions, err := ScanPackage(dir, "anyhost", []string{"base", "desktop"})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, specific, actions[0].Source)

	// Reversing the role order flips the winner
	actions, err = ScanPackage(dir, "anyhost", []string{"desktop", "base"})
	require.NoError(t, err)
	assert.Contains(t, actions[0].Source, "##role.base")
}

func TestTemplateDetection(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, ".gitconfig.tera")

	actions, err := ScanPackage(dir, "myhost", nil)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, tmpl, actions[0].Source)
	assert.Equal(t, KindTemplate, actions[0].Kind)
	assert.Equal(t, ".gitconfig", actions[0].TargetRelPath)
}

func TestOverrideBeatsTemplate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitconfig.tera")
	override := writeFile(t, dir, ".gitconfig##role.work")

	actions, err := ScanPackage(dir, "myhost", []string{"work"})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, override, actions[0].Source)
	assert.Equal(t, KindOverride, actions[0].Kind)
}

func TestTemplateBeatsBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitconfig")
	tmpl := writeFile(t, dir, ".gitconfig.tera")

	actions, err := ScanPackage(dir, "myhost", nil)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, tmpl, actions[0].Source)
}

func TestOverridesWithoutBaseFile(t *testing.T) {
	dir := t.TempDir()
	variant := writeFile(t, dir, "app.conf##role.desktop")

	actions, err := ScanPackage(dir, "myhost", []string{"desktop"})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, variant, actions[0].Source)
	assert.Equal(t, "app.conf", actions[0].TargetRelPath)
}

func TestOutputSortedByTargetPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zsh/zshrc")
	writeFile(t, dir, "bash/bashrc")
	writeFile(t, dir, "alacritty.yml")

	actions, err := ScanPackage(dir, "myhost", nil)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, "alacritty.yml", actions[0].TargetRelPath)
	assert.Equal(t, filepath.Join("bash", "bashrc"), actions[1].TargetRelPath)
	assert.Equal(t, filepath.Join("zsh", "zshrc"), actions[2].TargetRelPath)
}

func TestNestedVariants(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".config/kitty/kitty.conf")
	variant := writeFile(t, dir, ".config/kitty/kitty.conf##host.laptop")

	actions, err := ScanPackage(dir, "laptop", nil)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, variant, actions[0].Source)
	assert.Equal(t, filepath.Join(".config", "kitty", "kitty.conf"), actions[0].TargetRelPath)
}

func TestMissingDirectoryErrors(t *testing.T) {
	_, err := ScanPackage(filepath.Join(t.TempDir(), "nope"), "h", nil)
	assert.Error(t, err)
}
