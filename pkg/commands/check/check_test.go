package check

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dotm/pkg/paths"
)

func setup(t *testing.T, rootToml string, files map[string]string) *paths.Paths {
	t.Helper()
	root := t.TempDir()
	t.Setenv(paths.EnvStateDir, t.TempDir())

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write("dotm.toml", rootToml)
	for rel, content := range files {
		write(rel, content)
	}

	p, err := paths.New(root, false)
	require.NoError(t, err)
	return p
}

func TestCheckCleanConfig(t *testing.T) {
	p := setup(t, "[packages.shell]\n", map[string]string{
		"packages/shell/.bashrc": "x\n",
	})

	result, err := Execute(Options{Paths: p})
	require.NoError(t, err)
	assert.True(t, result.Clean())
	assert.Empty(t, result.Warnings)
}

func TestCheckAggregatesEverything(t *testing.T) {
	rootToml := `
[packages.shell]
depends = ["nope"]

[packages.etc]
system = true

[packages.ssh]

[packages.ssh.permissions]
"config" = "not-octal"
`
	p := setup(t, rootToml, map[string]string{
		"packages/shell/.bashrc": "x\n",
		"packages/ssh/config":    "x\n",
		"roles/base.toml":        "packages = [\"ghost\"]\n",
		"hosts/myhost.toml":      "hostname = \"myhost\"\nroles = [\"missing-role\"]\n",
	})

	result, err := Execute(Options{Paths: p})
	require.NoError(t, err)
	assert.False(t, result.Clean())

	joined := ""
	for _, msg := range result.Errors {
		joined += msg + "\n"
	}
	// Unknown dependency, system package requirements, bad permissions,
	// missing package dir, role and host references: all in one report
	assert.Contains(t, joined, "nope")
	assert.Contains(t, joined, "etc")
	assert.Contains(t, joined, "not-octal")
	assert.Contains(t, joined, "directory missing")
	assert.Contains(t, joined, "ghost")
	assert.Contains(t, joined, "missing-role")
}

func TestCheckReportsCycleOnce(t *testing.T) {
	rootToml := `
[packages.a]
depends = ["b"]

[packages.b]
depends = ["a"]
`
	p := setup(t, rootToml, map[string]string{
		"packages/a/f": "x\n",
		"packages/b/f": "x\n",
	})

	result, err := Execute(Options{Paths: p})
	require.NoError(t, err)

	cycles := 0
	for _, msg := range result.Errors {
		if strings.Contains(msg, "circular") {
			cycles++
			assert.Contains(t, msg, "a")
			assert.Contains(t, msg, "b")
		}
	}
	assert.Equal(t, 1, cycles)
}

func TestCheckSuggestionWarnings(t *testing.T) {
	rootToml := `
[packages.shell]
suggests = ["fancy-prompt"]
`
	p := setup(t, rootToml, map[string]string{"packages/shell/f": "x\n"})

	result, err := Execute(Options{Paths: p})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	result, err = Execute(Options{Paths: p, WarnSuggestions: true})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "fancy-prompt")
	assert.True(t, result.Clean())
}
