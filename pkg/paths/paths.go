// Package paths provides centralized path handling for dotm.
// It implements XDG Base Directory specification compliance and resolves
// all well-known locations once, at process start, so library code never
// has to consult the environment.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/arthur-debert/dotm/pkg/errors"
)

// Environment variable names
const (
	// EnvDotfilesDir is the primary environment variable for the dotfiles location
	EnvDotfilesDir = "DOTM_DIR"

	// EnvStateDir overrides the state directory for dotm
	EnvStateDir = "DOTM_STATE_DIR"
)

// Well-known names inside the dotfiles repo and the state directory.
// These are not user-configurable.
const (
	// RootConfigFile is the name of the root configuration file
	RootConfigFile = "dotm.toml"

	// HostsDir holds per-host configuration files
	HostsDir = "hosts"

	// RolesDir holds per-role configuration files
	RolesDir = "roles"

	// StagingDirName is the staging directory inside the dotfiles repo
	StagingDirName = ".staged"

	// SystemStateDir is the state directory used in system mode
	SystemStateDir = "/var/lib/dotm"
)

// Paths resolves every location dotm reads or writes. Construct once in the
// command entry point and pass down explicitly.
type Paths struct {
	dotfilesRoot string
	stateDir     string
	systemMode   bool
}

// New resolves paths for the given dotfiles root. An empty root falls back
// to $DOTM_DIR, then ~/.dotfiles.
func New(dotfilesRoot string, systemMode bool) (*Paths, error) {
	root := dotfilesRoot
	if root == "" {
		root = os.Getenv(EnvDotfilesDir)
	}
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "cannot determine home directory")
		}
		root = filepath.Join(home, ".dotfiles")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid dotfiles root %q", root)
	}

	stateDir := os.Getenv(EnvStateDir)
	if stateDir == "" {
		if systemMode {
			stateDir = SystemStateDir
		} else {
			stateDir = filepath.Join(xdg.StateHome, "dotm")
		}
	}

	return &Paths{
		dotfilesRoot: abs,
		stateDir:     stateDir,
		systemMode:   systemMode,
	}, nil
}

// DotfilesRoot returns the root of the dotfiles repository
func (p *Paths) DotfilesRoot() string {
	return p.dotfilesRoot
}

// SystemMode reports whether the paths were resolved for system-mode operation
func (p *Paths) SystemMode() bool {
	return p.systemMode
}

// RootConfigPath returns the path of dotm.toml
func (p *Paths) RootConfigPath() string {
	return filepath.Join(p.dotfilesRoot, RootConfigFile)
}

// HostConfigPath returns the config path for a given host
func (p *Paths) HostConfigPath(hostname string) string {
	return filepath.Join(p.dotfilesRoot, HostsDir, hostname+".toml")
}

// RoleConfigPath returns the config path for a given role
func (p *Paths) RoleConfigPath(role string) string {
	return filepath.Join(p.dotfilesRoot, RolesDir, role+".toml")
}

// StateDir returns the directory holding the state file and blob stores
func (p *Paths) StateDir() string {
	return p.stateDir
}

// StagingDir returns the staging root. In system mode staged files live
// under the state directory so the repo checkout stays untouched by root.
func (p *Paths) StagingDir() string {
	if p.systemMode {
		return filepath.Join(p.stateDir, StagingDirName)
	}
	return filepath.Join(p.dotfilesRoot, StagingDirName)
}

// ExpandHome expands a leading ~ or ~/ to the user's home directory
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// ExpandPath expands ~ and $VAR references in a path. Referencing an
// undefined environment variable is an error, not a silent empty string.
func ExpandPath(path string) (string, error) {
	expanded := ExpandHome(path)

	var missing []string
	expanded = os.Expand(expanded, func(name string) string {
		val, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}
		return val
	})

	if len(missing) > 0 {
		return "", errors.Newf(errors.ErrInvalidInput,
			"undefined environment variable %s in path %q", missing[0], path)
	}
	return expanded, nil
}

// DisplayPath shortens an absolute path under $HOME to the ~/ form for output
func DisplayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(home, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	if rel == "." {
		return "~"
	}
	return fmt.Sprintf("~/%s", rel)
}
