// Package config loads and validates dotm's three configuration documents:
// the root dotm.toml, per-host configs under hosts/, and per-role configs
// under roles/.
package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	dotmerr "github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/paths"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// rawBytesProvider implements a koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Loader exposes the root configuration and loads host/role documents on
// demand. It is the only component that touches TOML.
type Loader struct {
	paths *paths.Paths
	root  *RootConfig
}

// NewLoader reads and parses dotm.toml under the given paths
func NewLoader(p *paths.Paths) (*Loader, error) {
	rootPath := p.RootConfigPath()
	if _, err := os.Stat(rootPath); err != nil {
		return nil, dotmerr.Wrapf(err, dotmerr.ErrConfigLoad, "failed to read %s", rootPath)
	}

	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, dotmerr.Wrap(err, dotmerr.ErrInternal, "failed to load defaults")
	}
	if err := k.Load(file.Provider(rootPath), toml.Parser()); err != nil {
		return nil, dotmerr.Wrapf(err, dotmerr.ErrConfigParse, "failed to parse %s", rootPath)
	}

	var root RootConfig
	if err := k.Unmarshal("", &root); err != nil {
		return nil, dotmerr.Wrapf(err, dotmerr.ErrConfigParse, "failed to decode %s", rootPath)
	}
	if root.Packages == nil {
		root.Packages = make(map[string]*PackageConfig)
	}

	return &Loader{paths: p, root: &root}, nil
}

// Root returns the parsed root configuration
func (l *Loader) Root() *RootConfig {
	return l.root
}

// BaseDir returns the dotfiles root directory
func (l *Loader) BaseDir() string {
	return l.paths.DotfilesRoot()
}

// PackagesDir returns the directory holding package source trees
func (l *Loader) PackagesDir() string {
	return filepath.Join(l.paths.DotfilesRoot(), l.root.Dotm.PackagesDir)
}

// PackageDir returns the source directory of a single package
func (l *Loader) PackageDir(name string) string {
	return filepath.Join(l.PackagesDir(), name)
}

// LoadHost reads hosts/<hostname>.toml
func (l *Loader) LoadHost(hostname string) (*HostConfig, error) {
	path := l.paths.HostConfigPath(hostname)
	host := &HostConfig{}
	if err := l.loadDocument(path, host); err != nil {
		return nil, err
	}
	if host.Vars == nil {
		host.Vars = make(map[string]interface{})
	}
	return host, nil
}

// LoadRole reads roles/<name>.toml
func (l *Loader) LoadRole(name string) (*RoleConfig, error) {
	path := l.paths.RoleConfigPath(name)
	role := &RoleConfig{}
	if err := l.loadDocument(path, role); err != nil {
		return nil, err
	}
	if role.Vars == nil {
		role.Vars = make(map[string]interface{})
	}
	return role, nil
}

func (l *Loader) loadDocument(path string, out interface{}) error {
	if _, err := os.Stat(path); err != nil {
		return dotmerr.Wrapf(err, dotmerr.ErrConfigLoad, "config not found: %s", path)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return dotmerr.Wrapf(err, dotmerr.ErrConfigParse, "failed to parse %s", path)
	}
	if err := k.Unmarshal("", out); err != nil {
		return dotmerr.Wrapf(err, dotmerr.ErrConfigParse, "failed to decode %s", path)
	}
	return nil
}

// ListHosts returns the host names with a config document, sorted
func (l *Loader) ListHosts() ([]string, error) {
	return listTomlStems(filepath.Join(l.paths.DotfilesRoot(), paths.HostsDir))
}

// ListRoles returns the role names with a config document, sorted
func (l *Loader) ListRoles() ([]string, error) {
	return listTomlStems(filepath.Join(l.paths.DotfilesRoot(), paths.RolesDir))
}

func listTomlStems(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dotmerr.Wrapf(err, dotmerr.ErrFileAccess, "failed to read %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".toml") {
			names = append(names, strings.TrimSuffix(name, ".toml"))
		}
	}
	sort.Strings(names)
	return names, nil
}
