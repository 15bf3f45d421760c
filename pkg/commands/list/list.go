// Package list provides the list command implementation for dotm. It
// enumerates declared packages, roles and hosts, optionally together as
// one tree.
package list

import (
	"sort"

	"github.com/arthur-debert/dotm/pkg/config"
	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/state"
)

// Kind selects what to list
type Kind string

const (
	KindPackages Kind = "packages"
	KindRoles    Kind = "roles"
	KindHosts    Kind = "hosts"
	KindTree     Kind = "tree"
)

// Options contains options for the list command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Kind selects packages, roles, hosts, or the full tree
	Kind Kind
}

// PackageInfo describes one declared package
type PackageInfo struct {
	Name        string
	Description string
	Depends     []string
	Suggests    []string
	Strategy    config.DeployStrategy
	System      bool

	// DeployedFiles counts this package's tracked entries
	DeployedFiles int
}

// RoleInfo describes one role document
type RoleInfo struct {
	Name     string
	Packages []string
}

// HostInfo describes one host document
type HostInfo struct {
	Name  string
	Roles []string
}

// Result holds whatever the selected kind produced
type Result struct {
	Packages []PackageInfo
	Roles    []RoleInfo
	Hosts    []HostInfo
}

// Execute enumerates the requested configuration documents
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.list")

	loader, err := config.NewLoader(opts.Paths)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	switch opts.Kind {
	case KindPackages:
		err = listPackages(loader, opts.Paths, result)
	case KindRoles:
		err = listRoles(loader, result)
	case KindHosts:
		err = listHosts(loader, result)
	case KindTree:
		if err = listHosts(loader, result); err == nil {
			if err = listRoles(loader, result); err == nil {
				err = listPackages(loader, opts.Paths, result)
			}
		}
	default:
		err = errors.Newf(errors.ErrInvalidInput, "unknown list kind: %s", opts.Kind)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("kind", string(opts.Kind)).Msg("list computed")
	return result, nil
}

func listPackages(loader *config.Loader, p *paths.Paths, result *Result) error {
	st, err := state.Load(p.StateDir())
	if err != nil {
		return err
	}

	root := loader.Root()
	names := make([]string, 0, len(root.Packages))
	for name := range root.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pkg := root.Packages[name]
		result.Packages = append(result.Packages, PackageInfo{
			Name:          name,
			Description:   pkg.Description,
			Depends:       pkg.Depends,
			Suggests:      pkg.Suggests,
			Strategy:      pkg.EffectiveStrategy(),
			System:        pkg.System,
			DeployedFiles: len(st.EntriesForPackage(name)),
		})
	}
	return nil
}

func listRoles(loader *config.Loader, result *Result) error {
	roles, err := loader.ListRoles()
	if err != nil {
		return err
	}
	for _, name := range roles {
		role, err := loader.LoadRole(name)
		if err != nil {
			return err
		}
		result.Roles = append(result.Roles, RoleInfo{Name: name, Packages: role.Packages})
	}
	return nil
}

func listHosts(loader *config.Loader, result *Result) error {
	hosts, err := loader.ListHosts()
	if err != nil {
		return err
	}
	for _, name := range hosts {
		host, err := loader.LoadHost(name)
		if err != nil {
			return err
		}
		result.Hosts = append(result.Hosts, HostInfo{Name: name, Roles: host.Roles})
	}
	return nil
}
