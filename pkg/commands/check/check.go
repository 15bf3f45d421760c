// Package check provides the check command implementation for dotm. Check
// validates the whole configuration and aggregates every problem found
// instead of stopping at the first.
package check

import (
	stderrors "errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/arthur-debert/dotm/pkg/config"
	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/resolver"
)

// Options contains options for the check command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// WarnSuggestions also reports suggests entries naming undeclared
	// packages
	WarnSuggestions bool
}

// Result aggregates every validation finding
type Result struct {
	Errors   []string
	Warnings []string
}

// Clean reports whether no errors were found
func (r *Result) Clean() bool {
	return len(r.Errors) == 0
}

// Execute validates package declarations, the dependency graph, package
// directories, and host/role references
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.check")

	loader, err := config.NewLoader(opts.Paths)
	if err != nil {
		return nil, err
	}
	root := loader.Root()

	result := &Result{Errors: config.ValidatePackages(root)}

	names := make([]string, 0, len(root.Packages))
	for name := range root.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	// Resolve each package on its own so cycles and unknown dependencies
	// are all surfaced; each cycle is reported once no matter how many of
	// its members hit it
	seen := make(map[string]bool)
	for _, name := range names {
		if _, err := resolver.Resolve(root, []string{name}); err != nil {
			if errors.IsErrorCode(err, errors.ErrCircularDependency) ||
				errors.IsErrorCode(err, errors.ErrUnknownPackage) {
				key := dedupKey(err)
				if !seen[key] {
					seen[key] = true
					result.Errors = append(result.Errors, err.Error())
				}
				continue
			}
			return nil, err
		}
	}

	for _, name := range names {
		if _, err := os.Stat(loader.PackageDir(name)); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("package '%s': directory missing: %s", name, loader.PackageDir(name)))
		}
	}

	checkRoleReferences(loader, root, result)
	checkHostReferences(loader, result)

	if opts.WarnSuggestions {
		for _, name := range names {
			for _, suggested := range root.Packages[name].Suggests {
				if _, declared := root.Packages[suggested]; !declared {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("package '%s' suggests undeclared package '%s'", name, suggested))
				}
			}
		}
	}

	logger.Info().
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("check finished")
	return result, nil
}

// dedupKey canonicalizes a resolution error. A cycle's key is its sorted
// member set, so the same cycle found from different entry points collapses
// to one report.
func dedupKey(err error) string {
	var dotmErr *errors.DotmError
	if stderrors.As(err, &dotmErr) {
		if cycle, ok := dotmErr.Details["cycle"].([]string); ok {
			set := make(map[string]bool, len(cycle))
			for _, member := range cycle {
				set[member] = true
			}
			members := make([]string, 0, len(set))
			for member := range set {
				members = append(members, member)
			}
			sort.Strings(members)
			return "cycle:" + strings.Join(members, ",")
		}
	}
	return err.Error()
}

// checkRoleReferences verifies every role's package list names declared
// packages
func checkRoleReferences(loader *config.Loader, root *config.RootConfig, result *Result) {
	roles, err := loader.ListRoles()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}
	for _, roleName := range roles {
		role, err := loader.LoadRole(roleName)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		for _, pkgName := range role.Packages {
			if _, declared := root.Packages[pkgName]; !declared {
				result.Errors = append(result.Errors,
					fmt.Sprintf("role '%s' references undeclared package '%s'", roleName, pkgName))
			}
		}
	}
}

// checkHostReferences verifies every host's role list has a role document
func checkHostReferences(loader *config.Loader, result *Result) {
	hosts, err := loader.ListHosts()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}
	known := make(map[string]bool)
	if roles, err := loader.ListRoles(); err == nil {
		for _, role := range roles {
			known[role] = true
		}
	}
	for _, hostName := range hosts {
		host, err := loader.LoadHost(hostName)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		for _, roleName := range host.Roles {
			if !known[roleName] {
				result.Errors = append(result.Errors,
					fmt.Sprintf("host '%s' references unknown role '%s'", hostName, roleName))
			}
		}
	}
}
