// Package resolver expands a requested set of package names into a fully
// ordered, deduplicated deployment list honoring "depends" edges.
package resolver

import (
	"strings"

	"github.com/arthur-debert/dotm/pkg/config"
	"github.com/arthur-debert/dotm/pkg/errors"
)

// Resolve expands requested into a dependency-ordered list. Dependencies
// always precede their dependents, each package appears exactly once, and
// "suggests" edges are never followed. Unknown names and dependency cycles
// are errors.
func Resolve(root *config.RootConfig, requested []string) ([]string, error) {
	r := &resolution{
		root: root,
		seen: make(map[string]bool),
	}

	for _, name := range requested {
		if err := r.resolveOne(name); err != nil {
			return nil, err
		}
	}

	return r.resolved, nil
}

type resolution struct {
	root     *config.RootConfig
	resolved []string
	seen     map[string]bool

	// stack tracks the current DFS path for cycle detection only
	stack []string
}

func (r *resolution) resolveOne(name string) error {
	if r.seen[name] {
		return nil
	}

	for _, onStack := range r.stack {
		if onStack == name {
			cycle := append(append([]string{}, r.stack...), name)
			return errors.Newf(errors.ErrCircularDependency,
				"circular dependency detected: %s", strings.Join(cycle, " -> ")).
				WithDetail("cycle", cycle)
		}
	}

	pkg, ok := r.root.Packages[name]
	if !ok {
		return errors.Newf(errors.ErrUnknownPackage, "unknown package: '%s'", name)
	}

	r.stack = append(r.stack, name)
	for _, dep := range pkg.Depends {
		if _, ok := r.root.Packages[dep]; !ok {
			return errors.Newf(errors.ErrUnknownPackage,
				"package '%s' depends on unknown package '%s'", name, dep)
		}
		if err := r.resolveOne(dep); err != nil {
			return err
		}
	}
	r.stack = r.stack[:len(r.stack)-1]

	r.seen[name] = true
	r.resolved = append(r.resolved, name)
	return nil
}
