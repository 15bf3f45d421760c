package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValidatePackages checks every package declaration and returns all problems
// found, one message per issue. It never stops at the first error so that
// `dotm check` can report the full picture in one run.
func ValidatePackages(root *RootConfig) []string {
	var problems []string

	names := make([]string, 0, len(root.Packages))
	for name := range root.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pkg := root.Packages[name]
		if pkg == nil {
			continue
		}

		if pkg.Strategy != "" && !pkg.Strategy.Valid() {
			problems = append(problems, fmt.Sprintf(
				"package '%s': invalid strategy '%s': expected 'stage' or 'copy'", name, pkg.Strategy))
		}

		if pkg.System {
			if pkg.Target == "" {
				problems = append(problems, fmt.Sprintf(
					"system package '%s' must specify a target directory", name))
			}
			if pkg.Strategy == "" {
				problems = append(problems, fmt.Sprintf(
					"system package '%s' must specify a deployment strategy", name))
			}
		}

		for _, dep := range pkg.Depends {
			if _, ok := root.Packages[dep]; !ok {
				problems = append(problems, fmt.Sprintf(
					"package '%s' depends on unknown package '%s'", name, dep))
			}
		}

		for path, value := range pkg.Ownership {
			if strings.Count(value, ":") != 1 {
				problems = append(problems, fmt.Sprintf(
					"package '%s': invalid ownership format for '%s': expected 'user:group', got '%s'",
					name, path, value))
			}
		}

		for path, value := range pkg.Permissions {
			if _, err := strconv.ParseUint(value, 8, 32); err != nil {
				problems = append(problems, fmt.Sprintf(
					"package '%s': invalid permission for '%s': '%s' is not valid octal",
					name, path, value))
			}
		}

		for path, fields := range pkg.Preserve {
			for _, field := range fields {
				switch field {
				case "owner", "group":
					if _, ok := pkg.Ownership[path]; ok {
						problems = append(problems, fmt.Sprintf(
							"package '%s': file '%s' has both preserve %s and ownership override",
							name, path, field))
					}
				case "mode":
					if _, ok := pkg.Permissions[path]; ok {
						problems = append(problems, fmt.Sprintf(
							"package '%s': file '%s' has both preserve mode and permission override",
							name, path))
					}
				default:
					problems = append(problems, fmt.Sprintf(
						"package '%s': file '%s': unknown preserve field '%s'", name, path, field))
				}
			}
		}
	}

	return problems
}
