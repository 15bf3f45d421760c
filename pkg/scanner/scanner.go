// Package scanner walks a package source directory, groups files that
// represent the same logical target path under different variant suffixes,
// and picks the winning variant per host and role list.
//
// Variant naming:
//
//	app.conf                 plain base file
//	app.conf##host.myhost    host-specific override
//	app.conf##role.desktop   role-specific override
//	app.conf.tera            template, rendered at deploy time
package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/dotm/pkg/errors"
)

// EntryKind tags how a file action was selected
type EntryKind string

const (
	// KindBase is a plain file with no variant suffix
	KindBase EntryKind = "base"

	// KindOverride is a host- or role-specific variant
	KindOverride EntryKind = "override"

	// KindTemplate is a template that must be rendered before deployment
	KindTemplate EntryKind = "template"
)

const (
	variantMarker  = "##"
	hostPrefix     = "##host."
	rolePrefix     = "##role."
	templateSuffix = ".tera"
)

// FileAction describes what to do with a single file during deployment
type FileAction struct {
	// Source is the file in the dotfiles repo that won variant selection
	Source string

	// TargetRelPath is where the file lands, relative to the target dir
	TargetRelPath string

	// Kind records how the source was selected
	Kind EntryKind
}

// ScanPackage walks pkgDir and resolves overrides for the given host and
// roles. The result is sorted by target-relative path.
func ScanPackage(pkgDir, hostname string, roles []string) ([]FileAction, error) {
	groups := make(map[string][]string)

	err := filepath.WalkDir(pkgDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(pkgDir, path)
		if err != nil {
			return err
		}
		canonical := canonicalTargetPath(rel)
		groups[canonical] = append(groups[canonical], path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess,
			"failed to scan package directory: %s", pkgDir)
	}

	actions := make([]FileAction, 0, len(groups))
	for canonical, variants := range groups {
		actions = append(actions, resolveVariant(canonical, variants, hostname, roles))
	}

	sort.Slice(actions, func(i, j int) bool {
		return actions[i].TargetRelPath < actions[j].TargetRelPath
	})
	return actions, nil
}

// canonicalTargetPath strips the ## variant suffix and the .tera extension
// from the file name component of rel.
func canonicalTargetPath(rel string) string {
	dir, name := filepath.Split(rel)

	if idx := strings.Index(name, variantMarker); idx >= 0 {
		name = name[:idx]
	}
	name = strings.TrimSuffix(name, templateSuffix)

	return filepath.Join(dir, name)
}

// resolveVariant picks the best source for this host/roles out of all
// variants sharing a canonical path. Priority: host override, last-matching
// role override, template, plain base file.
func resolveVariant(canonical string, variants []string, hostname string, roles []string) FileAction {
	hostSuffix := fmt.Sprintf("%s%s", hostPrefix, hostname)
	for _, v := range variants {
		if strings.Contains(filepath.Base(v), hostSuffix) {
			return FileAction{Source: v, TargetRelPath: canonical, Kind: KindOverride}
		}
	}

	// Later roles in the host's list are more specific and win
	for i := len(roles) - 1; i >= 0; i-- {
		roleSuffix := fmt.Sprintf("%s%s", rolePrefix, roles[i])
		for _, v := range variants {
			if strings.Contains(filepath.Base(v), roleSuffix) {
				return FileAction{Source: v, TargetRelPath: canonical, Kind: KindOverride}
			}
		}
	}

	for _, v := range variants {
		name := filepath.Base(v)
		if strings.HasSuffix(name, templateSuffix) && !strings.Contains(name, variantMarker) {
			return FileAction{Source: v, TargetRelPath: canonical, Kind: KindTemplate}
		}
	}

	for _, v := range variants {
		name := filepath.Base(v)
		if !strings.Contains(name, variantMarker) && !strings.HasSuffix(name, templateSuffix) {
			return FileAction{Source: v, TargetRelPath: canonical, Kind: KindBase}
		}
	}

	// Only non-matching overrides exist for this path; the first variant
	// stands in so the group is still visible to callers.
	return FileAction{Source: variants[0], TargetRelPath: canonical, Kind: KindOverride}
}
