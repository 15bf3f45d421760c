// Package metadata computes and applies effective owner/group/mode for
// deployed files. Resolve is a pure function; the Read/Apply primitives are
// the only places dotm touches ownership syscalls.
package metadata

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"syscall"

	"github.com/arthur-debert/dotm/pkg/config"
	"github.com/arthur-debert/dotm/pkg/errors"
)

// Resolved holds the metadata dotm should set for one file. Empty fields
// mean "leave the existing value alone".
type Resolved struct {
	Owner string
	Group string
	Mode  string
}

// IsZero reports whether nothing is to be applied
func (r Resolved) IsZero() bool {
	return r.Owner == "" && r.Group == "" && r.Mode == ""
}

// Resolve computes the metadata to apply for relPath. Per field:
//  1. a "preserve" entry for the field wins and yields absent
//  2. else a per-path ownership/permission override applies
//  3. else the package-level owner/group default applies (permissions have
//     no package-level default)
//  4. else absent
func Resolve(pkg *config.PackageConfig, relPath string) Resolved {
	if pkg == nil {
		return Resolved{}
	}

	preserved := make(map[string]bool)
	for _, field := range pkg.Preserve[relPath] {
		preserved[field] = true
	}

	var resolved Resolved

	ownership, hasOwnership := pkg.Ownership[relPath]
	ownerPart, groupPart := splitOwnership(ownership)

	if !preserved["owner"] {
		if hasOwnership {
			resolved.Owner = ownerPart
		} else {
			resolved.Owner = pkg.Owner
		}
	}

	if !preserved["group"] {
		if hasOwnership {
			resolved.Group = groupPart
		} else {
			resolved.Group = pkg.Group
		}
	}

	if !preserved["mode"] {
		resolved.Mode = pkg.Permissions[relPath]
	}

	return resolved
}

func splitOwnership(value string) (owner, group string) {
	parts := strings.SplitN(value, ":", 2)
	owner = parts[0]
	if len(parts) > 1 {
		group = parts[1]
	}
	return owner, group
}

// ReadFileMetadata returns the current owner name, group name and octal mode
// of a path. Unresolvable uids/gids fall back to their numeric form.
func ReadFileMetadata(path string) (owner, group, mode string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", "", errors.Wrapf(err, errors.ErrFileAccess,
			"failed to read metadata for %s", path)
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "", "", "", errors.Newf(errors.ErrInternal,
			"unsupported stat result for %s", path)
	}

	owner = strconv.FormatUint(uint64(stat.Uid), 10)
	if u, lookupErr := user.LookupId(owner); lookupErr == nil {
		owner = u.Username
	}

	group = strconv.FormatUint(uint64(stat.Gid), 10)
	if g, lookupErr := user.LookupGroupId(group); lookupErr == nil {
		group = g.Name
	}

	mode = fmt.Sprintf("%o", info.Mode().Perm())
	return owner, group, mode, nil
}

// ApplyOwnership chowns path to the named owner and/or group. Empty fields
// are left unchanged.
func ApplyOwnership(path, owner, group string) error {
	uid, gid := -1, -1

	if owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return errors.Wrapf(err, errors.ErrInvalidInput, "failed to look up user '%s'", owner)
		}
		parsed, err := strconv.Atoi(u.Uid)
		if err != nil {
			return errors.Wrapf(err, errors.ErrInternal, "non-numeric uid for user '%s'", owner)
		}
		uid = parsed
	}

	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return errors.Wrapf(err, errors.ErrInvalidInput, "failed to look up group '%s'", group)
		}
		parsed, err := strconv.Atoi(g.Gid)
		if err != nil {
			return errors.Wrapf(err, errors.ErrInternal, "non-numeric gid for group '%s'", group)
		}
		gid = parsed
	}

	if uid == -1 && gid == -1 {
		return nil
	}

	if err := os.Chown(path, uid, gid); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to chown %s", path)
	}
	return nil
}

// ApplyMode chmods path to the given octal mode string
func ApplyMode(path, mode string) error {
	parsed, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "invalid octal mode '%s'", mode)
	}
	if err := os.Chmod(path, os.FileMode(parsed)); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to chmod %s", path)
	}
	return nil
}
