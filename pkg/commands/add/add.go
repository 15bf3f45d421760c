// Package add provides the add command implementation for dotm. Add moves
// existing files from the target directory into a package's source tree;
// a deploy afterwards links them back into place.
package add

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dotm/pkg/config"
	coredeploy "github.com/arthur-debert/dotm/pkg/deploy"
	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
)

// Options contains options for the add command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Package receives the files
	Package string

	// Files to move into the package, absolute or ~-relative
	Files []string

	// Force overwrites files already present in the package
	Force bool
}

// Result lists the package-relative paths that were added
type Result struct {
	Added []string
}

// Execute moves the files into the package directory
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.add")

	loader, err := config.NewLoader(opts.Paths)
	if err != nil {
		return nil, err
	}
	root := loader.Root()

	pkg, declared := root.Packages[opts.Package]
	if !declared {
		return nil, errors.Newf(errors.ErrUnknownPackage, "unknown package: %s", opts.Package)
	}

	targetDir, err := coredeploy.TargetDir(root, pkg)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, file := range opts.Files {
		rel, err := moveIntoPackage(loader.PackageDir(opts.Package), targetDir, file, opts.Force)
		if err != nil {
			return nil, err
		}
		result.Added = append(result.Added, rel)
		logger.Info().Str("file", rel).Str("package", opts.Package).Msg("added")
	}
	return result, nil
}

func moveIntoPackage(pkgDir, targetDir, file string, force bool) (string, error) {
	abs, err := filepath.Abs(paths.ExpandHome(file))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "invalid path %q", file)
	}

	info, err := os.Lstat(abs)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileNotFound, "file not found: %s", abs)
	}
	if !info.Mode().IsRegular() {
		return "", errors.Newf(errors.ErrInvalidInput,
			"not a regular file: %s", abs)
	}

	rel, err := filepath.Rel(targetDir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.Newf(errors.ErrInvalidInput,
			"%s is outside the package target directory %s", abs, targetDir)
	}

	dest := filepath.Join(pkgDir, rel)
	if _, err := os.Lstat(dest); err == nil && !force {
		return "", errors.Newf(errors.ErrInvalidInput,
			"%s already exists in the package (use --force to overwrite)", rel)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileWrite,
			"failed to create directory for %s", dest)
	}
	if err := os.Rename(abs, dest); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess,
			"failed to move %s into the package", abs)
	}
	return rel, nil
}
