// Package initialize provides the init command implementation for dotm. It
// scaffolds a package directory and appends its declaration to dotm.toml.
package initialize

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/dotm/pkg/config"
	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
)

// Options contains options for the init command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Package to scaffold
	Package string

	// Description recorded in the package declaration
	Description string
}

// Result reports what was created
type Result struct {
	PackageDir string
}

// declaration is the TOML fragment appended to dotm.toml
type declaration struct {
	Packages map[string]declaredPackage `toml:"packages"`
}

type declaredPackage struct {
	Description string `toml:"description"`
}

// Execute creates the package directory and its config entry
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.init")

	if opts.Package == "" {
		return nil, errors.New(errors.ErrInvalidInput, "package name required")
	}

	loader, err := config.NewLoader(opts.Paths)
	if err != nil {
		return nil, err
	}
	if _, declared := loader.Root().Packages[opts.Package]; declared {
		return nil, errors.Newf(errors.ErrInvalidInput,
			"package '%s' is already declared", opts.Package)
	}

	pkgDir := loader.PackageDir(opts.Package)
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileWrite,
			"failed to create package directory: %s", pkgDir)
	}

	fragment, err := toml.Marshal(declaration{
		Packages: map[string]declaredPackage{
			opts.Package: {Description: opts.Description},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to encode package declaration")
	}

	if err := appendToFile(opts.Paths.RootConfigPath(), append([]byte("\n"), fragment...)); err != nil {
		return nil, err
	}

	logger.Info().Str("package", opts.Package).Str("dir", pkgDir).Msg("package scaffolded")
	return &Result{PackageDir: pkgDir}, nil
}

func appendToFile(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(content); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to append to %s", path)
	}
	return nil
}
