// Package deploy provides the deploy command implementation for dotm.
package deploy

import (
	"github.com/arthur-debert/dotm/pkg/config"
	coredeploy "github.com/arthur-debert/dotm/pkg/deploy"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/state"
)

// Options contains options for the deploy command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Host selects the host config; empty means the current hostname
	Host string

	// DryRun previews the deploy without filesystem effects
	DryRun bool

	// Force overwrites drifted files and adopts unmanaged collisions
	Force bool

	// Package restricts the deploy to one package and its dependencies
	Package string
}

// Result carries the deploy report
type Result struct {
	Report *coredeploy.Report
}

// Execute runs a deploy. Mutating runs hold the state lock; dry runs load
// the state read-only.
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.deploy")
	logger.Debug().
		Str("host", opts.Host).
		Bool("dryRun", opts.DryRun).
		Msg("starting deploy")

	loader, err := config.NewLoader(opts.Paths)
	if err != nil {
		return nil, err
	}

	var st *state.DeployState
	if opts.DryRun {
		st, err = state.Load(opts.Paths.StateDir())
	} else {
		st, err = state.LoadLocked(opts.Paths.StateDir())
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	orch := coredeploy.New(loader, opts.Paths)
	report, err := orch.Deploy(st, coredeploy.Options{
		Host:          opts.Host,
		DryRun:        opts.DryRun,
		Force:         opts.Force,
		PackageFilter: opts.Package,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Report: report}, nil
}
