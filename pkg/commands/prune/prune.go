// Package prune provides the prune command implementation for dotm. A plan
// is computed without filesystem effects; tracked targets the plan no
// longer produces are removed.
package prune

import (
	"github.com/arthur-debert/dotm/pkg/config"
	coredeploy "github.com/arthur-debert/dotm/pkg/deploy"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/state"
)

// Options contains options for the prune command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Host the plan is computed for; empty means the current hostname
	Host string

	// DryRun lists stale targets without removing them
	DryRun bool
}

// Result lists the pruned (or would-be pruned) targets
type Result struct {
	Pruned []string
	DryRun bool
}

// Execute removes targets no longer produced by a fresh plan
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.prune")

	loader, err := config.NewLoader(opts.Paths)
	if err != nil {
		return nil, err
	}
	orch := coredeploy.New(loader, opts.Paths)

	plan, err := orch.Plan(coredeploy.Options{Host: opts.Host})
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		st, err := state.Load(opts.Paths.StateDir())
		if err != nil {
			return nil, err
		}
		return &Result{Pruned: orch.ListStale(st, plan), DryRun: true}, nil
	}

	st, err := state.LoadLocked(opts.Paths.StateDir())
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	pruned, err := orch.PruneStale(st, plan)
	if err != nil {
		return nil, err
	}
	if len(pruned) > 0 {
		if err := st.Save(); err != nil {
			return nil, err
		}
	}

	logger.Info().Int("pruned", len(pruned)).Msg("prune finished")
	return &Result{Pruned: pruned}, nil
}
