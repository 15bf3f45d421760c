// Package restore provides the restore command implementation for dotm.
package restore

import (
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/state"
)

// Options contains options for the restore command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Package restricts restoration to one package; empty restores
	// everything and tears the state down
	Package string

	// DryRun lists what would be restored without touching anything
	DryRun bool
}

// Result reports what was (or would be) restored
type Result struct {
	Restored int
	Targets  []string
	DryRun   bool
}

// Execute puts pre-existing files back and removes files dotm created
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.restore")

	if opts.DryRun {
		st, err := state.Load(opts.Paths.StateDir())
		if err != nil {
			return nil, err
		}
		result := &Result{DryRun: true}
		for _, entry := range st.EntriesForPackage(opts.Package) {
			result.Targets = append(result.Targets, entry.Target)
		}
		result.Restored = len(result.Targets)
		return result, nil
	}

	st, err := state.LoadLocked(opts.Paths.StateDir())
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	count, err := st.Restore(opts.Package)
	if err != nil {
		return nil, err
	}

	logger.Info().Int("restored", count).Msg("restore finished")
	return &Result{Restored: count}, nil
}
