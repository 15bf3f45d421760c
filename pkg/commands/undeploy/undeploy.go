// Package undeploy provides the undeploy command implementation for dotm.
package undeploy

import (
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/state"
)

// Options contains options for the undeploy command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Package restricts removal to one package; empty removes everything
	Package string
}

// Result reports how many targets were removed
type Result struct {
	Removed int
}

// Execute removes managed targets without restoring pre-existing content
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.undeploy")

	st, err := state.LoadLocked(opts.Paths.StateDir())
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	removed, err := st.Undeploy(opts.Package)
	if err != nil {
		return nil, err
	}

	logger.Info().Int("removed", removed).Msg("undeploy finished")
	return &Result{Removed: removed}, nil
}
