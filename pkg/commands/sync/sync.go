// Package sync provides the sync command implementation for dotm. It hands
// the dotfiles repo to git: commit local changes, pull with rebase, push.
package sync

import (
	"github.com/arthur-debert/dotm/pkg/git"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
)

// Options contains options for the sync command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Message overrides the default commit message
	Message string
}

// Result carries the git summary
type Result struct {
	Sync *git.SyncResult
}

// Execute syncs the dotfiles repository
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.sync")

	result, err := git.Sync(opts.Paths.DotfilesRoot(), opts.Message)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Bool("committed", result.Committed).
		Bool("pulled", result.Pulled).
		Bool("pushed", result.Pushed).
		Msg("sync finished")
	return &Result{Sync: result}, nil
}
