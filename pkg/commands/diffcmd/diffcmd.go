// Package diffcmd provides the diff command implementation for dotm. For
// every tracked file whose on-disk content drifted from the recorded
// deployment, it produces a unified diff of recorded vs current content.
package diffcmd

import (
	"os"
	"strings"

	"github.com/arthur-debert/dotm/pkg/diff"
	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/state"
)

// Options contains options for the diff command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// PathFilter limits output to targets containing this substring
	PathFilter string
}

// FileDiff is the unified diff of one drifted file
type FileDiff struct {
	Target string
	Text   string
}

// Result holds one diff per drifted file
type Result struct {
	Diffs []FileDiff
}

// Execute compares recorded blobs against current on-disk content
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.diff")

	st, err := state.Load(opts.Paths.StateDir())
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, entry := range st.Entries() {
		if opts.PathFilter != "" && !strings.Contains(entry.Target, opts.PathFilter) {
			continue
		}

		entryStatus, err := st.CheckEntryStatus(entry)
		if err != nil {
			return nil, err
		}
		if !entryStatus.Exists || !entryStatus.ContentModified {
			continue
		}

		recorded, err := st.LoadDeployed(entry.ContentHash)
		if err != nil {
			return nil, err
		}
		current, err := os.ReadFile(entry.Staged)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess,
				"failed to read %s", entry.Staged)
		}

		display := paths.DisplayPath(entry.Target)
		text, err := diff.Format(string(recorded), string(current),
			"deployed: "+display, "current: "+display)
		if err != nil {
			return nil, err
		}
		result.Diffs = append(result.Diffs, FileDiff{Target: entry.Target, Text: text})
	}

	logger.Debug().Int("drifted", len(result.Diffs)).Msg("diff computed")
	return result, nil
}
