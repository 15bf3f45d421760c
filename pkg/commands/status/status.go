// Package status provides the status command implementation for dotm.
// It reports the health of every tracked file: present, content drifted,
// metadata drifted, or missing.
package status

import (
	"sort"

	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/state"
)

// Options contains options for the status command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Package restricts the report to one package
	Package string
}

// FileStatus pairs a tracked entry with its filesystem check
type FileStatus struct {
	Entry  state.DeployEntry
	Status state.EntryStatus
}

// Group holds the file statuses of one package
type Group struct {
	Package string
	Files   []FileStatus
}

// Result is the per-package health report
type Result struct {
	Groups []Group
}

// NeedsAttention reports whether any tracked file is unhealthy
func (r *Result) NeedsAttention() bool {
	for _, group := range r.Groups {
		for _, file := range group.Files {
			if !file.Status.Healthy() {
				return true
			}
		}
	}
	return false
}

// Execute checks every tracked entry against the filesystem. Status never
// takes the state lock; a stale report is acceptable, corruption is not
// possible since saves are whole-file.
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.status")

	st, err := state.Load(opts.Paths.StateDir())
	if err != nil {
		return nil, err
	}

	byPackage := make(map[string][]FileStatus)
	for _, entry := range st.EntriesForPackage(opts.Package) {
		entryStatus, err := st.CheckEntryStatus(entry)
		if err != nil {
			return nil, err
		}
		byPackage[entry.Package] = append(byPackage[entry.Package], FileStatus{
			Entry:  entry,
			Status: entryStatus,
		})
	}

	names := make([]string, 0, len(byPackage))
	for name := range byPackage {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &Result{}
	for _, name := range names {
		files := byPackage[name]
		sort.Slice(files, func(i, j int) bool {
			return files[i].Entry.Target < files[j].Entry.Target
		})
		result.Groups = append(result.Groups, Group{Package: name, Files: files})
	}

	logger.Debug().Int("packages", len(result.Groups)).Msg("status computed")
	return result, nil
}
