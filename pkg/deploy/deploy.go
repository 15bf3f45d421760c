// Package deploy turns a host name into filesystem effects plus a persisted
// record of those effects. A deploy runs in five phases: plan, collision
// check, drift check, apply, persist. Per-file conflicts are collected into
// the report; structural problems (resolution failure, staging collision,
// template render failure) abort before anything is written.
package deploy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/dotm/pkg/config"
	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/hashutil"
	"github.com/arthur-debert/dotm/pkg/hooks"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/metadata"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/scanner"
	"github.com/arthur-debert/dotm/pkg/state"
)

// Options control one deploy invocation
type Options struct {
	// Host selects the host config; empty means the current hostname
	Host string

	// DryRun reports what would happen without touching the filesystem
	DryRun bool

	// Force overwrites drifted files and snapshots unmanaged collisions
	Force bool

	// PackageFilter restricts the deploy to one package and its dependencies
	PackageFilter string
}

// Conflict is a per-file problem that skipped the file but not the deploy
type Conflict struct {
	Target string
	Reason string
}

// PlannedAction is one entry of a dry-run report
type PlannedAction struct {
	Target   string
	Source   string
	Package  string
	Kind     scanner.EntryKind
	Strategy config.DeployStrategy
}

// Report summarizes one deploy invocation
type Report struct {
	Created   []string
	Updated   []string
	Unchanged []string
	Conflicts []Conflict

	// Planned holds the would-be effects of a dry run
	Planned []PlannedAction

	// Pruned targets removed by auto-prune
	Pruned []string

	Warnings []string
}

// HasConflicts reports whether any file was skipped
func (r *Report) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Orchestrator composes the resolver, scanner, template renderer and state
// store into the deployment pipeline
type Orchestrator struct {
	loader *config.Loader
	paths  *paths.Paths
	logger zerolog.Logger
}

// New returns an orchestrator bound to a loaded configuration
func New(loader *config.Loader, p *paths.Paths) *Orchestrator {
	return &Orchestrator{
		loader: loader,
		paths:  p,
		logger: logging.GetLogger("deploy"),
	}
}

// Deploy runs the full pipeline against st. The caller owns the state
// handle: mutating invocations should pass a LoadLocked state and Close it
// afterwards.
func (o *Orchestrator) Deploy(st *state.DeployState, opts Options) (*Report, error) {
	plan, err := o.Plan(opts)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	skipped := o.checkDrift(st, plan, opts.Force, report)

	if opts.DryRun {
		for _, action := range plan.Actions {
			if skipped[action.Target] {
				continue
			}
			report.Planned = append(report.Planned, PlannedAction{
				Target:   action.Target,
				Source:   action.Source,
				Package:  action.Package,
				Kind:     action.Kind,
				Strategy: action.Strategy,
			})
		}
		return report, nil
	}

	for _, pkgName := range plan.Packages {
		actions := plan.ActionsFor(pkgName)
		if len(actions) == 0 {
			continue
		}

		pkg := o.loader.Root().Packages[pkgName]
		targetDir := plan.TargetDirs[pkgName]

		if err := hooks.Run(pkg.Hooks.PreDeploy, o.loader.BaseDir(),
			pkgName, targetDir, "pre_deploy"); err != nil {
			return nil, err
		}

		for _, action := range actions {
			if skipped[action.Target] {
				continue
			}
			if err := o.applyAction(st, action, opts.Force, report); err != nil {
				return nil, err
			}
		}

		if err := hooks.Run(pkg.Hooks.PostDeploy, o.loader.BaseDir(),
			pkgName, targetDir, "post_deploy"); err != nil {
			return nil, err
		}
	}

	if err := st.Save(); err != nil {
		return nil, err
	}

	if o.loader.Root().Dotm.AutoPrune && opts.PackageFilter == "" {
		pruned, err := o.PruneStale(st, plan)
		if err != nil {
			return nil, err
		}
		if len(pruned) > 0 {
			report.Pruned = pruned
			if err := st.Save(); err != nil {
				return nil, err
			}
		}
	}

	if warning := o.gitignoreWarning(); warning != "" {
		report.Warnings = append(report.Warnings, warning)
	}

	o.logger.Info().
		Str("host", plan.Host).
		Int("created", len(report.Created)).
		Int("updated", len(report.Updated)).
		Int("unchanged", len(report.Unchanged)).
		Int("conflicts", len(report.Conflicts)).
		Msg("deploy finished")
	return report, nil
}

// checkDrift marks tracked targets whose deployed artifact changed out of
// band. Without force those become per-file conflicts and are skipped.
func (o *Orchestrator) checkDrift(st *state.DeployState, plan *Plan, force bool, report *Report) map[string]bool {
	skipped := make(map[string]bool)
	if force {
		return skipped
	}

	for _, action := range plan.Actions {
		entry, tracked := st.FindByTarget(action.Target)
		if !tracked {
			continue
		}
		currentHash, err := hashutil.HashFile(entry.Staged)
		if err != nil {
			// Backing file gone: nothing to preserve, redeploy freely
			continue
		}
		if currentHash != entry.ContentHash {
			report.Conflicts = append(report.Conflicts, Conflict{
				Target: action.Target,
				Reason: "modified since last deploy (use --force to overwrite)",
			})
			skipped[action.Target] = true
		}
	}
	return skipped
}

func (o *Orchestrator) applyAction(st *state.DeployState, action PendingAction, force bool, report *Report) error {
	entry, tracked := st.FindByTarget(action.Target)

	var snapshot state.DeployEntry
	if info, err := os.Lstat(action.Target); err == nil {
		isSymlink := info.Mode()&os.ModeSymlink != 0
		if !isSymlink && !tracked {
			if !force {
				report.Conflicts = append(report.Conflicts, Conflict{
					Target: action.Target,
					Reason: "existing file is not managed (use --force to adopt it)",
				})
				return nil
			}
			snap, err := o.snapshotOriginal(st, action.Target)
			if err != nil {
				return err
			}
			snapshot = snap
		}
	}

	hash := hashutil.HashContent(action.Content)
	if err := st.StoreDeployed(hash, action.Content); err != nil {
		return err
	}

	switch action.Strategy {
	case config.StrategyStage:
		if err := o.writeWithMetadata(action.Staged, action.Content, action.Meta); err != nil {
			return err
		}
		if err := replaceWithSymlink(action.Staged, action.Target); err != nil {
			return err
		}
	case config.StrategyCopy:
		if err := removeSymlinkIfPresent(action.Target); err != nil {
			return err
		}
		if err := o.writeWithMetadata(action.Target, action.Content, action.Meta); err != nil {
			return err
		}
	}

	switch {
	case !tracked:
		report.Created = append(report.Created, action.Target)
	case entry.ContentHash == hash:
		report.Unchanged = append(report.Unchanged, action.Target)
	default:
		report.Updated = append(report.Updated, action.Target)
	}

	st.Record(state.DeployEntry{
		Target:        action.Target,
		Staged:        action.Staged,
		Source:        action.Source,
		ContentHash:   hash,
		OriginalHash:  snapshot.OriginalHash,
		Kind:          action.Kind,
		Package:       action.Package,
		Owner:         action.Meta.Owner,
		Group:         action.Meta.Group,
		Mode:          action.Meta.Mode,
		OriginalOwner: snapshot.OriginalOwner,
		OriginalGroup: snapshot.OriginalGroup,
		OriginalMode:  snapshot.OriginalMode,
	})

	o.logger.Debug().
		Str("target", action.Target).
		Str("package", action.Package).
		Msg("deployed")
	return nil
}

// snapshotOriginal stores the pre-existing file's content and metadata so a
// later restore can put it back
func (o *Orchestrator) snapshotOriginal(st *state.DeployState, target string) (state.DeployEntry, error) {
	var snap state.DeployEntry

	content, err := os.ReadFile(target)
	if err != nil {
		return snap, errors.Wrapf(err, errors.ErrFileAccess,
			"failed to read pre-existing file %s", target)
	}

	snap.OriginalHash = hashutil.HashContent(content)
	if err := st.StoreOriginal(snap.OriginalHash, content); err != nil {
		return snap, err
	}

	owner, group, mode, err := metadata.ReadFileMetadata(target)
	if err == nil {
		snap.OriginalOwner = owner
		snap.OriginalGroup = group
		snap.OriginalMode = mode
	}

	o.logger.Info().Str("target", target).Msg("snapshotted pre-existing file")
	return snap, nil
}

func (o *Orchestrator) writeWithMetadata(path string, content []byte, meta metadata.Resolved) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite,
			"failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", path)
	}

	if meta.Mode != "" {
		if err := metadata.ApplyMode(path, meta.Mode); err != nil {
			return err
		}
	}
	if meta.Owner != "" || meta.Group != "" {
		if err := metadata.ApplyOwnership(path, meta.Owner, meta.Group); err != nil {
			return err
		}
	}
	return nil
}

// replaceWithSymlink points target at staged, clearing whatever was there.
// Remove-then-link leaves a brief window with no target; acceptable for an
// interactive tool with the state lock held.
func replaceWithSymlink(staged, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite,
			"failed to create directory for %s", target)
	}
	if _, err := os.Lstat(target); err == nil {
		if err := os.Remove(target); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove %s", target)
		}
	}
	if err := os.Symlink(staged, target); err != nil {
		return errors.Wrapf(err, errors.ErrSymlinkCreate,
			"failed to link %s -> %s", target, staged)
	}
	return nil
}

func removeSymlinkIfPresent(target string) error {
	info, err := os.Lstat(target)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	if err := os.Remove(target); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove %s", target)
	}
	return nil
}

// ListStale returns tracked targets that the plan no longer produces. Only
// entries owned by a package in the plan are considered, so a filtered plan
// never implicates another package's files.
func (o *Orchestrator) ListStale(st *state.DeployState, plan *Plan) []string {
	planned := plan.Targets()
	inPlan := make(map[string]bool, len(plan.Packages))
	for _, pkgName := range plan.Packages {
		inPlan[pkgName] = true
	}

	var stale []string
	for _, entry := range st.Entries() {
		if inPlan[entry.Package] && !planned[entry.Target] {
			stale = append(stale, entry.Target)
		}
	}
	return stale
}

// PruneStale removes the stale targets and their entries from disk and
// state. The caller saves the state.
func (o *Orchestrator) PruneStale(st *state.DeployState, plan *Plan) ([]string, error) {
	var pruned []string
	for _, target := range o.ListStale(st, plan) {
		removed, err := st.Forget(target)
		if err != nil {
			return pruned, err
		}
		if removed {
			o.logger.Info().Str("target", target).Msg("pruned")
			pruned = append(pruned, target)
		}
	}
	return pruned, nil
}

// gitignoreWarning reports when the repo tracks files with git but does not
// ignore the staging directory. Staged files are derived output and should
// never be committed.
func (o *Orchestrator) gitignoreWarning() string {
	if o.paths.SystemMode() {
		return ""
	}
	root := o.paths.DotfilesRoot()
	if _, err := os.Stat(filepath.Join(root, ".git")); err != nil {
		return ""
	}

	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err == nil {
		for _, line := range strings.Split(string(content), "\n") {
			trimmed := strings.TrimSuffix(strings.TrimSpace(line), "/")
			trimmed = strings.TrimPrefix(trimmed, "/")
			if trimmed == paths.StagingDirName {
				return ""
			}
		}
	}
	return paths.StagingDirName + "/ is not listed in .gitignore; staged files may end up committed"
}
