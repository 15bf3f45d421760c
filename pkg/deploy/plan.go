package deploy

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/dotm/pkg/config"
	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/metadata"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/resolver"
	"github.com/arthur-debert/dotm/pkg/scanner"
	"github.com/arthur-debert/dotm/pkg/template"
	"github.com/arthur-debert/dotm/pkg/vars"
)

// PendingAction is one planned file effect: what to write, where, and with
// which metadata. Content is final; templates were rendered during planning.
type PendingAction struct {
	Package  string
	Source   string
	RelPath  string
	Target   string
	Staged   string
	Kind     scanner.EntryKind
	Strategy config.DeployStrategy
	Content  []byte
	Meta     metadata.Resolved
}

// Plan is the fully computed set of file effects for one host, before any
// filesystem mutation. Building a plan has no side effects, so prune and
// dry runs reuse it directly.
type Plan struct {
	// Host the plan was computed for
	Host string

	// Vars is the deep-merged role and host variable tree
	Vars map[string]interface{}

	// Packages in dependency order, filtered to the current privilege mode
	Packages []string

	// TargetDirs maps package name to its expanded target directory
	TargetDirs map[string]string

	// Actions in package order, sorted by relative path within a package
	Actions []PendingAction
}

// ActionsFor returns the plan's actions belonging to one package
func (p *Plan) ActionsFor(pkgName string) []PendingAction {
	var matched []PendingAction
	for _, action := range p.Actions {
		if action.Package == pkgName {
			matched = append(matched, action)
		}
	}
	return matched
}

// Targets returns the set of target paths the plan produces
func (p *Plan) Targets() map[string]bool {
	targets := make(map[string]bool, len(p.Actions))
	for _, action := range p.Actions {
		targets[action.Target] = true
	}
	return targets
}

// Plan computes the file effects of deploying opts.Host without touching the
// filesystem. It loads the host config, merges role and host variables,
// resolves the package order, scans each package and renders its templates
// eagerly, then verifies that no two packages stage the same path.
func (o *Orchestrator) Plan(opts Options) (*Plan, error) {
	host := opts.Host
	if host == "" {
		detected, err := os.Hostname()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "cannot determine hostname")
		}
		host = detected
	}

	hostCfg, err := o.loader.LoadHost(host)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]interface{})
	var requested []string
	seen := make(map[string]bool)
	for _, roleName := range hostCfg.Roles {
		role, err := o.loader.LoadRole(roleName)
		if err != nil {
			return nil, err
		}
		merged = vars.Merge(merged, role.Vars)
		for _, pkgName := range role.Packages {
			if !seen[pkgName] {
				seen[pkgName] = true
				requested = append(requested, pkgName)
			}
		}
	}
	merged = vars.Merge(merged, hostCfg.Vars)

	if opts.PackageFilter != "" {
		requested = []string{opts.PackageFilter}
	}

	root := o.loader.Root()
	resolved, err := resolver.Resolve(root, requested)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Host:       host,
		Vars:       merged,
		TargetDirs: make(map[string]string),
	}

	for _, pkgName := range resolved {
		pkg := root.Packages[pkgName]
		if pkg.System != o.paths.SystemMode() {
			continue
		}

		targetDir, err := o.targetDir(pkg)
		if err != nil {
			return nil, err
		}

		actions, err := o.planPackage(pkgName, pkg, targetDir, host, hostCfg.Roles, merged)
		if err != nil {
			return nil, err
		}

		plan.Packages = append(plan.Packages, pkgName)
		plan.TargetDirs[pkgName] = targetDir
		plan.Actions = append(plan.Actions, actions...)
	}

	if err := checkCollisions(plan.Actions); err != nil {
		return nil, err
	}
	return plan, nil
}

func (o *Orchestrator) planPackage(pkgName string, pkg *config.PackageConfig,
	targetDir, host string, roles []string, merged map[string]interface{}) ([]PendingAction, error) {

	pkgDir := o.loader.PackageDir(pkgName)
	if _, err := os.Stat(pkgDir); err != nil {
		return nil, errors.Wrapf(err, errors.ErrNotFound,
			"package directory missing for '%s': %s", pkgName, pkgDir)
	}

	fileActions, err := scanner.ScanPackage(pkgDir, host, roles)
	if err != nil {
		return nil, err
	}

	strategy := pkg.EffectiveStrategy()
	actions := make([]PendingAction, 0, len(fileActions))
	for _, fa := range fileActions {
		content, err := os.ReadFile(fa.Source)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read %s", fa.Source)
		}

		if fa.Kind == scanner.KindTemplate {
			rendered, err := template.Render(fa.Source, string(content), merged)
			if err != nil {
				return nil, err
			}
			content = []byte(rendered)
		}

		target := filepath.Join(targetDir, fa.TargetRelPath)
		staged := target
		if strategy == config.StrategyStage {
			staged = filepath.Join(o.paths.StagingDir(), fa.TargetRelPath)
		}

		actions = append(actions, PendingAction{
			Package:  pkgName,
			Source:   fa.Source,
			RelPath:  fa.TargetRelPath,
			Target:   target,
			Staged:   staged,
			Kind:     fa.Kind,
			Strategy: strategy,
			Content:  content,
			Meta:     metadata.Resolve(pkg, fa.TargetRelPath),
		})
	}
	return actions, nil
}

func (o *Orchestrator) targetDir(pkg *config.PackageConfig) (string, error) {
	return TargetDir(o.loader.Root(), pkg)
}

// TargetDir expands a package's target directory, falling back to the root
// setting and then the home directory
func TargetDir(root *config.RootConfig, pkg *config.PackageConfig) (string, error) {
	target := ""
	if pkg != nil {
		target = pkg.Target
	}
	if target == "" {
		target = root.Dotm.Target
	}
	if target == "" {
		target = "~"
	}
	return paths.ExpandPath(target)
}

// checkCollisions rejects plans where two packages stage the same path. That
// is a configuration bug spanning packages, so it aborts the whole deploy
// before any file is written.
func checkCollisions(actions []PendingAction) error {
	owners := make(map[string]string)
	for _, action := range actions {
		if action.Strategy != config.StrategyStage {
			continue
		}
		if prev, taken := owners[action.Staged]; taken && prev != action.Package {
			return errors.Newf(errors.ErrStagingCollision,
				"packages '%s' and '%s' both stage %s", prev, action.Package, action.Staged)
		}
		owners[action.Staged] = action.Package
	}
	return nil
}
