package config

// DeployStrategy selects how a package's files reach their targets.
type DeployStrategy string

const (
	// StrategyStage writes content into the staging root and points the
	// target at it with a symlink.
	StrategyStage DeployStrategy = "stage"

	// StrategyCopy writes content directly to the target path.
	StrategyCopy DeployStrategy = "copy"
)

// Valid reports whether s is a known strategy
func (s DeployStrategy) Valid() bool {
	return s == StrategyStage || s == StrategyCopy
}

// RootConfig is the parsed dotm.toml
type RootConfig struct {
	Dotm     Settings                  `koanf:"dotm"`
	Packages map[string]*PackageConfig `koanf:"packages"`
}

// Settings is the [dotm] block of the root config
type Settings struct {
	Target      string `koanf:"target"`
	PackagesDir string `koanf:"packages_dir"`
	AutoPrune   bool   `koanf:"auto_prune"`
}

// PackageConfig declares a single deployable package
type PackageConfig struct {
	Description string              `koanf:"description"`
	Depends     []string            `koanf:"depends"`
	Suggests    []string            `koanf:"suggests"`
	Target      string              `koanf:"target"`
	Strategy    DeployStrategy      `koanf:"strategy"`
	System      bool                `koanf:"system"`
	Owner       string              `koanf:"owner"`
	Group       string              `koanf:"group"`
	Permissions map[string]string   `koanf:"permissions"`
	Ownership   map[string]string   `koanf:"ownership"`
	Preserve    map[string][]string `koanf:"preserve"`
	Hooks       HooksConfig         `koanf:"hooks"`
}

// HooksConfig holds optional shell commands run around a package deploy
type HooksConfig struct {
	PreDeploy  string `koanf:"pre_deploy"`
	PostDeploy string `koanf:"post_deploy"`
}

// EffectiveStrategy returns the package strategy, defaulting to stage
func (p *PackageConfig) EffectiveStrategy() DeployStrategy {
	if p == nil || p.Strategy == "" {
		return StrategyStage
	}
	return p.Strategy
}

// HostConfig is a parsed hosts/<name>.toml
type HostConfig struct {
	Hostname string                 `koanf:"hostname"`
	Roles    []string               `koanf:"roles"`
	Vars     map[string]interface{} `koanf:"vars"`
}

// RoleConfig is a parsed roles/<name>.toml
type RoleConfig struct {
	Packages []string               `koanf:"packages"`
	Vars     map[string]interface{} `koanf:"vars"`
}
