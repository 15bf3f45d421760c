package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCleanConfig(t *testing.T) {
	root := &RootConfig{
		Packages: map[string]*PackageConfig{
			"kde":  {Depends: []string{"util"}},
			"util": {},
		},
	}
	assert.Empty(t, ValidatePackages(root))
}

func TestValidateSystemPackageRequirements(t *testing.T) {
	root := &RootConfig{
		Packages: map[string]*PackageConfig{
			"etc": {System: true},
		},
	}
	problems := ValidatePackages(root)
	assert.Len(t, problems, 2)
	assert.Contains(t, problems[0], "must specify a target directory")
	assert.Contains(t, problems[1], "must specify a deployment strategy")
}

func TestValidateUnknownDependency(t *testing.T) {
	root := &RootConfig{
		Packages: map[string]*PackageConfig{
			"kde": {Depends: []string{"missing"}},
		},
	}
	problems := ValidatePackages(root)
	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "depends on unknown package 'missing'")
}

func TestValidateOwnershipFormat(t *testing.T) {
	root := &RootConfig{
		Packages: map[string]*PackageConfig{
			"etc": {
				System:   true,
				Target:   "/etc",
				Strategy: StrategyCopy,
				Ownership: map[string]string{
					"etc/shadow": "rootshadow",
				},
			},
		},
	}
	problems := ValidatePackages(root)
	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "invalid ownership format")
}

func TestValidatePermissionOctal(t *testing.T) {
	root := &RootConfig{
		Packages: map[string]*PackageConfig{
			"etc": {
				Permissions: map[string]string{"etc/shadow": "9zz"},
			},
		},
	}
	problems := ValidatePackages(root)
	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "not valid octal")
}

func TestValidatePreserveConflicts(t *testing.T) {
	root := &RootConfig{
		Packages: map[string]*PackageConfig{
			"etc": {
				Ownership:   map[string]string{"f": "a:b"},
				Permissions: map[string]string{"f": "640"},
				Preserve:    map[string][]string{"f": {"owner", "mode", "bogus"}},
			},
		},
	}
	problems := ValidatePackages(root)
	assert.Len(t, problems, 3)
}

func TestValidateInvalidStrategy(t *testing.T) {
	root := &RootConfig{
		Packages: map[string]*PackageConfig{
			"x": {Strategy: "link"},
		},
	}
	problems := ValidatePackages(root)
	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "invalid strategy")
}

func TestValidateAggregatesAcrossPackages(t *testing.T) {
	root := &RootConfig{
		Packages: map[string]*PackageConfig{
			"a": {Depends: []string{"nope"}},
			"b": {Permissions: map[string]string{"f": "xyz"}},
		},
	}
	assert.Len(t, ValidatePackages(root), 2)
}
