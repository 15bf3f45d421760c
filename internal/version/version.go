// Package version holds build metadata, injected at build time via ldflags.
package version

var (
	// Version is the semantic version of the build
	Version = "dev"

	// Commit is the git commit the binary was built from
	Commit = "none"

	// Date is the build timestamp
	Date = "unknown"
)
