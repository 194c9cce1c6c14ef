// Package version holds build information set via ldflags.
package version

var (
	// Version is the current version of gameportal.
	Version = "dev"
	// Commit is the git commit hash the binary was built from.
	Commit = "none"
	// Date is the build date.
	Date = "unknown"
)
