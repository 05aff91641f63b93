// Package version holds build metadata injected via ldflags.
package version

// Service is the canonical service name used in logs and the banner endpoint.
const Service = "docdex"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
