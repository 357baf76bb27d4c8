// Package version holds build-time version information.
package version

// Version is the application version, overridden at build time with
// -ldflags "-X github.com/sydlexius/driftwood/internal/version.Version=...".
var Version = "dev"
