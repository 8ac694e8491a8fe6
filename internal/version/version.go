// Package version holds the build version string.
package version

// Version is the current release, overridden at build time via
// -ldflags "-X github.com/tillworks/till/internal/version.Version=...".
var Version = "0.1.0-dev"
