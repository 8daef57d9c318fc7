// Package version holds this module's own build version, reported as a
// zkVM backend's QueryEngineVersion.
package version

// Version is overridden at build time via -ldflags
// "-X github.com/gl-zkPass/zkpass-core/internal/version.Version=...".
var Version = "dev"
