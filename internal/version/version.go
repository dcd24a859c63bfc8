// Package version carries the build version, set with
// -ldflags "-X racesample/internal/version.Version=...".
package version

var Version = "dev"
