// Package version holds the build version, set with
//
//	go build -ldflags "-X github.com/ramonehamilton/commander-craft/internal/version.Version=v1.2.3"
package version

import "runtime/debug"

// Version defaults to "dev" for local builds.
var Version = "dev"

// GetVersion returns Version, falling back to the module version recorded
// by `go install` when no ldflag was given.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
