package version

import (
	"runtime/debug"
)

// Overridden at release time via -ldflags "-X ...version.Version=v1.2.3".
var Version = ""

// Swappable for testing
var readBuildInfo = debug.ReadBuildInfo

// BuildVersion returns the release version, the module version, or "dev".
func BuildVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}
