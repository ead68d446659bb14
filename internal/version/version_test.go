package version

import (
	"runtime/debug"
	"testing"
)

func TestBuildVersionDevFallback(t *testing.T) {
	orig := readBuildInfo
	defer func() { readBuildInfo = orig }()

	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
	if got := BuildVersion(); got != "dev" {
		t.Errorf("BuildVersion() = %q, want dev", got)
	}

	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	if got := BuildVersion(); got != "dev" {
		t.Errorf("BuildVersion() with (devel) = %q, want dev", got)
	}
}

func TestBuildVersionLdflagsOverride(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "v1.2.3"
	if got := BuildVersion(); got != "v1.2.3" {
		t.Errorf("BuildVersion() = %q, want v1.2.3", got)
	}
}

func TestBuildVersionFromModule(t *testing.T) {
	orig := readBuildInfo
	defer func() { readBuildInfo = orig }()

	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "v0.4.0"}}, true
	}
	if got := BuildVersion(); got != "v0.4.0" {
		t.Errorf("BuildVersion() = %q, want v0.4.0", got)
	}
}
