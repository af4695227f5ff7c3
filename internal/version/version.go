// Package version carries build metadata injected with -ldflags, for example
// -X github.com/TwigBush/restodir/internal/version.Version=v0.3.0.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
	// GoVersion falls back to the running toolchain when not injected.
	GoVersion = ""
)

type Info struct {
	Version   string `json:"version"   yaml:"version"`
	GitCommit string `json:"gitCommit" yaml:"gitCommit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

func Get() Info {
	i := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
	if i.GoVersion == "" {
		i.GoVersion = runtime.Version()
	}
	// go install builds carry the vcs revision even without ldflags
	if i.GitCommit == "none" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					i.GitCommit = s.Value
				}
			}
		}
	}
	return i
}

func String() string {
	return fmt.Sprintf("restodir %s", Version)
}

func Verbose() string {
	i := Get()
	return fmt.Sprintf("restodir %s (commit: %s, built: %s, go: %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}
