// Package buildinfo reports the scamsim version, commit and build date.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set with -ldflags "-X github.com/agusx1211/scamsim/internal/buildinfo.Version=...".
var (
	Version    = "0.1.0"
	CommitHash = ""
	BuildDate  = ""
)

const (
	defaultVersion = "0.1.0"
	unknown        = "unknown"
)

// Info is the resolved build metadata.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit"`
	BuildDate  string `json:"build_date"`
}

// String renders a one-line version banner.
func (i Info) String() string {
	return fmt.Sprintf("scamsim %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildDate)
}

// Current resolves linker overrides first and falls back to the VCS
// settings embedded by the Go toolchain.
func Current() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(Info{
		Version:    strings.TrimSpace(Version),
		CommitHash: strings.TrimSpace(CommitHash),
		BuildDate:  strings.TrimSpace(BuildDate),
	}, bi)
}

type vcsInfo struct {
	revision string
	time     string
	dirty    bool
}

func readVCS(bi *debug.BuildInfo) (mainVersion string, vcs vcsInfo) {
	if bi == nil {
		return "", vcs
	}
	mainVersion = bi.Main.Version
	for _, s := range bi.Settings {
		v := strings.TrimSpace(s.Value)
		switch s.Key {
		case "vcs.revision":
			vcs.revision = v
		case "vcs.time":
			vcs.time = v
		case "vcs.modified":
			vcs.dirty = strings.EqualFold(v, "true")
		}
	}
	return mainVersion, vcs
}

func resolve(info Info, bi *debug.BuildInfo) Info {
	mainVersion, vcs := readVCS(bi)

	if (info.Version == "" || info.Version == defaultVersion) && mainVersion != "" && mainVersion != "(devel)" {
		info.Version = mainVersion
	}
	if info.CommitHash == "" && vcs.revision != "" {
		info.CommitHash = vcs.revision
		if vcs.dirty {
			info.CommitHash += "-dirty"
		}
	}
	if info.BuildDate == "" {
		info.BuildDate = vcs.time
	}
	if t, err := time.Parse(time.RFC3339, info.BuildDate); err == nil {
		info.BuildDate = t.UTC().Format("2006-01-02 15:04:05 UTC")
	}

	for _, f := range []*string{&info.Version, &info.CommitHash, &info.BuildDate} {
		if *f == "" {
			*f = unknown
		}
	}
	return info
}
