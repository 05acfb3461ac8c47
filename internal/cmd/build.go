package cmd

import (
	"fmt"
	goruntime "runtime"
	"runtime/debug"
	"strings"

	"github.com/sortedstartup/ztr/internal/storage"
)

// BuildInfo is set through -ldflags at release time and completed from the
// VCS stamp Go embeds in the binary.
type BuildInfo struct {
	Version   string
	CommitSHA string
	Modified  bool
}

func versionTemplate(b BuildInfo) string {
	var sb strings.Builder
	sb.WriteString("{{.Name}} {{.Version}}")
	if len(b.CommitSHA) >= storage.SHA1Short {
		fmt.Fprintf(&sb, " (%s)", storage.ShortID(b.CommitSHA))
	}
	fmt.Fprintf(&sb, " %s %s/%s\n", goruntime.Version(), goruntime.GOOS, goruntime.GOARCH)
	return sb.String()
}

func normalizeBuildInfo(b BuildInfo) BuildInfo {
	return fillBuildInfo(b, debug.ReadBuildInfo)
}

func fillBuildInfo(b BuildInfo, read func() (*debug.BuildInfo, bool)) BuildInfo {
	info, ok := read()
	if !ok {
		if b.Version == "" {
			b.Version = "unknown"
		}
		return b
	}

	vcs := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		vcs[s.Key] = s.Value
	}
	rev := vcs["vcs.revision"]
	if b.CommitSHA == "" {
		b.CommitSHA = rev
	}
	b.Modified = vcs["vcs.modified"] == "true"

	switch {
	case b.Version != "":
	case info.Main.Version != "" && info.Main.Version != "(devel)":
		b.Version = info.Main.Version
	default:
		b.Version = "dev"
		if len(rev) >= storage.SHA1Short {
			b.Version += "-" + rev[:storage.SHA1Short]
		}
		if b.Modified {
			b.Version += "-dirty"
		}
	}
	return b
}
