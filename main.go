// Package main provides the ztr CLI.
package main

import (
	"github.com/sortedstartup/ztr/internal/cmd"
	"github.com/sortedstartup/ztr/internal/config"
)

// Build vars.
var (
	//nolint: gochecknoglobals
	Version = ""
	//nolint: gochecknoglobals
	CommitSHA = ""
)

func main() {
	cfg, cfgErr := config.Ensure()
	cmd.Execute(cmd.BuildInfo{Version: Version, CommitSHA: CommitSHA}, cfg, cfgErr)
}
