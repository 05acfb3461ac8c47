package cmd

import (
	"io"
	"os"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/present"
)

// Execute builds the command tree and runs it, exiting non-zero on error.
func Execute(build BuildInfo, cfg config.Config, cfgErr error) {
	defer maybeWriteMemProfile()

	root := NewRootCmd(build, cfg, cfgErr)
	if err := root.Execute(); err != nil {
		maybeWriteMemProfile()
		// exhaust stdin
		if !present.IsInputTTY() {
			_, _ = io.Copy(io.Discard, os.Stdin)
		}
		handleError(os.Stderr, err)
		os.Exit(1)
	}
}
