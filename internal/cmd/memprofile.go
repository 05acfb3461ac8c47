package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"
)

// memprofile is set by the hidden --memprofile flag.
var memprofile bool

func maybeWriteMemProfile() {
	if !memprofile {
		return
	}
	for _, name := range []string{"heap", "allocs"} {
		path := "ztr_" + name + ".profile"
		if err := writeProfile(name, path); err != nil {
			slog.Error("could not write memory profile", "profile", name, "err", err)
		}
	}
}

func writeProfile(name, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := pprof.Lookup(name).WriteTo(f, 0); err != nil {
		return fmt.Errorf("write %s profile: %w", name, err)
	}
	return nil
}
