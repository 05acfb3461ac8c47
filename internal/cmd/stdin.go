package cmd

import (
	"io"
	"os"

	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/present"
)

const maxStdinBytes = 4 * 1024 * 1024

// readStdin returns piped input, or nothing when stdin is a terminal.
func readStdin(r io.Reader) (string, error) {
	if r == os.Stdin && present.IsInputTTY() {
		return "", nil
	}
	bts, err := io.ReadAll(io.LimitReader(r, maxStdinBytes))
	if err != nil {
		return "", errs.Error{Err: err, Reason: "Unable to read stdin."}
	}
	return string(bts), nil
}
