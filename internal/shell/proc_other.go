//go:build !unix

package shell

import "os/exec"

// killGroupOnCancel relies on WaitDelay alone where process groups are not
// available.
func killGroupOnCancel(*exec.Cmd) {}
