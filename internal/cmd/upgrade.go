package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/shell"
)

const (
	installPkg     = "github.com/sortedstartup/ztr@latest"
	installTimeout = 5 * time.Minute
)

func newUpgradeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade ztr to the latest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.upgrade(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func (rt *runtime) upgrade(ctx context.Context, out, w io.Writer) error {
	if !rt.cfg.Quiet {
		_, _ = fmt.Fprintf(w, "Current version: %s\n", rt.build.Version)
		_, _ = fmt.Fprintf(w, "Upgrading via go install %s ...\n", installPkg)
	}

	runner := rt.runner
	if runner == nil {
		runner = shell.Exec{}
	}
	res, err := runner.Run(ctx, shell.Command{
		Name:    "go",
		Args:    []string{"install", installPkg},
		Timeout: installTimeout,
	})
	if s := res.Output(); s != "" {
		_, _ = fmt.Fprintln(out, s)
	}
	if err != nil {
		return errs.Wrap(err, "Upgrade failed. Is go in your PATH?")
	}

	if !rt.cfg.Quiet {
		_, _ = fmt.Fprintln(w, "Upgrade complete.")
	}
	return nil
}
