package cmd

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

const (
	manFiles = `~/.config/ztr/ztr.yml holds the settings, created on first run.
~/.config/ztr/agents/ may hold extra agents as markdown or YAML files.
Recorded runs live under the cache path, see "ztr config dirs".`

	manEnvironment = `Every setting can be overridden with a ZTR_ variable, for example
ZTR_MODEL, ZTR_CONTAINER_NAME or ZTR_TIMEOUT_BUILD. Provider keys are read
from their usual variables such as OPENAI_API_KEY. $EDITOR opens the
settings file and review requests.`
)

func newManCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:                   "man",
		Short:                 "Generates manpages",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Hidden:                true,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := mcobra.NewManPage(1, root)
			if err != nil {
				return fmt.Errorf("build man page: %w", err)
			}
			page = page.
				WithSection("Files", manFiles).
				WithSection("Environment", manEnvironment)
			_, err = fmt.Fprint(cmd.OutOrStdout(), page.Build(roff.NewDocument()))
			return err //nolint:wrapcheck
		},
	}
}
