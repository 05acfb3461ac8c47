package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sortedstartup/ztr/internal/present"
	"github.com/sortedstartup/ztr/internal/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools [name|@group...]",
		Short: "List the tools agents can use",
		Long:  "List the tools agents can use. Agents reference them by name, or a whole group as @group.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTools(cmd.OutOrStdout(), args)
		},
	}
}

func listTools(w io.Writer, filter []string) error {
	var names []string
	if len(filter) > 0 {
		expanded, err := tools.Expand(filter)
		if err != nil {
			return err
		}
		names = expanded
	}

	styles := present.StdoutStyles()
	for _, s := range tools.Catalog() {
		if names != nil && !slices.Contains(names, s.Name) {
			continue
		}
		_, _ = fmt.Fprintf(
			w,
			"%s\t%s\t%s\n",
			styles.Timeago.Render("@"+s.Group),
			styles.Flag.Render(s.Name),
			s.Description,
		)
	}
	return nil
}
