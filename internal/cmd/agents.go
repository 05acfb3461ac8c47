package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	xstrings "github.com/charmbracelet/x/exp/strings"
	"github.com/spf13/cobra"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/present"
	"github.com/sortedstartup/ztr/internal/recipe"
	"github.com/sortedstartup/ztr/internal/tools"
)

func newAgentsCmd(rt *runtime) *cobra.Command {
	list := func(cmd *cobra.Command, _ []string) error {
		if rt.cfgErr != nil {
			return rt.cfgErr
		}
		listAgents(cmd.OutOrStdout(), &rt.cfg)
		return nil
	}
	agentsCmd := &cobra.Command{
		Use:   "agents",
		Short: "List and inspect agents",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	agentsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List built-in and user agents",
		Args:  cobra.NoArgs,
		RunE:  list,
	})
	agentsCmd.AddCommand(&cobra.Command{
		Use:   "show <agent>",
		Short: "Show an agent's model, tools and instructions",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return agentNames(&rt.cfg, toComplete), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return showAgent(cmd.OutOrStdout(), &rt.cfg, args[0])
		},
	})
	return agentsCmd
}

func agentNames(cfg *config.Config, prefix string) []string {
	var names []string
	for _, d := range recipe.All(cfg) {
		if strings.HasPrefix(d.Name, prefix) {
			names = append(names, d.Name)
		}
	}
	return names
}

func modelNames(cfg *config.Config, prefix string) []string {
	var names []string
	for _, api := range cfg.APIs {
		for name, m := range api.Models {
			for _, n := range append([]string{name}, m.Aliases...) {
				if strings.HasPrefix(n, prefix) {
					names = append(names, n)
				}
			}
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func listAgents(w io.Writer, cfg *config.Config) {
	styles := present.StdoutStyles()
	for _, d := range recipe.All(cfg) {
		origin := "user"
		if d.Builtin {
			origin = "built-in"
		}
		_, _ = fmt.Fprintf(
			w,
			"%s\t%s\t%s\n",
			styles.Flag.Render(d.Name),
			d.Description,
			styles.Timeago.Render("("+origin+")"),
		)
	}
}

func showAgent(w io.Writer, cfg *config.Config, name string) error {
	def, err := recipe.Get(cfg, name)
	if err != nil {
		return err
	}
	toolNames, err := tools.Expand(def.Tools)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", def.Name)
	if def.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", def.Description)
	}
	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "- **%s**: %s\n", k, v)
		}
	}
	model := def.Model
	if model == "" {
		model = cfg.Model + " (default)"
	}
	field("Model", model)
	field("API", def.API)
	field("Tools", xstrings.EnglishJoin(toolNames, true))
	field("MCP servers", xstrings.EnglishJoin(def.MCPServers, true))
	field("Workspace", def.Workspace)
	if def.Container {
		field("Container", cfg.Container.Name)
	}
	for _, k := range slices.Sorted(maps.Keys(def.Vars)) {
		field("Var "+k, def.Vars[k])
	}
	field("Default task", def.Task)
	field("Task template", def.TaskTemplate)

	b.WriteString("\n## Instructions\n\n")
	for i, entry := range def.Instructions {
		text, err := config.LoadMsg(entry)
		if err != nil {
			return errs.Wrapf(err, "Could not load instruction %d of agent %q.", i+1, def.Name)
		}
		b.WriteString(strings.TrimSpace(text))
		b.WriteString("\n\n")
	}

	out := b.String()
	if present.IsOutputTTY() {
		if formatted, err := present.RenderMarkdownForTTY(out, cfg.WordWrap); err == nil {
			out = formatted
		}
	}
	_, _ = io.WriteString(w, out)
	return nil
}
