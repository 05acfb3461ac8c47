package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	timeago "github.com/caarlos0/timea.go"
	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/present"
	"github.com/sortedstartup/ztr/internal/storage"
)

func newRunsCmd(rt *runtime) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage recorded runs",
	}

	runsCmd.AddCommand(newRunsListCmd(rt))
	runsCmd.AddCommand(newRunsShowCmd(rt))
	runsCmd.AddCommand(newRunsDeleteCmd(rt))
	runsCmd.AddCommand(newRunsPruneCmd(rt))

	return runsCmd
}

func newRunsListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return listRuns(cmd.OutOrStdout(), &rt.cfg, !rt.isInteractive() || rt.cfg.Raw)
		},
	}
}

func newRunsShowCmd(rt *runtime) *cobra.Command {
	var asJSON bool
	showCmd := &cobra.Command{
		Use:               "show [id-or-title]",
		Short:             "Show the transcript of a run, the most recent one by default",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: rt.completeRuns,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			in := ""
			if len(args) == 1 {
				in = args[0]
			}
			return showRun(cmd.OutOrStdout(), &rt.cfg, in, asJSON)
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, flagDesc("json"))
	return showCmd
}

func newRunsDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:               "delete <id-or-title> [more...]",
		Short:             "Delete recorded runs",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: rt.completeRuns,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return deleteRuns(cmd.ErrOrStderr(), &rt.cfg, args)
		},
	}
}

func newRunsPruneCmd(rt *runtime) *cobra.Command {
	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			if olderThan == 0 {
				return errs.Wrap(errs.UserErrorf("missing --older-than"), "Could not delete old runs.")
			}
			return pruneRuns(cmd.OutOrStdout(), cmd.ErrOrStderr(), &rt.cfg, olderThan, rt.isInteractive())
		},
	}
	pruneCmd.Flags().Var(newDurationFlag(olderThan, &olderThan), "older-than", flagDesc("older-than"))
	pruneCmd.Flags().BoolVarP(&rt.cfg.Quiet, "quiet", "q", rt.cfg.Quiet, flagDesc("quiet"))
	return pruneCmd
}

func (rt *runtime) completeRuns(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if rt.cfg.CachePath == "" {
		return nil, cobra.ShellCompDirectiveDefault
	}
	db, err := storage.Open(rt.cfg.CachePath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	defer db.Close() //nolint:errcheck
	return db.Completions(toComplete), cobra.ShellCompDirectiveNoFileComp
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.OpenStore(cfg.CachePath)
	if err != nil {
		return nil, errs.Wrap(err, "Could not open the run store.")
	}
	return store, nil
}

func listRuns(w io.Writer, cfg *config.Config, plain bool) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	runs := store.List()
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "No runs found.")
		return nil
	}
	if plain {
		printRuns(w, runs)
		return nil
	}
	selectFromList(w, runs)
	return nil
}

func showRun(w io.Writer, cfg *config.Config, in string, asJSON bool) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	var run *storage.Run
	if in == "" {
		run, err = store.FindHEAD()
	} else {
		run, err = store.Find(in)
	}
	if err != nil {
		return errs.Wrap(err, "Could not find the run.")
	}
	t, err := store.Transcript(run.ID)
	if err != nil {
		return errs.Wrap(err, "There was an error loading the run.")
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(t); err != nil {
			return errs.Wrap(err, "Could not encode the run.")
		}
		return nil
	}

	out := transcriptMarkdown(t)
	if present.IsOutputTTY() && !cfg.Raw {
		if formatted, err := present.RenderMarkdownForTTY(out, cfg.WordWrap); err == nil {
			out = formatted
		}
	}
	_, _ = io.WriteString(w, out)
	return nil
}

func transcriptMarkdown(t storage.Transcript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", t.Agent, storage.ShortID(t.ID))
	fmt.Fprintf(&b, "- **Model**: %s (%s)\n", t.Model, t.API)
	fmt.Fprintf(&b, "- **Started**: %s, took %s\n", t.StartedAt.Local().Format(time.DateTime), t.Duration.Round(time.Second))
	fmt.Fprintf(&b, "- **Tokens**: %d input, %d output, %d total in %d steps\n", t.InputTokens, t.OutputTokens, t.TotalTokens, t.Steps)
	if t.Workspace != "" {
		fmt.Fprintf(&b, "- **Workspace**: %s\n", t.Workspace)
	}
	fmt.Fprintf(&b, "\n## Task\n\n%s\n", strings.TrimSpace(t.Task))
	if len(t.Tools) > 0 {
		b.WriteString("\n## Tool calls\n\n")
		for i, c := range t.Tools {
			mark := "ok"
			if c.Failed {
				mark = "failed"
			}
			fmt.Fprintf(&b, "%d. `%s` %s, %s: `%s`\n", i+1, c.Name, mark, c.Duration.Round(time.Millisecond), oneLine(c.Input))
		}
	}
	if t.Error != "" {
		fmt.Fprintf(&b, "\n## Error\n\n%s\n", t.Error)
	}
	if t.Output != "" {
		fmt.Fprintf(&b, "\n## Output\n\n%s\n", strings.TrimSpace(t.Output))
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(s), " "), "`", "'")
}

func deleteRuns(w io.Writer, cfg *config.Config, targets []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	for _, del := range targets {
		run, err := store.Find(del)
		if err != nil {
			return errs.Wrap(err, "Couldn't find run to delete.")
		}
		if err := deleteRun(w, cfg, store, run.ID); err != nil {
			return err
		}
	}
	return nil
}

func deleteRun(w io.Writer, cfg *config.Config, store *storage.Store, id string) error {
	if err := store.Remove(id); err != nil {
		return errs.Wrap(err, "Couldn't delete run.")
	}
	if !cfg.Quiet {
		_, _ = fmt.Fprintln(w, "Run deleted:", storage.ShortID(id))
	}
	return nil
}

func pruneRuns(out, w io.Writer, cfg *config.Config, olderThan time.Duration, interactive bool) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	runs := store.ListOlderThan(olderThan)
	if len(runs) == 0 {
		if !cfg.Quiet {
			_, _ = fmt.Fprintln(w, "No runs found.")
		}
		return nil
	}

	if !cfg.Quiet {
		printRuns(out, runs)

		if !interactive {
			_, _ = fmt.Fprintln(w)
			//nolint:wrapcheck // user-facing guidance error
			return errs.UserErrorf(
				"To delete the runs above, run: %s",
				strings.Join(append(os.Args, "--quiet"), " "),
			)
		}
		var confirm bool
		if err := huh.Run(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete runs older than %s?", olderThan)).
				Description(fmt.Sprintf("This will delete all the %d runs listed above.", len(runs))).
				Value(&confirm),
		); err != nil {
			return errs.Wrap(err, "Couldn't delete old runs.")
		}
		if !confirm {
			//nolint:wrapcheck // user-facing abort
			return errs.UserErrorf("Aborted by user")
		}
	}

	for _, r := range runs {
		if err := deleteRun(w, cfg, store, r.ID); err != nil {
			return err
		}
	}
	return nil
}

func makeOptions(runs []storage.Run) []huh.Option[string] {
	styles := present.StdoutStyles()
	opts := make([]huh.Option[string], 0, len(runs))
	for _, r := range runs {
		timea := styles.Timeago.Render(timeago.Of(r.UpdatedAt))
		left := styles.SHA.Render(storage.ShortID(r.ID))
		right := styles.RunList.Render(r.Agent+": "+r.Title, timea)
		if r.Model != "" {
			right += styles.Comment.Render(r.Model)
		}
		if r.Status == storage.StatusFailed {
			right += " " + styles.ToolFailed.String()
		}
		opts = append(opts, huh.NewOption(left+" "+right, r.ID))
	}
	return opts
}

func selectFromList(w io.Writer, runs []storage.Run) {
	var selected string
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Runs").
				Value(&selected).
				Options(makeOptions(runs)...),
		),
	).Run(); err != nil {
		if !errors.Is(err, huh.ErrUserAborted) {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
		return
	}

	_ = clipboard.WriteAll(selected)
	termenv.Copy(selected)
	present.PrintConfirmation(w, "COPIED", selected)

	styles := present.StdoutStyles()
	_, _ = fmt.Fprintln(w, styles.Comment.Render("You can use this run ID with the following commands:"))
	short := storage.ShortID(selected)
	for _, s := range []string{
		"ztr runs show " + short,
		"ztr runs delete " + short,
	} {
		_, _ = fmt.Fprintf(w, "  %s\n", styles.InlineCode.Render(s))
	}
}

func printRuns(w io.Writer, runs []storage.Run) {
	styles := present.StdoutStyles()
	for _, r := range runs {
		_, _ = fmt.Fprintf(
			w,
			"%s\t%s\t%s\t%s\t%s\n",
			styles.SHA.Render(storage.ShortID(r.ID)),
			r.Agent,
			r.Title,
			r.Status,
			styles.Timeago.Render(timeago.Of(r.UpdatedAt)),
		)
	}
}
