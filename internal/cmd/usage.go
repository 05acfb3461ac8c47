package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/sortedstartup/ztr/internal/present"
)

func useLine(cmd *cobra.Command) string {
	styles := present.StdoutStyles()
	appName := cmd.Root().Name()
	if present.StdoutRenderer().ColorProfile() == termenv.TrueColor {
		appName = present.MakeGradientText(styles.AppName, appName)
	}

	path := appName
	if cmd.HasParent() {
		path += " " + cmd.CommandPath()[len(cmd.Root().Name())+1:]
	}
	args := "[COMMAND] [FLAGS]"
	if !cmd.HasSubCommands() {
		args = strings.TrimSpace(strings.TrimPrefix(cmd.Use, cmd.Name()) + " [FLAGS]")
	}
	return fmt.Sprintf("%s %s", path, styles.CliArgs.Render(args))
}

func usageFunc(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	styles := present.StdoutStyles()

	_, _ = fmt.Fprintf(w, "Usage:\n  %s\n\n", useLine(cmd))

	if cmd.HasAvailableSubCommands() {
		_, _ = fmt.Fprintln(w, "Commands:")
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			_, _ = fmt.Fprintf(
				w,
				"  %-24s %s\n",
				styles.Flag.Render(sub.Name()),
				styles.FlagDesc.Render(sub.Short),
			)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, "Flags:")
	printFlags(w, cmd.LocalFlags())
	if cmd.HasAvailableInheritedFlags() {
		_, _ = fmt.Fprintln(w, "\nGlobal flags:")
		printFlags(w, cmd.InheritedFlags())
	}

	if cmd.HasExample() {
		_, _ = fmt.Fprintf(
			w,
			"\nExample:\n  %s\n  %s\n",
			styles.Comment.Render("# "+cmd.Example),
			cheapHighlighting(styles, examples[cmd.Example]),
		)
	}
	return nil
}

func printFlags(w io.Writer, flags *flag.FlagSet) {
	styles := present.StdoutStyles()
	flags.VisitAll(func(f *flag.Flag) {
		if f.Hidden {
			return
		}
		if f.Shorthand == "" {
			_, _ = fmt.Fprintf(
				w,
				"  %-44s %s\n",
				styles.Flag.Render("--"+f.Name),
				styles.FlagDesc.Render(f.Usage),
			)
			return
		}
		_, _ = fmt.Fprintf(
			w,
			"  %s%s %-40s %s\n",
			styles.Flag.Render("-"+f.Shorthand),
			styles.FlagComma,
			styles.Flag.Render("--"+f.Name),
			styles.FlagDesc.Render(f.Usage),
		)
	})
}
