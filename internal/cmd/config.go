package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/present"
	"github.com/sortedstartup/ztr/internal/tools"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Allow opening settings even when config parsing failed.
			return editSettings(cmd.ErrOrStderr(), &rt.cfg)
		},
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Open settings in $EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return editSettings(cmd.ErrOrStderr(), &rt.cfg)
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset settings to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Allow reset even when config parsing failed.
			return resetSettings(cmd.ErrOrStderr(), &rt.cfg)
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:       "dirs [config|cache|workspace]",
		Short:     "Print the settings, run history and workspace directories",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "cache", "workspace"},
		RunE: func(cmd *cobra.Command, args []string) error {
			printDirs(cmd.OutOrStdout(), &rt.cfg, args)
			return nil
		},
	})

	return configCmd
}

func editSettings(w io.Writer, cfg *config.Config) error {
	if err := config.WriteConfigFile(cfg.SettingsPath); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	c, err := tools.EditorCmd(cfg.SettingsPath)
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not edit your settings file."}
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return errs.Error{Err: err, Reason: fmt.Sprintf(
			"Missing %s.",
			present.StderrStyles().InlineCode.Render("$EDITOR"),
		)}
	}

	if !cfg.Quiet {
		_, _ = fmt.Fprintln(w, "Wrote config file to:", cfg.SettingsPath)
	}
	return nil
}

// resetSettings moves the settings file aside and writes the defaults in
// its place.
func resetSettings(w io.Writer, cfg *config.Config) error {
	backup := cfg.SettingsPath + ".bak"
	if err := os.Rename(cfg.SettingsPath, backup); err != nil {
		return errs.Wrap(err, "Couldn't back up the settings file.")
	}
	if err := config.WriteConfigFile(cfg.SettingsPath); err != nil {
		return errs.Wrap(err, "Couldn't write the new settings file.")
	}

	if !cfg.Quiet {
		styles := present.StderrStyles()
		_, _ = fmt.Fprintln(w, "\nSettings restored to defaults!")
		_, _ = fmt.Fprintf(
			w,
			"\n  %s %s\n\n",
			styles.Comment.Render("Your old settings have been saved to:"),
			styles.Link.Render(backup),
		)
	}
	return nil
}

func printDirs(w io.Writer, cfg *config.Config, args []string) {
	if len(args) > 0 {
		switch args[0] {
		case "config":
			_, _ = fmt.Fprintln(w, filepath.Dir(cfg.SettingsPath))
			return
		case "cache":
			_, _ = fmt.Fprintln(w, cfg.CachePath)
			return
		case "workspace":
			_, _ = fmt.Fprintln(w, cfg.Workspace)
			return
		}
	}

	_, _ = fmt.Fprintf(w, "Configuration: %s\n", filepath.Dir(cfg.SettingsPath))
	_, _ = fmt.Fprintf(w, "%*sRuns: %s\n", 9, " ", cfg.CachePath)
	_, _ = fmt.Fprintf(w, "%*sWorkspace: %s\n", 4, " ", cfg.Workspace)
}
