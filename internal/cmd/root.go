// Package cmd implements the ztr command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	glamour "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/sortedstartup/ztr/internal/agent"
	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/logging"
	"github.com/sortedstartup/ztr/internal/present"
	"github.com/sortedstartup/ztr/internal/recipe"
	"github.com/sortedstartup/ztr/internal/shell"
)

type runtime struct {
	build  BuildInfo
	cfg    config.Config
	cfgErr error

	// runner and factory are nil outside of tests.
	runner  shell.Runner
	factory agent.GeneratorFactory
	// interactive overrides TTY detection when set.
	interactive *bool
}

// NewRootCmd constructs the Cobra root command.
func NewRootCmd(build BuildInfo, cfg config.Config, cfgErr error) *cobra.Command {
	return newRootCmd(&runtime{build: normalizeBuildInfo(build), cfg: cfg, cfgErr: cfgErr})
}

func newRootCmd(rt *runtime) *cobra.Command {
	// XXX: unset error styles in Glamour dark and light styles.
	glamour.DarkStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)
	glamour.LightStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)

	rootCmd := &cobra.Command{
		Use:           "ztr",
		Short:         "Run tool-using LLM agents from zero to release.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       randomExample(),
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			rt.setupLogging(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			if !rt.isInteractive() {
				return cmd.Usage() //nolint:wrapcheck
			}
			name, task, err := pickAgent(&rt.cfg)
			if err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return errs.Error{Err: err, Reason: "User canceled."}
				}
				return errs.Error{Err: err, Reason: "Prompt failed."}
			}
			return rt.runAgent(cmd, name, task)
		},
	}

	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagParseError(err)
	})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.Version = rt.build.Version
	rootCmd.SetVersionTemplate(versionTemplate(rt.build))

	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&rt.cfg.LogLevel, "log-level", rt.cfg.LogLevel, flagDesc("log-level"))
	pflags.StringVar(&rt.cfg.Theme, "theme", rt.cfg.Theme, flagDesc("theme"))
	pflags.BoolVar(&memprofile, "memprofile", false, "Write memory profiles to CWD")
	_ = pflags.MarkHidden("memprofile")

	rootCmd.AddCommand(
		newRunCmd(rt),
		newAgentsCmd(rt),
		newToolsCmd(),
		newRunsCmd(rt),
		newConfigCmd(rt),
		newMCPCmd(rt),
		newManCmd(rootCmd),
		newUpgradeCmd(rt),
		newServeCmd(rt),
	)

	// Enable completion now that we have subcommands.
	rootCmd.InitDefaultCompletionCmd()

	return rootCmd
}

func (rt *runtime) setupLogging(w io.Writer) {
	noColor := present.StderrRenderer().ColorProfile() == termenv.Ascii
	slog.SetDefault(logging.New(w, rt.cfg.LogLevel, noColor))
}

func (rt *runtime) isInteractive() bool {
	if rt.interactive != nil {
		return *rt.interactive
	}
	return present.IsInputTTY() && present.IsOutputTTY()
}

// showProgress reports whether the progress view can draw on stderr.
func (rt *runtime) showProgress() bool {
	if rt.interactive != nil {
		return *rt.interactive
	}
	return present.IsInputTTY() && present.IsErrorTTY()
}

// pickAgent asks which agent to run and, when the agent has no default
// task, for the task.
func pickAgent(cfg *config.Config) (string, string, error) {
	defs := recipe.All(cfg)
	opts := make([]huh.Option[string], 0, len(defs))
	byName := make(map[string]recipe.Definition, len(defs))
	for _, d := range defs {
		label := d.Name
		if d.Description != "" {
			label += present.StdoutStyles().Comment.Render(" " + d.Description)
		}
		opts = append(opts, huh.NewOption(label, d.Name))
		byName[d.Name] = d
	}

	var name, task string
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose the agent:").
				Options(opts...).
				Value(&name),
		),
		huh.NewGroup(
			huh.NewText().
				TitleFunc(func() string {
					return fmt.Sprintf("Enter the task for %s:", name)
				}, &name).
				Value(&task),
		).WithHideFunc(func() bool {
			return byName[name].Task != ""
		}),
	).
		WithTheme(themeFrom(cfg.Theme)).
		Run(); err != nil {
		return "", "", fmt.Errorf("prompt form: %w", err)
	}
	return name, strings.TrimSpace(task), nil
}

func themeFrom(theme string) *huh.Theme {
	switch theme {
	case "dracula":
		return huh.ThemeDracula()
	case "catppuccin":
		return huh.ThemeCatppuccin()
	case "base16":
		return huh.ThemeBase16()
	default:
		return huh.ThemeCharm()
	}
}
