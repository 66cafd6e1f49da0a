package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/nudge/internal/app"
	"github.com/five82/nudge/internal/ui"
)

// newRootCmd builds the command tree. The root runs the editor.
func newRootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:   "nudge",
		Short: "Edit reminder settings from the terminal",
		Long: `nudge edits reminder settings stored behind a settings API.

Changes apply instantly on screen and are saved in the background:
switches right away, time pickers once you stop adjusting them.
Turning a reminder on asks for notification permission first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/nudge/config.toml)")
	flags.StringVar(&opts.APIBind, "api", "", "settings API address, overrides api_bind")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level, overrides log_level")

	root.Flags().DurationVar(&opts.QuietPeriod, "quiet", 0, "debounce quiet period, overrides quiet_period")
	root.Flags().StringVar(&opts.ThemeName, "theme", "", "color theme ("+strings.Join(ui.ThemeNames(), ", ")+")")
	root.Flags().BoolVar(&opts.GrantAll, "grant-all", false, "answer every permission prompt with yes")
	root.Flags().StringVar(&opts.MetricsAddr, "metrics", "", "serve editor metrics on this address")

	root.AddCommand(
		editCmd(root),
		serveCmd(&opts),
		logsCmd(&opts),
		grantsCmd(&opts),
		versionCmd(),
	)
	return root
}

// editCmd is an explicit alias for the root command.
func editCmd(root *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Open the settings editor (default)",
		RunE:  root.RunE,
	}
	cmd.Flags().AddFlagSet(root.Flags())
	return cmd
}

func serveCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a local settings API for development",
		Long: `Run a local settings API backed by a TOML file.

The [server] table of the config file controls the store path, time zone,
minute step, artificial latency and injected failures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Serve(cmd.Context(), *opts)
		},
	}
}

func logsCmd(opts *app.Options) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the editor log",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := app.Logs(*opts, lines)
			if err != nil {
				return err
			}
			for _, line := range out {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines")
	return cmd
}

func grantsCmd(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grants",
		Short: "Show remembered permission answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.Grants(*opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no remembered answers")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%-16s %s\n", e.Capability, e.Status)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reset [capability]",
		Short: "Forget permission answers so the editor asks again",
		Long: `Forget the remembered answer for one capability, or for all of them
when none is named. The next time a reminder is turned on, nudge asks again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := ""
			if len(args) == 1 {
				kind = args[0]
			}
			return app.ResetGrants(*opts, kind)
		},
	})
	return cmd
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version)
				return
			}
			fmt.Fprintf(out, "nudge %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", date)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}
