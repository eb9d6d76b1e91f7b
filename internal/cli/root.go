package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xdm-project/xdm-updater/internal/branding"
	"github.com/xdm-project/xdm-updater/internal/config"
	"github.com/xdm-project/xdm-updater/internal/updater"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` checks whether the running XDM install is out of date and
installs plugins from configured plugin repositories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Skip the banner for commands that manage their own state.
		switch topLevel(cmd).Name() {
		case "check", "version", "config":
			return
		}

		// Non-blocking banner from the cached core check.
		stale := updater.PrintBanner(os.Stderr, afero.NewOsFs(), config.Dir(), branding.CLIName(), time.Now())
		if stale {
			cmd.PrintErrf("Last update check is more than a day old. Run '%s check'.\n", branding.CLIName())
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
}

// topLevel returns the direct child of the root command that cmd belongs to.
func topLevel(cmd *cobra.Command) *cobra.Command {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		rootCmd.PrintErrln("Error:", err)
	}
	return err
}
