package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdm-project/xdm-updater/internal/branding"
	"github.com/xdm-project/xdm-updater/internal/config"
)

var checkJSON bool

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the XDM install needs an update",
	Long: `Detects how XDM was installed and checks for a newer version.

Git checkouts are fetched from origin and compared commit by commit. Binary
and plain source installs always report that no update is needed. The result
is cached and shown as a banner by other commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		u := a.coreUpdater()
		res, err := u.CheckAndRemember(cmd.Context(), a.fs, config.Dir())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if checkJSON {
			return printJSON(out, res)
		}
		fmt.Fprintf(out, "install type: %s\n", u.InstallType())
		fmt.Fprintln(out, res.String())
		if res.NeedsUpdate {
			fmt.Fprintf(out, "\nUpdate the install at %s to get the latest %s.\n", a.settings.AppPath, branding.DisplayName())
		}
		return nil
	},
}
