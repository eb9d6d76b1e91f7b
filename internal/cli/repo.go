package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repoAddName string

func init() {
	repoAddCmd.Flags().StringVar(&repoAddName, "name", "", "Display name (defaults to the URL until the first refresh)")

	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	repoCmd.AddCommand(repoRefreshCmd)
	rootCmd.AddCommand(repoCmd)
}

var repoCmd = &cobra.Command{
	Use:     "repo",
	Aliases: []string{"repository"},
	Short:   "Manage plugin repositories",
	Long:    `Add, remove and refresh the plugin repositories stored in ~/.xdm/repositories.yaml.`,
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		records := a.store.List()
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No repositories configured. Add one with 'repo add <url>'.")
			return nil
		}
		t := newTable(cmd.OutOrStdout(), "NAME", "URL")
		for _, r := range records {
			t.AppendRow([]any{r.Name, r.URL})
		}
		t.Render()
		return nil
	},
}

var repoAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a plugin repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.Add(repoAddName, args[0]); err != nil {
			return fmt.Errorf("adding repository: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added repository %s\n", args[0])
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:     "remove <url|name>",
	Aliases: []string{"rm"},
	Short:   "Remove a plugin repository",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.Remove(args[0]); err != nil {
			return fmt.Errorf("removing repository: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed repository %s\n", args[0])
		return nil
	},
}

var repoRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Download every repository listing",
	Long: `Downloads the listing of every configured repository. A repository that
cannot be reached is shown with no plugins; the others are still refreshed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		reg, err := a.registry()
		if err != nil {
			return err
		}
		reg.Refresh(cmd.Context())

		t := newTable(cmd.OutOrStdout(), "NAME", "URL", "PLUGINS")
		for _, r := range reg.Repositories() {
			t.AppendRow([]any{r.Name(), r.URL(), len(r.Plugins())})
		}
		t.Render()
		fmt.Fprintf(cmd.OutOrStdout(), "%d plugin(s) have an update\n", len(reg.Outdated()))
		return nil
	},
}
