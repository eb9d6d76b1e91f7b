package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xdm-project/xdm-updater/internal/registry"
)

// pollInterval is how often install progress is printed.
const pollInterval = 100 * time.Millisecond

var (
	pluginListRemote   bool
	pluginListInstance string
	pluginSearchFormat string
	pluginSearchType   string
)

func init() {
	pluginListCmd.Flags().BoolVar(&pluginListRemote, "remote", false, "List plugins offered by the repositories instead of installed ones")
	pluginListCmd.Flags().StringVar(&pluginListInstance, "instance", registry.DefaultInstance, "Instance whose installed plugins are listed")
	pluginSearchCmd.Flags().StringVar(&pluginSearchFormat, "format", "", "Filter by package format (zip, py)")
	pluginSearchCmd.Flags().StringVar(&pluginSearchType, "type", "", "Filter by plugin type")

	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginSearchCmd)
	pluginCmd.AddCommand(pluginOutdatedCmd)
	pluginCmd.AddCommand(pluginInstallCmd)
	pluginCmd.AddCommand(pluginCheckCmd)
	rootCmd.AddCommand(pluginCmd)
}

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "List, search and install plugins",
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		if pluginListRemote {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			reg.Refresh(cmd.Context())
			printDescriptors(out, reg.Descriptors(), reg)
			return nil
		}

		installed := a.scanner.GetAll(pluginListInstance)
		if len(installed) == 0 {
			fmt.Fprintln(out, "No plugins installed.")
			return nil
		}
		t := newTable(out, "IDENTIFIER", "NAME", "VERSION", "FORMAT", "PATH")
		for _, p := range installed {
			t.AppendRow([]any{p.Identifier, p.Name, p.Version, p.Format, p.Path})
		}
		t.Render()
		return nil
	},
}

var pluginSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the plugins offered by the repositories",
	Long: `Refreshes every repository and lists the plugin versions whose name,
identifier or description contain the query. An empty query lists everything.`,
	Args: cobra.MaximumNArgs(1),
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

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		var matches []registry.Descriptor
		for _, d := range reg.Descriptors() {
			if matchesSearch(d, query, pluginSearchFormat, pluginSearchType) {
				matches = append(matches, d)
			}
		}
		if len(matches) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matching plugins found.")
			return nil
		}
		printDescriptors(cmd.OutOrStdout(), matches, reg)
		return nil
	},
}

var pluginOutdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List installed plugins with a newer version in a repository",
	Args:  cobra.NoArgs,
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

		outdated := reg.Outdated()
		if len(outdated) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "All installed plugins are up to date.")
			return nil
		}
		t := newTable(cmd.OutOrStdout(), "IDENTIFIER", "NAME", "INSTALLED", "AVAILABLE", "REPOSITORY")
		for _, id := range slices.Sorted(maps.Keys(outdated)) {
			o := outdated[id]
			t.AppendRow([]any{id, o.Remote.Name, o.Local.Version, o.Remote.VersionHuman(), o.Remote.Repository})
		}
		t.Render()
		return nil
	},
}

var pluginInstallCmd = &cobra.Command{
	Use:   "install <identifier>",
	Short: "Install or update a plugin from the repositories",
	Args:  cobra.ExactArgs(1),
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

		if !runInstall(cmd.Context(), cmd.OutOrStdout(), reg, args[0]) {
			return fmt.Errorf("installing %s failed", args[0])
		}
		return nil
	},
}

var pluginCheckCmd = &cobra.Command{
	Use:   "check <identifier>",
	Short: "Check an installed plugin against its own update URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var plugin *registry.InstalledPlugin
		for _, p := range a.scanner.GetAll(registry.DefaultInstance) {
			if p.Identifier == args[0] {
				plugin = &p
				break
			}
		}
		if plugin == nil {
			return fmt.Errorf("plugin %s: %w", args[0], registry.ErrNotFound)
		}

		res := a.pluginChecker().Check(cmd.Context(), *plugin, a.scanner.UpdateURL(plugin.Identifier))
		fmt.Fprintln(cmd.OutOrStdout(), res.String())
		return nil
	},
}

// runInstall starts the install in the background and prints its journal
// until it finishes. It reports whether the install succeeded.
func runInstall(ctx context.Context, w io.Writer, reg *registry.Registry, identifier string) bool {
	done := make(chan bool, 1)
	go func() {
		done <- reg.Install(ctx, identifier)
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case ok := <-done:
			printMessages(w, reg.Messages())
			return ok
		case <-ticker.C:
			printMessages(w, reg.Messages())
		}
	}
}

func printDescriptors(w io.Writer, ds []registry.Descriptor, reg *registry.Registry) {
	t := newTable(w, "IDENTIFIER", "NAME", "VERSION", "FORMAT", "REPOSITORY", "STATUS")
	for _, d := range ds {
		status := ""
		if reg.IsOutdated(d.Identifier) {
			status = "update available"
		}
		t.AppendRow([]any{d.Identifier, d.Name, d.VersionHuman(), d.RawFormat, d.Repository, status})
	}
	t.Render()
}

// matchesSearch reports whether d passes the format and type filters and
// contains query in its name, identifier or description.
func matchesSearch(d registry.Descriptor, query, formatFilter, typeFilter string) bool {
	if formatFilter != "" && !strings.EqualFold(d.RawFormat, formatFilter) {
		return false
	}
	if typeFilter != "" && !strings.EqualFold(d.Kind, typeFilter) {
		return false
	}
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(d.Name), q) ||
		strings.Contains(strings.ToLower(d.Identifier), q) ||
		strings.Contains(strings.ToLower(d.Description), q)
}
